package usecase

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/internal/index"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopLogger глушит вывод в тестах.
type nopLogger struct{}

func (nopLogger) Infof(format string, args ...any)            {}
func (nopLogger) Warnf(format string, args ...any)            {}
func (nopLogger) Errorf(err error, format string, args ...any) {}

// stubDecoder отдаёт фиксированный битмап, содержимое байтов не важно.
type stubDecoder struct {
	err error
}

func (d *stubDecoder) DecodeRGB(data []byte) (image.Image, error) {
	if d.err != nil {
		return nil, d.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

// stubBackend возвращает заранее заданные совпадения. onSearch, если задан,
// вызывается до возврата — так тесты воспроизводят события во время поиска.
type stubBackend struct {
	hits     []RawHit
	err      error
	onSearch func()
}

func (b *stubBackend) Synthetic() bool { return false }

func (b *stubBackend) Search(ctx context.Context, img image.Image, topK int) ([]RawHit, error) {
	if b.onSearch != nil {
		b.onSearch()
	}
	if b.err != nil {
		return nil, b.err
	}
	if topK < len(b.hits) {
		return b.hits[:topK], nil
	}
	return b.hits, nil
}

type mockQueryLog struct {
	mu      sync.Mutex
	entries []*domain.QueryLogEntry
}

func (m *mockQueryLog) Append(ctx context.Context, entry *domain.QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockQueryLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockQueryImages struct {
	mu      sync.Mutex
	uploads int
}

func (m *mockQueryImages) UploadQueryImage(ctx context.Context, username string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	return "queries/test/key.jpg", nil
}

func (m *mockQueryImages) WaitForCleanup(ctx context.Context) error { return nil }

type mockAudit struct {
	mu        sync.Mutex
	published []*domain.QueryLogEntry
}

func (m *mockAudit) Publish(ctx context.Context, entry *domain.QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, entry)
	return nil
}

type mockOutfits struct {
	mu  sync.Mutex
	req *GenerateOutfitsReq
	res *GenerateOutfitsRes
	err error
}

func (m *mockOutfits) GenerateOutfits(ctx context.Context, req *GenerateOutfitsReq) (*GenerateOutfitsRes, error) {
	m.mu.Lock()
	m.req = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.res != nil {
		return m.res, nil
	}
	return &GenerateOutfitsRes{Outfits: []domain.OutfitBundle{}}, nil
}

func testSearchCfg() *cfg.SearchCfg {
	return &cfg.SearchCfg{
		DefaultTopK:    6,
		MaxTopK:        50,
		MaxConcurrent:  4,
		RequestTimeout: 5 * time.Second,
		MaxOutfits:     3,
		CatalogLimit:   20,
	}
}

func newTestSearchService(backend SimilarityBackend, outfits OutfitUC) (*SearchService, *mockQueryLog, *mockQueryImages, *mockAudit) {
	queryLog := &mockQueryLog{}
	queryImages := &mockQueryImages{}
	audit := &mockAudit{}

	svc := NewSearchService(
		backend,
		NewDemoBackend(),
		&stubDecoder{},
		outfits,
		queryLog,
		queryImages,
		audit,
		testSearchCfg(),
		nopLogger{},
	)
	return svc, queryLog, queryImages, audit
}

func TestSearchSimilar_RanksAndScores(t *testing.T) {
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 0, Meta: domain.Metadata{ProductID: 1, Category: "tops"}},
		{Row: 1, Distance: 1, Meta: domain.Metadata{ProductID: 2, Category: "bottoms"}},
		{Row: 2, Distance: 2, Meta: domain.Metadata{ProductID: 3, Category: "shoes"}},
	}}
	svc, _, _, _ := newTestSearchService(backend, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 3, "", "", false))
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	// точное совпадение: единичная близость и максимальная уверенность
	assert.Equal(t, int64(1), res.Results[0].ProductID)
	assert.InDelta(t, 1.0, res.Results[0].SimilarityScore, 1e-9)
	assert.Equal(t, 100, res.Results[0].Confidence)
	assert.Equal(t, 1, res.Results[0].Rank)

	assert.InDelta(t, 0.5, res.Results[1].SimilarityScore, 1e-9)
	assert.Equal(t, 50, res.Results[1].Confidence)
	assert.Equal(t, 2, res.Results[1].Rank)

	assert.InDelta(t, 0.0, res.Results[2].SimilarityScore, 1e-9)
	assert.Equal(t, 0, res.Results[2].Confidence)

	for _, r := range res.Results {
		assert.GreaterOrEqual(t, r.SimilarityScore, 0.0)
		assert.LessOrEqual(t, r.SimilarityScore, 1.0)
		assert.False(t, r.Synthetic)
	}
	assert.NotEmpty(t, res.QueryID)
	assert.False(t, res.Demo)
}

func TestSearchSimilar_ScoreClamping(t *testing.T) {
	// дистанция > 2 возможна только из-за численного шума, оценка не
	// должна уходить в минус
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 2.3, Meta: domain.Metadata{ProductID: 1}},
	}}
	svc, _, _, _ := newTestSearchService(backend, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 1, "", "", false))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 0.0, res.Results[0].SimilarityScore)
	assert.Equal(t, 0, res.Results[0].Confidence)
}

func TestSearchSimilar_CategoryPostFilter(t *testing.T) {
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 0.1, Meta: domain.Metadata{ProductID: 1, Category: "tops"}},
		{Row: 1, Distance: 0.2, Meta: domain.Metadata{ProductID: 2, Category: "bottoms"}},
		{Row: 2, Distance: 0.3, Meta: domain.Metadata{ProductID: 3, Category: "Tops"}},
	}}
	svc, _, _, _ := newTestSearchService(backend, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 3, "TOPS", "", false))
	require.NoError(t, err)
	require.Len(t, res.Results, 2)

	// фильтр регистронезависимый, ранги перенумерованы после фильтра
	assert.Equal(t, int64(1), res.Results[0].ProductID)
	assert.Equal(t, 1, res.Results[0].Rank)
	assert.Equal(t, int64(3), res.Results[1].ProductID)
	assert.Equal(t, 2, res.Results[1].Rank)
}

func TestSearchSimilar_Validation(t *testing.T) {
	svc, _, _, _ := newTestSearchService(&stubBackend{}, &mockOutfits{})

	_, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq(nil, 3, "", "", false))
	assert.ErrorIs(t, err, e.ErrNoImage)

	_, err = svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), -1, "", "", false))
	assert.ErrorIs(t, err, e.ErrInvalidTopK)
}

func TestSearchSimilar_DefaultTopK(t *testing.T) {
	hits := make([]RawHit, 10)
	for i := range hits {
		hits[i] = RawHit{Row: i, Distance: float32(i) * 0.1, Meta: domain.Metadata{ProductID: int64(i + 1)}}
	}
	svc, _, _, _ := newTestSearchService(&stubBackend{hits: hits}, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 0, "", "", false))
	require.NoError(t, err)
	assert.Len(t, res.Results, 6) // DefaultTopK
}

func TestSearchSimilar_InvalidImage(t *testing.T) {
	svc, _, _, _ := newTestSearchService(&stubBackend{}, &mockOutfits{})
	svc.decoder = &stubDecoder{err: e.ErrInvalidImage}

	_, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("not an image"), 3, "", "", false))
	assert.ErrorIs(t, err, e.ErrInvalidImage)
}

func TestSearchSimilar_EmbeddingUnavailable(t *testing.T) {
	svc, queryLog, _, _ := newTestSearchService(NewUnavailableBackend(), &mockOutfits{})

	_, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 3, "", "", false))
	assert.ErrorIs(t, err, e.ErrEmbeddingUnavailable)

	// ошибка явная, сфабрикованной выдачи и записей журнала нет
	require.NoError(t, svc.WaitForAudit(context.Background()))
	assert.Zero(t, queryLog.count())
}

func TestSearchSimilar_DemoMode(t *testing.T) {
	svc, queryLog, images, audit := newTestSearchService(&stubBackend{}, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 3, "", "", true))
	require.NoError(t, err)

	assert.True(t, res.Demo)
	require.NotEmpty(t, res.Results)
	for _, r := range res.Results {
		assert.True(t, r.Synthetic)
	}

	// демо-выдача не журналируется
	require.NoError(t, svc.WaitForAudit(context.Background()))
	assert.Zero(t, queryLog.count())
	assert.Zero(t, images.uploads)
	assert.Empty(t, audit.published)
}

func TestSearchSimilar_CanceledRequestSkipsAudit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &stubBackend{
		hits: []RawHit{
			{Row: 0, Distance: 0.2, Meta: domain.Metadata{ProductID: 42, Category: "tops"}},
		},
		onSearch: cancel, // клиент ушёл, пока поиск выполнялся
	}
	svc, queryLog, images, audit := newTestSearchService(backend, &mockOutfits{})

	res, err := svc.SearchSimilar(ctx, NewSearchSimilarReq([]byte("img"), 1, "", "alice", false))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	// частичный результат отменённого запроса в журнал не попадает
	require.NoError(t, svc.WaitForAudit(context.Background()))
	assert.Zero(t, queryLog.count())
	assert.Zero(t, images.uploads)
	assert.Empty(t, audit.published)
}

func TestSearchSimilar_AuditRecorded(t *testing.T) {
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 0.2, Meta: domain.Metadata{ProductID: 42, Category: "tops"}},
	}}
	svc, queryLog, images, audit := newTestSearchService(backend, &mockOutfits{})

	res, err := svc.SearchSimilar(context.Background(), NewSearchSimilarReq([]byte("img"), 1, "", "alice", false))
	require.NoError(t, err)
	require.NoError(t, svc.WaitForAudit(context.Background()))

	require.Equal(t, 1, queryLog.count())
	entry := queryLog.entries[0]
	assert.Equal(t, res.QueryID, entry.QueryID)
	assert.Equal(t, "alice", entry.Username)
	assert.Equal(t, "queries/test/key.jpg", entry.UploadedFileRef)
	require.Len(t, entry.Results, 1)
	assert.Equal(t, int64(42), entry.Results[0].ProductID)

	assert.Equal(t, 1, images.uploads)
	require.Len(t, audit.published, 1)
	assert.Equal(t, res.QueryID, audit.published[0].QueryID)
}

func TestRealBackend_ExactMatch(t *testing.T) {
	catalog := index.NewCatalog()

	flat, err := index.NewFlatIndex(4)
	require.NoError(t, err)
	require.NoError(t, flat.Add([][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}, 0))
	meta := index.NewMetadataStore([]domain.Metadata{
		{ProductID: 1, Name: "Shirt", Category: "tops"},
		{ProductID: 2, Name: "Jeans", Category: "bottoms"},
	})
	pair, err := index.NewPair(flat, meta)
	require.NoError(t, err)
	catalog.Publish(pair)

	provider := &stubProvider{vector: []float32{0, 1, 0, 0}}
	backend := NewRealBackend(provider, catalog)

	hits, err := backend.Search(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, int64(2), hits[0].Meta.ProductID)
	assert.InDelta(t, 0.0, float64(hits[0].Distance), 1e-6)
}

func TestRealBackend_IndexNotReady(t *testing.T) {
	backend := NewRealBackend(&stubProvider{vector: []float32{1, 0, 0, 0}}, index.NewCatalog())

	_, err := backend.Search(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 2)
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestRealBackend_DenormalizedVector(t *testing.T) {
	catalog := index.NewCatalog()
	flat, err := index.NewFlatIndex(4)
	require.NoError(t, err)
	require.NoError(t, flat.Add([][]float32{{1, 0, 0, 0}}, 0))
	pair, err := index.NewPair(flat, index.NewMetadataStore([]domain.Metadata{{ProductID: 1}}))
	require.NoError(t, err)
	catalog.Publish(pair)

	backend := NewRealBackend(&stubProvider{vector: []float32{3, 0, 0, 0}}, catalog)

	_, err = backend.Search(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 2)
	assert.ErrorIs(t, err, e.ErrEmbeddingUnavailable)
}

func TestAnalyzeAndRecommend_InheritsConfidence(t *testing.T) {
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 0.4, Meta: domain.Metadata{ProductID: 5, Category: "tops"}},
	}}
	outfits := &mockOutfits{res: &GenerateOutfitsRes{Outfits: []domain.OutfitBundle{
		{ID: "o1", BaseProductID: 5},
	}}}
	svc, _, _, _ := newTestSearchService(backend, outfits)

	res, err := svc.AnalyzeAndRecommend(context.Background(), NewAnalyzeReq([]byte("img"), 3, 2, "", false))
	require.NoError(t, err)

	require.Len(t, res.SimilarProducts, 1)
	require.Len(t, res.OutfitRecommendations, 1)

	// комплектам передаётся уверенность лучшего совпадения
	require.NotNil(t, outfits.req)
	assert.Equal(t, int64(5), outfits.req.BaseProductID)
	assert.Equal(t, res.SimilarProducts[0].Confidence, outfits.req.InheritedConfidence)
	assert.Equal(t, 2, outfits.req.MaxOutfits)
}

func TestAnalyzeAndRecommend_OutfitFailureIsNotFatal(t *testing.T) {
	backend := &stubBackend{hits: []RawHit{
		{Row: 0, Distance: 0.4, Meta: domain.Metadata{ProductID: 5, Category: "tops"}},
	}}
	outfits := &mockOutfits{err: e.ErrProductNotFound}
	svc, _, _, _ := newTestSearchService(backend, outfits)

	res, err := svc.AnalyzeAndRecommend(context.Background(), NewAnalyzeReq([]byte("img"), 3, 2, "", false))
	require.NoError(t, err)
	assert.Len(t, res.SimilarProducts, 1)
	assert.Empty(t, res.OutfitRecommendations)
}

// stubProvider отдаёт фиксированный вектор вместо обращения к модели.
type stubProvider struct {
	vector []float32
	err    error
}

func (p *stubProvider) EmbedImage(ctx context.Context, img image.Image) (*EmbedRes, error) {
	if p.err != nil {
		return nil, p.err
	}
	return NewEmbedRes(p.vector, "clip-vit-b32"), nil
}

func (p *stubProvider) EmbedText(ctx context.Context, text string) (*EmbedRes, error) {
	if p.err != nil {
		return nil, p.err
	}
	return NewEmbedRes(p.vector, "clip-vit-b32"), nil
}
