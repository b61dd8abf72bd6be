package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	idx "github.com/manvue/go-backend/internal/index"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbeddingRepo отдаёт заранее подготовленные страницы выгрузки
// и записывает upsert-ы.
type mockEmbeddingRepo struct {
	batches   [][]domain.Embedding
	upserted  []domain.Embedding
	upsertErr error
}

func (m *mockEmbeddingRepo) Upsert(ctx context.Context, vectors []domain.Embedding) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, vectors...)
	return nil
}

func (m *mockEmbeddingRepo) ScrollAll(ctx context.Context, fn func(batch []domain.Embedding) error) error {
	for _, batch := range m.batches {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

type versionUpsert struct {
	productID    int64
	modelVersion string
}

type mockVersionRepo struct {
	upserts []versionUpsert
}

func (m *mockVersionRepo) Upsert(ctx context.Context, productID int64, modelVersion string) error {
	m.upserts = append(m.upserts, versionUpsert{productID: productID, modelVersion: modelVersion})
	return nil
}

// ingestTx — pgx.Tx-заглушка, фиксирующая исход транзакции.
type ingestTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *ingestTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *ingestTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

// mockTransactional подменяет пул соединений для менеджера транзакций.
type mockTransactional struct {
	tx *ingestTx
}

func (m *mockTransactional) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	m.tx = &ingestTx{}
	return m.tx, nil
}

func testEmbedding(id string, productID int64, imagePath string, vector []float32) domain.Embedding {
	return *domain.NewEmbedding(id, vector, domain.NewPayload(productID, imagePath, "clip-vit-b32"))
}

func testIndexCfg(t *testing.T) *cfg.IndexCfg {
	dir := t.TempDir()
	return &cfg.IndexCfg{
		IndexPath:    filepath.Join(dir, "fashion.index"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
		VectorSize:   4,
	}
}

type ingestFixture struct {
	svc      *IngestService
	store    *idx.Catalog
	repo     *mockEmbeddingRepo
	versions *mockVersionRepo
	cache    *mockCache
	db       *mockTransactional
	indexCfg *cfg.IndexCfg
}

func newIngestFixture(t *testing.T, repo *mockEmbeddingRepo, catalog *mockCatalog) *ingestFixture {
	f := &ingestFixture{
		store:    idx.NewCatalog(),
		repo:     repo,
		versions: &mockVersionRepo{},
		cache:    &mockCache{},
		db:       &mockTransactional{},
		indexCfg: testIndexCfg(t),
	}
	f.svc = NewIngestService(
		catalog,
		repo,
		f.versions,
		&stubProvider{vector: []float32{1, 0, 0, 0}},
		&stubDecoder{},
		f.db,
		f.store,
		f.cache,
		&cfg.MLServiceCfg{MaxConcurrent: 2, MaxRetries: 1, RequestTimeout: time.Second},
		f.indexCfg,
		nopLogger{},
	)
	return f
}

func publishSeedPair(t *testing.T, store *idx.Catalog) {
	flat, err := idx.NewFlatIndex(4)
	require.NoError(t, err)
	require.NoError(t, flat.Add([][]float32{{0, 1, 0, 0}}, 0))
	pair, err := idx.NewPair(flat, idx.NewMetadataStore([]domain.Metadata{{ProductID: 9, Name: "Seed"}}))
	require.NoError(t, err)
	store.Publish(pair)
}

func TestIngestProduct_HappyPath(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Oxford Shirt", CategoryName: "tops", Price: 4599, InStock: true})

	f := newIngestFixture(t, &mockEmbeddingRepo{}, catalog)
	publishSeedPair(t, f.store)

	images := []ProductImage{
		*NewProductImage([]byte("front"), "image/jpeg", 5, "front.jpg"),
		*NewProductImage([]byte("back"), "image/jpeg", 4, "back.jpg"),
	}
	require.NoError(t, f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images)))

	// версия модели зафиксирована и транзакция завершена фиксацией
	require.Len(t, f.versions.upserts, 1)
	assert.Equal(t, versionUpsert{productID: 1, modelVersion: "clip-vit-b32"}, f.versions.upserts[0])
	require.NotNil(t, f.db.tx)
	assert.True(t, f.db.tx.committed)
	assert.False(t, f.db.tx.rolledBack)

	// ID точек детерминированы по (product_id, имя файла)
	require.Len(t, f.repo.upserted, 2)
	wantID := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%d/%s", 1, "front.jpg")).String()
	assert.Equal(t, wantID, f.repo.upserted[0].ID)
	assert.Equal(t, int64(1), f.repo.upserted[0].ProductID())
	assert.Equal(t, "back.jpg", f.repo.upserted[1].ImagePath())

	// кэш товара инвалидирован
	assert.Equal(t, []int64{1}, f.cache.deleted)

	// живая пара выросла на две строки и осталась выровненной
	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3, pair.Index.Size())
	require.Equal(t, 3, pair.Meta.Len())
	row := pair.Meta.Get(1)
	require.NotNil(t, row)
	assert.Equal(t, int64(1), row.ProductID)
	assert.Equal(t, "front.jpg", row.Filename)
	assert.Equal(t, "Oxford Shirt", row.Name)

	// дописанная пара сохранена на диск
	flat, err := idx.LoadFlatIndex(f.indexCfg.IndexPath, f.indexCfg.VectorSize)
	require.NoError(t, err)
	assert.Equal(t, 3, flat.Size())
}

func TestIngestProduct_RepeatedIngestKeepsIDs(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Oxford Shirt", CategoryName: "tops", InStock: true})

	f := newIngestFixture(t, &mockEmbeddingRepo{}, catalog)
	images := []ProductImage{*NewProductImage([]byte("front"), "image/jpeg", 5, "front.jpg")}

	require.NoError(t, f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images)))
	require.NoError(t, f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images)))

	// повторная загрузка перезаписывает точку, а не плодит дубликат
	require.Len(t, f.repo.upserted, 2)
	assert.Equal(t, f.repo.upserted[0].ID, f.repo.upserted[1].ID)
}

func TestIngestProduct_UpsertFailureRollsBack(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Oxford Shirt", CategoryName: "tops", InStock: true})

	repo := &mockEmbeddingRepo{upsertErr: fmt.Errorf("qdrant down")}
	f := newIngestFixture(t, repo, catalog)
	publishSeedPair(t, f.store)

	images := []ProductImage{*NewProductImage([]byte("front"), "image/jpeg", 5, "front.jpg")}
	err := f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images))
	require.Error(t, err)

	require.NotNil(t, f.db.tx)
	assert.True(t, f.db.tx.rolledBack)
	assert.False(t, f.db.tx.committed)
	assert.Empty(t, f.cache.deleted)

	// выдача не тронута
	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, pair.Index.Size())
}

func TestIngestProduct_DimMismatchBeforeTransaction(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Oxford Shirt", CategoryName: "tops", InStock: true})

	f := newIngestFixture(t, &mockEmbeddingRepo{}, catalog)
	f.svc.provider = &stubProvider{vector: []float32{1, 0}} // не совпадает с размерностью индекса

	images := []ProductImage{*NewProductImage([]byte("front"), "image/jpeg", 5, "front.jpg")}
	err := f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images))
	assert.ErrorIs(t, err, e.ErrVectorDimMismatch)

	// до транзакции и хранилищ дело не дошло
	assert.Nil(t, f.db.tx)
	assert.Empty(t, f.repo.upserted)
	assert.Empty(t, f.versions.upserts)
}

func TestIngestProduct_NoLivePairYet(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Oxford Shirt", CategoryName: "tops", InStock: true})

	f := newIngestFixture(t, &mockEmbeddingRepo{}, catalog)

	images := []ProductImage{*NewProductImage([]byte("front"), "image/jpeg", 5, "front.jpg")}
	require.NoError(t, f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, images)))

	// строки подтянет ближайший RebuildIndex, публикации не было
	assert.False(t, f.store.Ready())
	require.NotNil(t, f.db.tx)
	assert.True(t, f.db.tx.committed)
}

func TestIngestProduct_NoImages(t *testing.T) {
	f := newIngestFixture(t, &mockEmbeddingRepo{}, newMockCatalog())

	err := f.svc.IngestProduct(context.Background(), NewIngestProductReq(1, nil))
	assert.ErrorIs(t, err, e.ErrNoImage)
}

func TestIngestProduct_UnknownProduct(t *testing.T) {
	f := newIngestFixture(t, &mockEmbeddingRepo{}, newMockCatalog())

	images := []ProductImage{*NewProductImage([]byte("img"), "image/jpeg", 3, "front.jpg")}
	err := f.svc.IngestProduct(context.Background(), NewIngestProductReq(404, images))
	assert.ErrorIs(t, err, e.ErrProductNotFound)
}

func TestRebuildIndex_BuildsAlignedPair(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Shirt", CategoryName: "tops", Price: 4599, InStock: true})
	catalog.addProduct(ProductInfo{ID: 2, Name: "Jeans", CategoryName: "bottoms", Price: 6999, InStock: true})

	repo := &mockEmbeddingRepo{batches: [][]domain.Embedding{
		{
			testEmbedding("a", 1, "1/front.jpg", []float32{1, 0, 0, 0}),
			testEmbedding("b", 2, "2/front.jpg", []float32{0, 1, 0, 0}),
		},
		{
			testEmbedding("c", 1, "1/back.jpg", []float32{0, 0, 1, 0}),
		},
	}}
	f := newIngestFixture(t, repo, catalog)

	res, err := f.svc.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Zero(t, res.Skipped)

	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3, pair.Index.Size())
	assert.Equal(t, 3, pair.Meta.Len())

	// метаданные выровнены со строками индекса
	row := pair.Meta.Get(1)
	require.NotNil(t, row)
	assert.Equal(t, int64(2), row.ProductID)
	assert.Equal(t, "Jeans", row.Name)
	assert.Equal(t, "2/front.jpg", row.Filename)
}

func TestRebuildIndex_SkipsBadRows(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Shirt", CategoryName: "tops", InStock: true})

	repo := &mockEmbeddingRepo{batches: [][]domain.Embedding{
		{
			testEmbedding("ok", 1, "1/front.jpg", []float32{1, 0, 0, 0}),
			testEmbedding("wrong-dim", 1, "1/side.jpg", []float32{1, 0}),
			testEmbedding("zero-norm", 1, "1/blur.jpg", []float32{0, 0, 0, 0}),
			testEmbedding("orphan", 777, "777/gone.jpg", []float32{0, 1, 0, 0}),
		},
	}}
	f := newIngestFixture(t, repo, catalog)

	res, err := f.svc.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, 3, res.Skipped)

	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, pair.Index.Size())
}

func TestRebuildIndex_PersistsPair(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Shirt", CategoryName: "tops", InStock: true})

	repo := &mockEmbeddingRepo{batches: [][]domain.Embedding{
		{testEmbedding("a", 1, "1/front.jpg", []float32{1, 0, 0, 0})},
	}}
	f := newIngestFixture(t, repo, catalog)

	_, err := f.svc.RebuildIndex(context.Background())
	require.NoError(t, err)

	flat, err := idx.LoadFlatIndex(f.indexCfg.IndexPath, f.indexCfg.VectorSize)
	require.NoError(t, err)
	assert.Equal(t, 1, flat.Size())

	meta, err := idx.LoadMetadataStore(f.indexCfg.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Len())
}

func TestLoadOrRebuild_PrefersDisk(t *testing.T) {
	// выгрузка пустая — при удачной загрузке с диска до неё не дойдёт
	f := newIngestFixture(t, &mockEmbeddingRepo{}, newMockCatalog())

	flat, err := idx.NewFlatIndex(f.indexCfg.VectorSize)
	require.NoError(t, err)
	require.NoError(t, flat.Add([][]float32{{1, 0, 0, 0}}, 0))
	require.NoError(t, flat.Save(f.indexCfg.IndexPath))
	meta := idx.NewMetadataStore([]domain.Metadata{{ProductID: 7, Name: "Boots"}})
	require.NoError(t, meta.Save(f.indexCfg.MetadataPath))

	require.NoError(t, f.svc.LoadOrRebuild(context.Background()))

	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, pair.Index.Size())
	assert.Equal(t, int64(7), pair.Meta.Get(0).ProductID)
}

func TestLoadOrRebuild_FallsBackToRebuild(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addProduct(ProductInfo{ID: 1, Name: "Shirt", CategoryName: "tops", InStock: true})

	repo := &mockEmbeddingRepo{batches: [][]domain.Embedding{
		{testEmbedding("a", 1, "1/front.jpg", []float32{1, 0, 0, 0})},
	}}
	f := newIngestFixture(t, repo, catalog)

	// файлов на диске нет — единственный путь к готовности через перестроение
	require.NoError(t, f.svc.LoadOrRebuild(context.Background()))

	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, pair.Index.Size())
}

func TestRebuildIndex_EmptyStorage(t *testing.T) {
	f := newIngestFixture(t, &mockEmbeddingRepo{}, newMockCatalog())

	res, err := f.svc.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Zero(t, res.Skipped)

	// пустая пара тоже публикуется: каталог без товаров — валидное состояние
	pair, err := f.store.Snapshot()
	require.NoError(t, err)
	assert.Zero(t, pair.Index.Size())
}
