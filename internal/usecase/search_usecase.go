package usecase

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
	"golang.org/x/sync/semaphore"
)

// SearchService реализует визуальный поиск: декодирование изображения,
// векторизация, запрос к индексу, разрешение метаданных и ранжирование.
// Состояние между запросами не разделяется, кроме read-mostly пары
// (индекс, метаданные) внутри бэкенда.
type SearchService struct {
	backend      SimilarityBackend
	demoBackend  SimilarityBackend
	decoder      ImageDecoder
	outfits      OutfitUC
	queryLogRepo QueryLogRepository
	queryImages  QueryImageInfra
	audit        AuditProducer
	cfg          *cfg.SearchCfg
	logger       logger.Logger

	// sem ограничивает параллельные embed+search: всплеск загрузок не
	// должен исчерпать ресурсы под ML-вызовы.
	sem     *semaphore.Weighted
	auditWg sync.WaitGroup
}

func NewSearchService(
	backend SimilarityBackend,
	demoBackend SimilarityBackend,
	decoder ImageDecoder,
	outfits OutfitUC,
	queryLogRepo QueryLogRepository,
	queryImages QueryImageInfra,
	audit AuditProducer,
	cfg *cfg.SearchCfg,
	logger logger.Logger,
) *SearchService {
	return &SearchService{
		backend:      backend,
		demoBackend:  demoBackend,
		decoder:      decoder,
		outfits:      outfits,
		queryLogRepo: queryLogRepo,
		queryImages:  queryImages,
		audit:        audit,
		cfg:          cfg,
		logger:       logger,
		sem:          semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// SearchSimilar возвращает ранжированный список визуально похожих товаров.
func (s *SearchService) SearchSimilar(ctx context.Context, req *SearchSimilarReq) (*SearchSimilarRes, error) {
	const op = "SearchService.SearchSimilar"

	topK, err := s.normalizeTopK(req.TopK)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(req.ImageData) == 0 {
		return nil, e.Wrap(op, e.ErrNoImage)
	}

	// Таймаут по умолчанию: векторизация на слабом железе может быть долгой,
	// явный дедлайн вызывающей стороны имеет приоритет.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	img, err := s.decoder.DecodeRGB(req.ImageData)
	if err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrInvalidImage))
	}

	backend := s.backend
	if req.Demo && s.demoBackend != nil {
		backend = s.demoBackend
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, e.Wrap(op, err)
	}
	hits, err := backend.Search(ctx, img, topK)
	s.sem.Release(1)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := s.rankHits(hits, req.CategoryFilter, backend.Synthetic())

	res := &SearchSimilarRes{
		QueryID: uuid.NewString(),
		Results: results,
		Demo:    backend.Synthetic(),
	}

	// Отменённый запрос не журналируется: частичный результат только
	// замусорил бы аналитику. Демо-выдача тоже не попадает в журнал.
	if ctx.Err() == nil && !backend.Synthetic() {
		s.auditAsync(res.QueryID, req.Username, req.ImageData, results)
	}

	return res, nil
}

// AnalyzeAndRecommend — составная операция: похожие товары плюс комплекты
// вокруг лучшего совпадения.
func (s *SearchService) AnalyzeAndRecommend(ctx context.Context, req *AnalyzeReq) (*AnalyzeRes, error) {
	const op = "SearchService.AnalyzeAndRecommend"

	start := time.Now()

	searchRes, err := s.SearchSimilar(ctx, NewSearchSimilarReq(req.ImageData, req.MaxProducts, "", req.Username, req.Demo))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var outfitBundles []domain.OutfitBundle
	if len(searchRes.Results) > 0 && !searchRes.Demo {
		top := searchRes.Results[0]
		outfitsRes, err := s.outfits.GenerateOutfits(ctx, NewGenerateOutfitsReq(top.ProductID, req.MaxOutfits, top.Confidence))
		if err != nil {
			// Комплекты — дополнение к поиску: их отказ не должен
			// хоронить основной результат.
			s.logger.Warnf("outfit generation failed for product %d: %v", top.ProductID, e.Wrap(op, err))
		} else {
			outfitBundles = outfitsRes.Outfits
		}
	}

	return &AnalyzeRes{
		QueryID:               searchRes.QueryID,
		SimilarProducts:       searchRes.Results,
		OutfitRecommendations: outfitBundles,
		ProcessingTime:        time.Since(start),
		Demo:                  searchRes.Demo,
	}, nil
}

// WaitForAudit дожидается фоновых записей журнала при останове приложения.
func (s *SearchService) WaitForAudit(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.auditWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rankHits переводит расстояния в оценки и применяет пост-фильтр категории.
// Фильтр именно пост: предварительное сужение кандидатов исказило бы
// поиск ближайших соседей.
func (s *SearchService) rankHits(hits []RawHit, categoryFilter string, synthetic bool) []SearchResult {
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if categoryFilter != "" && !strings.EqualFold(hit.Meta.Category, categoryFilter) {
			continue
		}

		similarity, confidence := scoreFromDistance(hit.Distance)
		results = append(results, SearchResult{
			ProductID:       hit.Meta.ProductID,
			Rank:            len(results) + 1,
			SimilarityScore: similarity,
			Confidence:      confidence,
			Metadata:        hit.Meta,
			Synthetic:       synthetic,
		})
	}

	return results
}

// scoreFromDistance переводит квадрат L2-расстояния единичных векторов в
// близость: d² = 2 - 2*cos(θ), откуда similarity = 1 - d²/2 = cos(θ).
func scoreFromDistance(d float32) (float64, int) {
	similarity := 1 - float64(d)/2
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}

	confidence := int(math.Round(similarity * 100))
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return similarity, confidence
}

func (s *SearchService) normalizeTopK(topK int) (int, error) {
	if topK < 0 {
		return 0, e.ErrInvalidTopK
	}
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}
	return topK, nil
}

// auditAsync пишет журнал запроса в фоне: снимок изображения в blob-хранилище,
// запись в БД и событие в поток аналитики. Любая ошибка здесь логируется и
// никогда не превращается в ошибку поиска.
func (s *SearchService) auditAsync(queryID, username string, imageData []byte, results []SearchResult) {
	const (
		op           = "SearchService.auditAsync"
		auditTimeout = 10 * time.Second
	)

	entry := &domain.QueryLogEntry{
		QueryID:   queryID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
		Results:   make([]domain.LoggedResult, 0, len(results)),
	}
	for _, r := range results {
		entry.Results = append(entry.Results, domain.LoggedResult{
			ProductID:       r.ProductID,
			Rank:            r.Rank,
			SimilarityScore: r.SimilarityScore,
			Confidence:      r.Confidence,
		})
	}

	s.auditWg.Add(1)
	go func() {
		defer s.auditWg.Done()

		bgCtx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()

		fileRef, err := s.queryImages.UploadQueryImage(bgCtx, username, imageData)
		if err != nil {
			s.logger.Warnf("failed to store query image: %v", e.Wrap(op, err))
		}
		entry.UploadedFileRef = fileRef

		if err := s.queryLogRepo.Append(bgCtx, entry); err != nil {
			s.logger.Warnf("failed to append query log: %v", e.Wrap(op, err))
		}

		if err := s.audit.Publish(bgCtx, entry); err != nil {
			s.logger.Warnf("failed to publish query event: %v", e.Wrap(op, err))
		}
	}()
}
