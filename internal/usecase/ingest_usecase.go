package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	idx "github.com/manvue/go-backend/internal/index"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
	"github.com/manvue/go-backend/pkg/tr"
	"github.com/manvue/go-backend/pkg/vec"
	"golang.org/x/sync/errgroup"
)

const normEps = 1e-3

// IngestService отвечает за наполнение векторного хранилища и перестроение
// поисковой пары (индекс, метаданные).
type IngestService struct {
	catalog       CatalogRepository
	embeddingRepo EmbeddingRepository
	versionRepo   EmbeddingVersionRepository
	provider      EmbeddingProvider
	decoder       ImageDecoder
	dbPool        transaction.Transactional
	store         *idx.Catalog
	cacheRepo     CacheRepository
	mlCfg         *cfg.MLServiceCfg
	indexCfg      *cfg.IndexCfg
	logger        logger.Logger

	// rebuildMu сериализует перестроения: два конкурентных Rebuild
	// только впустую гоняли бы выгрузку эмбеддингов.
	rebuildMu sync.Mutex
}

func NewIngestService(
	catalog CatalogRepository,
	embeddingRepo EmbeddingRepository,
	versionRepo EmbeddingVersionRepository,
	provider EmbeddingProvider,
	decoder ImageDecoder,
	dbPool transaction.Transactional,
	store *idx.Catalog,
	cacheRepo CacheRepository,
	mlCfg *cfg.MLServiceCfg,
	indexCfg *cfg.IndexCfg,
	logger logger.Logger,
) *IngestService {
	return &IngestService{
		catalog:       catalog,
		embeddingRepo: embeddingRepo,
		versionRepo:   versionRepo,
		provider:      provider,
		decoder:       decoder,
		dbPool:        dbPool,
		store:         store,
		cacheRepo:     cacheRepo,
		mlCfg:         mlCfg,
		indexCfg:      indexCfg,
		logger:        logger,
	}
}

// IngestProduct векторизует изображения существующего товара и сохраняет
// эмбеддинги. В поисковую выдачу товар попадёт после ближайшего RebuildIndex.
func (s *IngestService) IngestProduct(ctx context.Context, req *IngestProductReq) error {
	const op = "IngestService.IngestProduct"

	if len(req.Images) == 0 {
		return e.Wrap(op, e.ErrNoImage)
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return e.Wrap(op, err)
	}

	embedded, err := s.embedImages(ctx, req.Images)
	if err != nil {
		return e.Wrap(op, err)
	}
	if len(embedded) == 0 {
		return e.Wrap(op, e.ErrEmptyVectors)
	}

	embeddings := make([]domain.Embedding, 0, len(embedded))
	modelVersion := ""
	for i, res := range embedded {
		if len(res.Vector) != s.indexCfg.VectorSize {
			return e.Wrap(op, e.ErrVectorDimMismatch)
		}
		modelVersion = res.ModelVersion

		// Детерминированный ID: повторная загрузка того же изображения
		// перезаписывает точку, а не плодит дубликаты.
		id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%d/%s", product.ID, req.Images[i].Name))
		payload := domain.NewPayload(product.ID, req.Images[i].Name, res.ModelVersion)
		embeddings = append(embeddings, *domain.NewEmbedding(id.String(), res.Vector, payload))
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, s.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = tr.CtxWithTx(ctx, tx.Transaction())

	err = s.versionRepo.Upsert(ctx, product.ID, modelVersion)
	if err != nil {
		return e.Wrap(op, err)
	}

	err = s.embeddingRepo.Upsert(ctx, embeddings)
	if err != nil {
		return e.Wrap(op, err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := s.cacheRepo.DeleteProducts(ctx, []int64{product.ID}); err != nil {
		s.logger.Warnf("Failed to invalidate product cache: %v", e.Wrap(op, err))
	}

	s.appendToLivePair(product, embeddings)

	return nil
}

// appendToLivePair дозаписывает свежие эмбеддинги в опубликованную пару,
// чтобы товар попал в выдачу без полного перестроения. Опубликованный
// экземпляр не мутируется: публикуется копия с дописанными строками.
func (s *IngestService) appendToLivePair(product *ProductInfo, embeddings []domain.Embedding) {
	const op = "IngestService.appendToLivePair"

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	pair, err := s.store.Snapshot()
	if err != nil {
		// Пары ещё нет: строки подтянет ближайший RebuildIndex.
		return
	}

	flat := pair.Index.Clone()
	meta := pair.Meta.Clone()

	vectors := make([][]float32, 0, len(embeddings))
	rows := make([]domain.Metadata, 0, len(embeddings))
	for _, emb := range embeddings {
		vectors = append(vectors, emb.Vector)
		rows = append(rows, domain.Metadata{
			Filename:    emb.ImagePath(),
			ProductID:   product.ID,
			Name:        product.Name,
			Category:    product.CategoryName,
			ArticleType: product.ArticleType,
			BaseColor:   product.BaseColor,
			Gender:      product.Gender,
			PriceCents:  product.Price,
		})
	}

	if err := flat.Add(vectors, flat.Size()); err != nil {
		s.logger.Warnf("append to live index failed, rows deferred to rebuild: %v", e.Wrap(op, err))
		return
	}
	meta.Append(rows...)

	newPair, err := idx.NewPair(flat, meta)
	if err != nil {
		s.logger.Warnf("append produced misaligned pair, rows deferred to rebuild: %v", e.Wrap(op, err))
		return
	}

	if err := flat.Save(s.indexCfg.IndexPath); err != nil {
		s.logger.Warnf("Failed to persist index: %v", e.Wrap(op, err))
	}
	if err := meta.Save(s.indexCfg.MetadataPath); err != nil {
		s.logger.Warnf("Failed to persist metadata: %v", e.Wrap(op, err))
	}

	s.store.Publish(newPair)
}

// RebuildIndex выгружает все эмбеддинги, собирает свежую пару
// (индекс, метаданные) и атомарно публикует её. Старая пара продолжает
// обслуживать поиск до момента публикации.
func (s *IngestService) RebuildIndex(ctx context.Context) (*RebuildIndexRes, error) {
	const op = "IngestService.RebuildIndex"

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()

	flat, err := idx.NewFlatIndex(s.indexCfg.VectorSize)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	meta := idx.NewMetadataStore(nil)

	skipped := 0
	err = s.embeddingRepo.ScrollAll(ctx, func(batch []domain.Embedding) error {
		rows, vectors, skip, err := s.resolveBatch(ctx, batch)
		if err != nil {
			return err
		}
		skipped += skip

		if len(vectors) == 0 {
			return nil
		}
		if err := flat.Add(vectors, flat.Size()); err != nil {
			return err
		}
		meta.Append(rows...)
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	pair, err := idx.NewPair(flat, meta)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Сбой сохранения на диск не отменяет перестроение: пара уже
	// консистентна в памяти, холодный старт просто перестроится заново.
	if err := flat.Save(s.indexCfg.IndexPath); err != nil {
		s.logger.Warnf("Failed to persist index: %v", e.Wrap(op, err))
	}
	if err := meta.Save(s.indexCfg.MetadataPath); err != nil {
		s.logger.Warnf("Failed to persist metadata: %v", e.Wrap(op, err))
	}

	s.store.Publish(pair)
	s.logger.Infof("index rebuilt: %d rows, %d skipped, took %s", flat.Size(), skipped, time.Since(start))

	return &RebuildIndexRes{
		Rows:    flat.Size(),
		Skipped: skipped,
		Took:    time.Since(start),
	}, nil
}

// LoadOrRebuild поднимает пару с диска, а при невозможности перестраивает
// её из векторного хранилища. Вызывается один раз на старте приложения.
func (s *IngestService) LoadOrRebuild(ctx context.Context) error {
	const op = "IngestService.LoadOrRebuild"

	flat, errIdx := idx.LoadFlatIndex(s.indexCfg.IndexPath, s.indexCfg.VectorSize)
	meta, errMeta := idx.LoadMetadataStore(s.indexCfg.MetadataPath)
	if errIdx == nil && errMeta == nil {
		pair, err := idx.NewPair(flat, meta)
		if err == nil {
			s.store.Publish(pair)
			s.logger.Infof("index loaded from disk: %d rows", flat.Size())
			return nil
		}
		s.logger.Warnf("persisted index and metadata misaligned, rebuilding: %v", e.Wrap(op, err))
	} else {
		s.logger.Warnf("persisted index unavailable, rebuilding: idx=%v meta=%v", errIdx, errMeta)
	}

	if _, err := s.RebuildIndex(ctx); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// resolveBatch сопоставляет страницу эмбеддингов с товарами каталога.
// Эмбеддинги с неверной размерностью, нулевой нормой или без товара
// пропускаются и учитываются в счётчике.
func (s *IngestService) resolveBatch(ctx context.Context, batch []domain.Embedding) ([]domain.Metadata, [][]float32, int, error) {
	ids := make([]int64, 0, len(batch))
	for _, emb := range batch {
		if id := emb.ProductID(); id > 0 {
			ids = append(ids, id)
		}
	}

	products := make(map[int64]ProductInfo, len(ids))
	if len(ids) > 0 {
		infos, err := s.catalog.GetProductsInfo(ctx, ids)
		if err != nil {
			return nil, nil, 0, err
		}
		for _, info := range infos {
			products[info.ID] = info
		}
	}

	rows := make([]domain.Metadata, 0, len(batch))
	vectors := make([][]float32, 0, len(batch))
	skipped := 0
	for _, emb := range batch {
		if len(emb.Vector) != s.indexCfg.VectorSize || !vec.IsNormalized(emb.Vector, normEps) {
			skipped++
			continue
		}

		info, ok := products[emb.ProductID()]
		if !ok {
			skipped++
			continue
		}

		rows = append(rows, domain.Metadata{
			Filename:    emb.ImagePath(),
			ProductID:   info.ID,
			Name:        info.Name,
			Category:    info.CategoryName,
			ArticleType: info.ArticleType,
			BaseColor:   info.BaseColor,
			Gender:      info.Gender,
			PriceCents:  info.Price,
		})
		vectors = append(vectors, emb.Vector)
	}

	return rows, vectors, skipped, nil
}

// embedImages векторизует изображения с ограниченным параллелизмом,
// сохраняя порядок результатов.
func (s *IngestService) embedImages(ctx context.Context, images []ProductImage) ([]EmbedRes, error) {
	results := make([]EmbedRes, len(images))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.mlCfg.MaxConcurrent)
	for i, img := range images {
		g.Go(func() error {
			decoded, err := s.decoder.DecodeRGB(bytes.Clone(img.Data))
			if err != nil {
				return e.Wrap(img.Name, e.Wrap(err.Error(), e.ErrInvalidImage))
			}

			res, err := s.provider.EmbedImage(gCtx, decoded)
			if err != nil {
				return err
			}

			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
