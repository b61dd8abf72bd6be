package usecase

import (
	"context"

	"github.com/manvue/go-backend/internal/domain"
)

type CatalogRepository interface {
	// GetProduct возвращает товар по ID или e.ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*ProductInfo, error)
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
	// GetByCategory возвращает товары категории; inStockOnly отсекает
	// позиции без остатков.
	GetByCategory(ctx context.Context, category string, inStockOnly bool, limit int) ([]ProductInfo, error)
}

type EmbeddingRepository interface {
	Upsert(ctx context.Context, vectors []domain.Embedding) error
	// ScrollAll постранично выгружает все эмбеддинги коллекции;
	// fn вызывается на каждую страницу, ошибка прерывает выгрузку.
	ScrollAll(ctx context.Context, fn func(batch []domain.Embedding) error) error
}

type EmbeddingVersionRepository interface {
	Upsert(ctx context.Context, productID int64, modelVersion string) error
}

type QueryLogRepository interface {
	// Append дописывает запись журнала запросов. Журнал append-only.
	Append(ctx context.Context, entry *domain.QueryLogEntry) error
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

type BlobRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Delete(ctx context.Context, key string) error
}
