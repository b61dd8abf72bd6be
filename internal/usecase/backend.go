package usecase

import (
	"context"
	"image"

	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/internal/index"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/vec"
)

// RawHit — сырое совпадение до перевода расстояния в оценку.
type RawHit struct {
	Row      int
	Distance float32 // квадрат L2-расстояния для единичных векторов
	Meta     domain.Metadata
}

// SimilarityBackend — стратегия выполнения поиска. Вместо булевых флагов
// доступности модели по всем вызовам — два варианта: RealBackend при
// загруженной модели и индексе, UnavailableBackend с явной ошибкой.
type SimilarityBackend interface {
	Search(ctx context.Context, img image.Image, topK int) ([]RawHit, error)
	Synthetic() bool
}

// RealBackend выполняет поиск через провайдер эмбеддингов и текущую
// версию пары (индекс, метаданные).
type RealBackend struct {
	provider EmbeddingProvider
	catalog  *index.Catalog
}

func NewRealBackend(provider EmbeddingProvider, catalog *index.Catalog) *RealBackend {
	return &RealBackend{
		provider: provider,
		catalog:  catalog,
	}
}

func (b *RealBackend) Synthetic() bool { return false }

func (b *RealBackend) Search(ctx context.Context, img image.Image, topK int) ([]RawHit, error) {
	const op = "RealBackend.Search"

	pair, err := b.catalog.Snapshot()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	emb, err := b.provider.EmbedImage(ctx, img)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Ранжирование по мусорному вектору бессмысленно — падаем громко.
	if len(emb.Vector) == 0 || !vec.IsNormalized(emb.Vector, 1e-3) {
		return nil, e.Wrap(op, e.ErrEmbeddingUnavailable)
	}

	dists, rows, err := pair.Index.Search(emb.Vector, topK)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	metas, err := pair.Meta.BulkGet(rows)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	hits := make([]RawHit, 0, len(rows))
	for i, row := range rows {
		hits = append(hits, RawHit{
			Row:      row,
			Distance: dists[i],
			Meta:     metas[i],
		})
	}

	return hits, nil
}

// UnavailableBackend — модель или индекс не поднялись; каждая попытка
// поиска возвращает e.ErrEmbeddingUnavailable вместо сфабрикованных данных.
type UnavailableBackend struct{}

func NewUnavailableBackend() *UnavailableBackend { return &UnavailableBackend{} }

func (b *UnavailableBackend) Synthetic() bool { return false }

func (b *UnavailableBackend) Search(ctx context.Context, img image.Image, topK int) ([]RawHit, error) {
	return nil, e.ErrEmbeddingUnavailable
}

// DemoBackend — синтетическая выдача для демо-режима. Используется
// исключительно по явному флагу запроса; результаты помечаются как
// синтетические на уровне сервиса.
type DemoBackend struct{}

func NewDemoBackend() *DemoBackend { return &DemoBackend{} }

func (b *DemoBackend) Synthetic() bool { return true }

var demoMetadata = []domain.Metadata{
	{Filename: "demo_0.jpg", ProductID: 1, Name: "Classic Oxford Shirt", Category: "tops", ArticleType: "Shirts", BaseColor: "White", Gender: "Men", PriceCents: 4599},
	{Filename: "demo_1.jpg", ProductID: 2, Name: "Slim Fit Jeans", Category: "bottoms", ArticleType: "Jeans", BaseColor: "Blue", Gender: "Men", PriceCents: 6999},
	{Filename: "demo_2.jpg", ProductID: 3, Name: "Leather Bomber Jacket", Category: "outerwear", ArticleType: "Jackets", BaseColor: "Black", Gender: "Men", PriceCents: 18999},
	{Filename: "demo_3.jpg", ProductID: 4, Name: "Suede Chelsea Boots", Category: "shoes", ArticleType: "Boots", BaseColor: "Brown", Gender: "Men", PriceCents: 12999},
}

func (b *DemoBackend) Search(ctx context.Context, img image.Image, topK int) ([]RawHit, error) {
	if topK > len(demoMetadata) {
		topK = len(demoMetadata)
	}

	hits := make([]RawHit, 0, topK)
	for i := 0; i < topK; i++ {
		hits = append(hits, RawHit{
			Row:      i,
			Distance: 0.2 + 0.15*float32(i), // монотонно растущие дистанции
			Meta:     demoMetadata[i],
		})
	}

	return hits, nil
}
