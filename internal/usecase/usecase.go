package usecase

import "context"

type SearchUC interface {
	SearchSimilar(ctx context.Context, req *SearchSimilarReq) (*SearchSimilarRes, error)
	AnalyzeAndRecommend(ctx context.Context, req *AnalyzeReq) (*AnalyzeRes, error)
}

type OutfitUC interface {
	GenerateOutfits(ctx context.Context, req *GenerateOutfitsReq) (*GenerateOutfitsRes, error)
}

type IngestUC interface {
	IngestProduct(ctx context.Context, req *IngestProductReq) error
	RebuildIndex(ctx context.Context) (*RebuildIndexRes, error)
	LoadOrRebuild(ctx context.Context) error
}
