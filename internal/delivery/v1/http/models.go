package http

import (
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/internal/usecase"
)

// SearchResultResponse — один результат визуального поиска в ответе API.
type SearchResultResponse struct {
	ProductID       int64   `json:"product_id"`
	Rank            int     `json:"rank"`
	SimilarityScore float64 `json:"similarity_score"`
	Confidence      int     `json:"confidence"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	ArticleType     string  `json:"article_type,omitempty"`
	BaseColor       string  `json:"base_color,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	Price           string  `json:"price"`
	Filename        string  `json:"filename,omitempty"`
	Synthetic       bool    `json:"synthetic,omitempty"`
}

// SearchResponse — ответ POST /search/visual.
type SearchResponse struct {
	QueryID string                 `json:"query_id"`
	Results []SearchResultResponse `json:"results"`
	Demo    bool                   `json:"demo,omitempty"`
}

// OutfitItemResponse — один предмет комплекта.
type OutfitItemResponse struct {
	ProductID int64  `json:"product_id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     string `json:"price"`
}

// OutfitResponse — один комплект.
type OutfitResponse struct {
	OutfitID         string               `json:"outfit_id"`
	BaseProductID    int64                `json:"base_product_id"`
	Items            []OutfitItemResponse `json:"items"`
	Confidence       int                  `json:"confidence"`
	TotalPrice       string               `json:"total_price"`
	StyleDescription string               `json:"style_description"`
}

// OutfitsResponse — ответ POST /outfits/{productID}.
type OutfitsResponse struct {
	BaseProductID int64            `json:"base_product_id"`
	Outfits       []OutfitResponse `json:"outfits"`
}

// AnalyzeResponse — ответ POST /search/analyze.
type AnalyzeResponse struct {
	QueryID               string                 `json:"query_id"`
	SimilarProducts       []SearchResultResponse `json:"similar_products"`
	OutfitRecommendations []OutfitResponse       `json:"outfit_recommendations"`
	ProcessingTimeMs      int64                  `json:"processing_time_ms"`
	Demo                  bool                   `json:"demo,omitempty"`
}

// HealthResponse — ответ GET /search/health.
type HealthResponse struct {
	Status     string `json:"status"`
	IndexReady bool   `json:"index_ready"`
	IndexRows  int    `json:"index_rows,omitempty"`
}

// RebuildResponse — ответ POST /index/rebuild.
type RebuildResponse struct {
	Rows      int    `json:"rows"`
	Skipped   int    `json:"skipped"`
	TookMs    int64  `json:"took_ms"`
}

func toSearchResults(results []usecase.SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultResponse{
			ProductID:       r.ProductID,
			Rank:            r.Rank,
			SimilarityScore: r.SimilarityScore,
			Confidence:      r.Confidence,
			Name:            r.Metadata.Name,
			Category:        r.Metadata.Category,
			ArticleType:     r.Metadata.ArticleType,
			BaseColor:       r.Metadata.BaseColor,
			Gender:          r.Metadata.Gender,
			Price:           formatPriceCents(r.Metadata.PriceCents),
			Filename:        r.Metadata.Filename,
			Synthetic:       r.Synthetic,
		})
	}
	return out
}

func toOutfits(outfits []domain.OutfitBundle) []OutfitResponse {
	out := make([]OutfitResponse, 0, len(outfits))
	for _, o := range outfits {
		items := make([]OutfitItemResponse, 0, len(o.Items))
		for _, item := range o.Items {
			items = append(items, OutfitItemResponse{
				ProductID: item.ProductID,
				Role:      string(item.Role),
				Name:      item.Name,
				Category:  item.Category,
				Price:     formatPriceCents(item.PriceCents),
			})
		}
		out = append(out, OutfitResponse{
			OutfitID:         o.ID,
			BaseProductID:    o.BaseProductID,
			Items:            items,
			Confidence:       o.Confidence,
			TotalPrice:       formatPriceCents(o.TotalPriceCents),
			StyleDescription: o.StyleDescription,
		})
	}
	return out
}
