package usecase

import (
	"time"

	"github.com/manvue/go-backend/internal/domain"
)

// SEARCH USECASE

// SearchSimilarReq — запрос визуального поиска по загруженному изображению.
type SearchSimilarReq struct {
	ImageData      []byte
	TopK           int
	CategoryFilter string // пост-фильтр по категории, пустая строка — без фильтра
	Username       string
	Demo           bool // синтетическая выдача только по явному запросу
}

// SearchResult — один результат поиска, производная величина (не хранится).
type SearchResult struct {
	ProductID       int64
	Rank            int
	SimilarityScore float64 // 0..1, выше — ближе
	Confidence      int     // 0..100, round(similarity*100)
	Metadata        domain.Metadata
	Synthetic       bool // true только в демо-режиме
}

// SearchSimilarRes — ответ визуального поиска.
type SearchSimilarRes struct {
	QueryID string
	Results []SearchResult
	Demo    bool
}

// AnalyzeReq — составная операция: поиск похожих + генерация комплектов.
type AnalyzeReq struct {
	ImageData   []byte
	MaxProducts int
	MaxOutfits  int
	Username    string
	Demo        bool
}

// AnalyzeRes — полный результат анализа изображения.
type AnalyzeRes struct {
	QueryID               string
	SimilarProducts       []SearchResult
	OutfitRecommendations []domain.OutfitBundle
	ProcessingTime        time.Duration
	Demo                  bool
}

// OUTFIT USECASE

// GenerateOutfitsReq — запрос генерации комплектов вокруг базового товара.
// InheritedConfidence — уверенность базового совпадения поиска; комплект
// её наследует и не пересчитывает.
type GenerateOutfitsReq struct {
	BaseProductID       int64
	MaxOutfits          int
	InheritedConfidence int
}

type GenerateOutfitsRes struct {
	Outfits []domain.OutfitBundle
}

// INGEST USECASE

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type из multipart (image/jpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// IngestProductReq — запрос на векторизацию изображений существующего товара.
type IngestProductReq struct {
	ProductID int64
	Images    []ProductImage
}

// RebuildIndexRes — итог перестроения пары (индекс, метаданные).
type RebuildIndexRes struct {
	Rows    int
	Skipped int
	Took    time.Duration
}

// REPOSITORIES

// ProductInfo — DTO с информацией о товаре для внешнего использования.
type ProductInfo struct {
	ID           int64
	Name         string
	CategoryName string
	ArticleType  string
	BaseColor    string
	Gender       string
	Price        int64 // копейки
	ImagePath    string
	InStock      bool
}

// INFRASTRUCTURE

// EmbedRes — результат векторизации одного изображения или текста.
type EmbedRes struct {
	Vector       []float32
	ModelVersion string
}

// MAPPERS

func NewSearchSimilarReq(imageData []byte, topK int, categoryFilter, username string, demo bool) *SearchSimilarReq {
	return &SearchSimilarReq{
		ImageData:      imageData,
		TopK:           topK,
		CategoryFilter: categoryFilter,
		Username:       username,
		Demo:           demo,
	}
}

func NewAnalyzeReq(imageData []byte, maxProducts, maxOutfits int, username string, demo bool) *AnalyzeReq {
	return &AnalyzeReq{
		ImageData:   imageData,
		MaxProducts: maxProducts,
		MaxOutfits:  maxOutfits,
		Username:    username,
		Demo:        demo,
	}
}

func NewGenerateOutfitsReq(baseProductID int64, maxOutfits, inheritedConfidence int) *GenerateOutfitsReq {
	return &GenerateOutfitsReq{
		BaseProductID:       baseProductID,
		MaxOutfits:          maxOutfits,
		InheritedConfidence: inheritedConfidence,
	}
}

func NewEmbedRes(vector []float32, modelVersion string) *EmbedRes {
	return &EmbedRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewProductImage(data []byte, mimeType string, size int64, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewIngestProductReq(productID int64, images []ProductImage) *IngestProductReq {
	return &IngestProductReq{
		ProductID: productID,
		Images:    images,
	}
}
