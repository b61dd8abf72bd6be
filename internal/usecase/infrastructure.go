package usecase

import (
	"context"
	"image"

	"github.com/manvue/go-backend/internal/domain"
)

// EmbeddingProvider — клиент замороженного энкодера изображений/текста.
// Выходной вектор всегда L2-нормализован; при недоступности модели
// возвращается e.ErrEmbeddingUnavailable, тихой деградации нет.
type EmbeddingProvider interface {
	EmbedImage(ctx context.Context, img image.Image) (*EmbedRes, error)
	EmbedText(ctx context.Context, text string) (*EmbedRes, error)
}

// ImageDecoder — внешний декодер загруженных байтов в RGB-битмап.
type ImageDecoder interface {
	// DecodeRGB возвращает e.ErrInvalidImage для битых или
	// неподдерживаемых данных.
	DecodeRGB(data []byte) (image.Image, error)
}

// AuditProducer публикует записи журнала запросов в поток аналитики.
type AuditProducer interface {
	Publish(ctx context.Context, entry *domain.QueryLogEntry) error
}

// QueryImageInfra сохраняет снимок пользовательского запроса в blob-хранилище.
type QueryImageInfra interface {
	UploadQueryImage(ctx context.Context, username string, data []byte) (string, error)
	WaitForCleanup(ctx context.Context) error
}
