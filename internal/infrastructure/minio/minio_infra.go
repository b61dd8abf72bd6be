package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/internal/infrastructure"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
)

// QueryImageInfrastructure сохраняет снимки пользовательских запросов в MinIO.
// Снимок — часть журнала запросов: по нему позже можно воспроизвести поиск
// и разобраться, почему выдача была такой.
type QueryImageInfrastructure struct {
	minioRepo   usecase.BlobRepository
	cfg         *cfg.MinIOCfg
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
}

func NewQueryImageInfrastructure(minioRepo usecase.BlobRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *QueryImageInfrastructure {
	return &QueryImageInfrastructure{
		minioRepo:   minioRepo,
		cfg:         cfg,
		logger:      logger,
		shutdownCtx: shutdownCtx,
	}
}

// UploadQueryImage загружает снимок запроса и возвращает ключ объекта.
// MIME определяется по содержимому: Content-Type загрузки уже никому
// не интересен после декодирования.
func (q *QueryImageInfrastructure) UploadQueryImage(ctx context.Context, username string, data []byte) (string, error) {
	const op = "QueryImageInfrastructure.UploadQueryImage"

	if username == "" {
		username = "anonymous"
	}

	mime := infrastructure.DetectImageMIME(data)
	ext, err := infrastructure.GetExtensionFromMIME(mime)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	imageID := uuid.NewString()
	objKey := fmt.Sprintf("queries/%s/%s-%s.%s", username, time.Now().UTC().Format("2006-01-02"), imageID, ext)
	image := domain.NewImage(imageID, q.cfg.BucketName, objKey, data, mime)

	key, err := q.minioRepo.Upload(ctx, image)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return key, nil
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO.
func (q *QueryImageInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	q.wg.Add(1)
	go q.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет объекты с экспоненциальной задержкой и jitter.
func (q *QueryImageInfrastructure) cleanupUploadedKeys(keys []string) {
	defer q.wg.Done()
	const op = "QueryImageInfrastructure.cleanupUploadedKeys"
	q.logger.Infof("%s: Cleaning up uploaded keys", op)

	ctx, cancel := context.WithTimeout(q.shutdownCtx, 30*time.Second)
	defer cancel()

	for _, key := range keys {
		backoff := time.Second
		for attempt := 0; attempt < 3; attempt++ {
			if err := q.minioRepo.Delete(ctx, key); err == nil {
				break
			}

			select {
			case <-ctx.Done():
				q.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			default:
			}

			if attempt < 2 {
				jitter := time.Duration(time.Now().UnixNano() % int64(time.Second))
				sleepTime := backoff + jitter

				select {
				case <-time.After(sleepTime):
				case <-ctx.Done():
					q.logger.Warnf("cleanup interrupted by shutdown during backoff, key=%v", key)
					return
				}
				backoff *= 2
			}
		}
	}
}

// WaitForCleanup ожидает завершения фоновых задач очистки при останове приложения.
func (q *QueryImageInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
