package mlservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/jitter"
	"github.com/manvue/go-backend/pkg/logger"
	"github.com/manvue/go-backend/pkg/vec"
)

// MLService — HTTP-клиент сервиса эмбеддингов (замороженный CLIP-энкодер).
// Модель детерминирована: одно и то же изображение даёт один и тот же вектор,
// поэтому ретраи безопасны.
type MLService struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	sem        chan struct{}
	logger     logger.Logger
}

func NewMLService(cfg *cfg.MLServiceCfg, logger logger.Logger) *MLService {
	return &MLService{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		maxRetries: cfg.MaxRetries,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		logger:     logger,
	}
}

type embedImageReq struct {
	ImageB64 string `json:"image_b64"`
}

type embedTextReq struct {
	Text string `json:"text"`
}

type embedRes struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// EmbedImage возвращает L2-нормализованный вектор изображения.
// На провод изображение уходит перекодированным в PNG: формат входа
// перестаёт иметь значение для модели.
func (m *MLService) EmbedImage(ctx context.Context, img image.Image) (*usecase.EmbedRes, error) {
	const op = "MLService.EmbedImage"

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, e.Wrap(op, err)
	}

	res, err := m.embedWithRetry(ctx, "/embed/image", &embedImageReq{
		ImageB64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// EmbedText возвращает L2-нормализованный вектор текстового запроса.
func (m *MLService) EmbedText(ctx context.Context, text string) (*usecase.EmbedRes, error) {
	const op = "MLService.EmbedText"

	res, err := m.embedWithRetry(ctx, "/embed/text", &embedTextReq{Text: text})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// embedWithRetry выполняет запрос с экспоненциальной задержкой между
// попытками. Исчерпание попыток означает недоступность модели.
func (m *MLService) embedWithRetry(ctx context.Context, path string, payload any) (*usecase.EmbedRes, error) {
	const (
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		res, err := m.embedOnce(ctx, path, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == m.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		m.logger.Warnf("embedding request failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, e.Wrap(fmt.Sprintf("all %d attempts failed: %v", m.maxRetries, lastErr), e.ErrEmbeddingUnavailable)
}

func (m *MLService) embedOnce(ctx context.Context, path string, body []byte) (*usecase.EmbedRes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpRes, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %s", httpRes.Status)
	}

	var res embedRes
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return nil, err
	}

	if len(res.Vector) == 0 {
		return nil, e.ErrEmptyVectors
	}
	// Модель отдаёт нормализованные векторы, но контракт закрепляется
	// здесь: дальше по конвейеру норма не перепроверяется при каждом шаге.
	if !vec.Normalize(res.Vector) {
		return nil, e.ErrZeroNormVector
	}

	return usecase.NewEmbedRes(res.Vector, res.ModelVersion), nil
}
