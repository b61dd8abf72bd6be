package domain

import "time"

// Payload описывает дополнительную информацию вектора
type Payload map[string]any

// Embedding представляет эмбеддинг одного изображения товара.
// Вектор всегда L2-нормализован перед сохранением.
type Embedding struct {
	ID      string
	Vector  []float32
	Payload Payload
}

func NewEmbedding(id string, vector []float32, payload Payload) *Embedding {
	return &Embedding{
		ID:      id,
		Vector:  vector,
		Payload: payload,
	}
}

func NewPayload(productID int64, imagePath string, modelVersion string) Payload {
	return Payload{
		"product_id":    productID,
		"image_path":    imagePath,
		"created_at":    time.Now().UTC().UnixNano(),
		"model_version": modelVersion,
	}
}

// ProductID возвращает идентификатор товара из payload, 0 если его нет.
func (e *Embedding) ProductID() int64 {
	if v, ok := e.Payload["product_id"].(int64); ok {
		return v
	}
	return 0
}

// ImagePath возвращает путь изображения из payload.
func (e *Embedding) ImagePath() string {
	if v, ok := e.Payload["image_path"].(string); ok {
		return v
	}
	return ""
}

// ModelVersion возвращает версию модели из payload.
func (e *Embedding) ModelVersion() string {
	if v, ok := e.Payload["model_version"].(string); ok {
		return v
	}
	return ""
}
