package qdrant

import (
	"context"

	"github.com/jimlawless/whereami"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/qdrant/go-client/qdrant"
)

// EmbeddingRepo — долговременное хранилище эмбеддингов каталога в Qdrant.
// Поисковый индекс в памяти перестраивается из этой коллекции.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert сохраняет или обновляет embedding-векторы в коллекции Qdrant.
func (q *EmbeddingRepo) Upsert(ctx context.Context, vectors []domain.Embedding) error {
	reqVectors := make([]*qdrant.PointStruct, 0, len(vectors))
	for _, vector := range vectors {
		reqVectors = append(reqVectors, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(vector.ID),
			Vectors: qdrant.NewVectors(vector.Vector...),
			Payload: qdrant.NewValueMap(vector.Payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         reqVectors,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ScrollAll постранично выгружает коллекцию целиком. Страницы идут по
// возрастанию ID точек; fn вызывается на каждую страницу.
func (q *EmbeddingRepo) ScrollAll(ctx context.Context, fn func(batch []domain.Embedding) error) error {
	var offset *qdrant.PointId
	for {
		resp, err := q.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Limit:          qdrant.PtrOf(uint32(q.cfg.ScrollBatchSize)),
			Offset:         offset,
			WithVectors:    qdrant.NewWithVectors(true),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}

		points := resp.GetResult()
		if len(points) == 0 {
			return nil
		}

		batch := make([]domain.Embedding, 0, len(points))
		for _, point := range points {
			batch = append(batch, toEmbedding(point))
		}

		if err := fn(batch); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return nil
		}
	}
}

func toEmbedding(point *qdrant.RetrievedPoint) domain.Embedding {
	payload := make(domain.Payload, len(point.GetPayload()))
	for key, value := range point.GetPayload() {
		switch v := value.GetKind().(type) {
		case *qdrant.Value_IntegerValue:
			payload[key] = v.IntegerValue
		case *qdrant.Value_StringValue:
			payload[key] = v.StringValue
		case *qdrant.Value_DoubleValue:
			payload[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			payload[key] = v.BoolValue
		}
	}

	return domain.Embedding{
		ID:      point.GetId().GetUuid(),
		Vector:  point.GetVectors().GetVector().GetData(),
		Payload: payload,
	}
}
