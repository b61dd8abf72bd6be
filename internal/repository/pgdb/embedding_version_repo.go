package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/tr"
)

// EmbeddingVersionRepo отслеживает, какой версией модели векторизован товар.
// Строка товара обновляется внутри той же транзакции, что и запись
// эмбеддингов.
type EmbeddingVersionRepo struct {
	pool *pgxpool.Pool
}

func NewEmbeddingVersionRepo(pool *pgxpool.Pool) *EmbeddingVersionRepo {
	return &EmbeddingVersionRepo{
		pool: pool,
	}
}

// Upsert фиксирует версию модели для товара и инкрементирует счётчик
// перевекторизаций.
func (r *EmbeddingVersionRepo) Upsert(ctx context.Context, productID int64, modelVersion string) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO embedding_versions (product_id, model_version)
		VALUES ($1, $2)
		ON CONFLICT (product_id)
		DO UPDATE SET model_version = EXCLUDED.model_version,
		              embedding_version = embedding_versions.embedding_version + 1,
		              updated_at = NOW()
	`

	_, err = tx.Exec(ctx, query, productID, modelVersion)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
