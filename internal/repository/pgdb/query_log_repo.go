package pgdb

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
)

// QueryLogRepo — журнал визуальных запросов поверх PostgreSQL.
// Журнал append-only: здесь нет ни Update, ни Delete.
type QueryLogRepo struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepo(pool *pgxpool.Pool) *QueryLogRepo {
	return &QueryLogRepo{
		pool: pool,
	}
}

// Append дописывает запись журнала. Результаты выдачи хранятся одним
// jsonb-полем: аналитика читает их целиком, построчный доступ не нужен.
func (q *QueryLogRepo) Append(ctx context.Context, entry *domain.QueryLogEntry) error {
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO query_log (query_id, username, uploaded_file_ref, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = q.pool.Exec(ctx, query,
		entry.QueryID, entry.Username, entry.UploadedFileRef, results, entry.CreatedAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
