package domain

import "time"

// LoggedResult — один результат поиска в составе записи журнала.
type LoggedResult struct {
	ProductID       int64   `json:"product_id"`
	Rank            int     `json:"rank"`
	SimilarityScore float64 `json:"similarity_score"`
	Confidence      int     `json:"confidence"`
}

// QueryLogEntry — запись журнала визуальных запросов.
// Журнал append-only: записи не изменяются и не удаляются ядром,
// политика ретенции — внешняя забота.
type QueryLogEntry struct {
	QueryID         string
	Username        string
	UploadedFileRef string
	Results         []LoggedResult
	CreatedAt       time.Time
}
