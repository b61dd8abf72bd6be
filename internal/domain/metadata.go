package domain

// Metadata — запись, параллельная строке векторного индекса.
// Строка i индекса всегда разрешается в metadata[i]; эта позиционная связь
// несущая, поэтому пара (индекс, метаданные) перестраивается и публикуется
// только целиком.
type Metadata struct {
	Filename    string `json:"filename"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	ArticleType string `json:"article_type"`
	BaseColor   string `json:"base_color"`
	Gender      string `json:"gender"`
	PriceCents  int64  `json:"price_cents"`
}
