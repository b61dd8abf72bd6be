package converter

type ProductInfoRedisModel struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryName string `json:"category_name"`
	ArticleType  string `json:"article_type"`
	BaseColor    string `json:"base_color"`
	Gender       string `json:"gender"`
	Price        int64  `json:"price"`
	ImagePath    string `json:"image_path"`
	InStock      bool   `json:"in_stock"`
}
