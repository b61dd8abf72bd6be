package pgdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
)

// CatalogRepo реализует репозиторий каталога товаров поверх PostgreSQL.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{
		pool: pool,
	}
}

const productInfoColumns = `
	pr.id, pr.name, pr.price, cat.name,
	pr.article_type, pr.base_color, pr.gender, pr.image_path, pr.in_stock
`

// GetProduct возвращает один товар с названием категории.
func (c *CatalogRepo) GetProduct(ctx context.Context, id int64) (*usecase.ProductInfo, error) {
	query := `
		SELECT ` + productInfoColumns + `
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = $1 AND NOT pr.is_archived
	`

	var product usecase.ProductInfo
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Price, &product.CategoryName,
		&product.ArticleType, &product.BaseColor, &product.Gender, &product.ImagePath, &product.InStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &product, nil
}

// GetProductsInfo возвращает информацию о товарах по их идентификаторам, включая название категории.
func (c *CatalogRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	query := `
		SELECT ` + productInfoColumns + `
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = ANY($1) AND NOT pr.is_archived
	`

	rows, err := c.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetByCategory возвращает товары указанной категории. Порядок стабилен
// (по ID), чтобы подбор комплектов был воспроизводим при фиксированном
// выборе кандидата.
func (c *CatalogRepo) GetByCategory(ctx context.Context, category string, inStockOnly bool, limit int) ([]usecase.ProductInfo, error) {
	query := `
		SELECT ` + productInfoColumns + `
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE LOWER(cat.name) = LOWER($1)
		  AND NOT pr.is_archived
		  AND (NOT $2 OR pr.in_stock)
		ORDER BY pr.id
		LIMIT $3
	`

	rows, err := c.pool.Query(ctx, query, category, inStockOnly, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]usecase.ProductInfo, error) {
	result := make([]usecase.ProductInfo, 0)
	for rows.Next() {
		var product usecase.ProductInfo
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.CategoryName,
			&product.ArticleType, &product.BaseColor, &product.Gender, &product.ImagePath, &product.InStock,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, product)
	}

	return result, rows.Err()
}
