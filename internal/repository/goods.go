package repository

import (
	"context"
	"fmt"

	"zootovary/crawler/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GoodsRepository is an optional Postgres sink; the crawl does not depend on
// it and keeps going when it is absent.
type GoodsRepository interface {
	SaveCategories(ctx context.Context, categories []*domain.Category) error
	SaveProducts(ctx context.Context, baseURL string, products []*domain.Product) error
}

type goodsRepository struct {
	db *pgxpool.Pool
}

func NewGoodsRepository(db *pgxpool.Pool) GoodsRepository {
	return &goodsRepository{
		db: db,
	}
}

func (r *goodsRepository) SaveCategories(ctx context.Context, categories []*domain.Category) error {
	query := `
	INSERT INTO categories (id, name, parent_id, link)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id)
	DO UPDATE SET name = $2, parent_id = $3, link = $4`
	for _, category := range categories {
		_, err := r.db.Exec(ctx, query, category.Code, category.Title, category.ParentCode, category.Link)
		if err != nil {
			return fmt.Errorf("failed to save category %d: %w", category.Code, err)
		}
	}
	return nil
}

func (r *goodsRepository) SaveProducts(ctx context.Context, baseURL string, products []*domain.Product) error {
	query := `
	INSERT INTO goods (sku_article, sku_barcode, price_datetime, price, price_promo, sku_status,
		sku_name, sku_category, sku_country, sku_weight_min, sku_volume_min, sku_quantity_min,
		sku_link, sku_images)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (sku_article)
	DO UPDATE SET sku_barcode = $2, price_datetime = $3, price = $4, price_promo = $5,
		sku_status = $6, sku_name = $7, sku_category = $8, sku_country = $9,
		sku_weight_min = $10, sku_volume_min = $11, sku_quantity_min = $12,
		sku_link = $13, sku_images = $14`
	for _, product := range products {
		for _, offer := range product.Offers {
			status := 0
			if offer.InStock {
				status = 1
			}
			_, err := r.db.Exec(ctx, query,
				offer.Article, offer.Barcode, product.CapturedAt, offer.Price, offer.PromoPrice,
				status, product.Title, product.Categories, product.Country, offer.Weight,
				offer.Volume, offer.Quantity, baseURL+product.Link, product.Pictures)
			if err != nil {
				return fmt.Errorf("failed to save offer %q of %s: %w", offer.Article, product.Link, err)
			}
		}
	}
	return nil
}
