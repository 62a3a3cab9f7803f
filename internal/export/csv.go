package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"zootovary/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

var categoryHeaders = []string{"name", "id", "parent_id", "link"}

var goodsHeaders = []string{
	"price_datetime", "price", "price_promo", "sku_status", "sku_barcode", "sku_article", "sku_name",
	"sku_category", "sku_country", "sku_weight_min", "sku_volume_min", "sku_quantity_min", "sku_link",
	"sku_images",
}

// Writer dumps crawl results as delimited files: the whole category tree,
// the requested subtrees and one goods row per extracted offer.
type Writer struct {
	outDir  string
	baseURL string
}

func NewWriter(outDir, baseURL string) *Writer {
	return &Writer{
		outDir:  outDir,
		baseURL: baseURL,
	}
}

// WriteAll writes categories-all.csv, categories.csv and goods.csv.
// Products are written per category in discovery order; unparsed products
// still contribute whatever offers they accumulated.
func (w *Writer) WriteAll(tree *domain.Category, requested []*domain.Category, categoryOrder []string, products map[string][]*domain.Product) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.outDir, err)
	}

	if err := w.writeCategories("categories-all.csv", tree.Flatten()); err != nil {
		return err
	}

	var requestedRows []*domain.Category
	for _, category := range requested {
		requestedRows = append(requestedRows, category.Flatten()...)
	}
	if err := w.writeCategories("categories.csv", requestedRows); err != nil {
		return err
	}

	return w.writeGoods("goods.csv", categoryOrder, products)
}

func (w *Writer) writeCategories(name string, categories []*domain.Category) error {
	file, err := os.Create(filepath.Join(w.outDir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(categoryHeaders); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for _, category := range categories {
		row := []string{
			category.Title,
			strconv.Itoa(category.Code),
			strconv.Itoa(category.ParentCode),
			category.Link,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write category %d to %s: %w", category.Code, name, err)
		}
	}

	log.Infof("Wrote %d categories to %s", len(categories), name)
	return nil
}

func (w *Writer) writeGoods(name string, categoryOrder []string, products map[string][]*domain.Product) error {
	file, err := os.Create(filepath.Join(w.outDir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(goodsHeaders); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}

	rows := 0
	for _, link := range categoryOrder {
		for _, product := range products[link] {
			for _, offer := range product.Offers {
				status := "0"
				if offer.InStock {
					status = "1"
				}
				row := []string{
					product.CapturedAt.Format("2006-01-02 15:04:05"),
					offer.Price,
					offer.PromoPrice,
					status,
					offer.Barcode,
					offer.Article,
					product.Title,
					product.Categories,
					product.Country,
					offer.Weight,
					offer.Volume,
					offer.Quantity,
					w.baseURL + product.Link,
					product.Pictures,
				}
				if err := writer.Write(row); err != nil {
					return fmt.Errorf("failed to write offer %q to %s: %w", offer.Article, name, err)
				}
				rows++
			}
		}
	}

	log.Infof("Wrote %d offers to %s", rows, name)
	return nil
}
