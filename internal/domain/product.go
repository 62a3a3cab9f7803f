package domain

import "time"

// ProductRef is a product link discovered on a listing page, before the
// detail page has been fetched.
type ProductRef struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

// Offer is one row of a product's offer table. At most one of Weight, Volume
// and Quantity is non-empty; they are a mutually exclusive classification of
// the raw MinQuantity text.
type Offer struct {
	Article     string `json:"sku_article"`
	Barcode     string `json:"sku_barcode"`
	MinQuantity string `json:"min_value"`
	Weight      string `json:"sku_weight_min"`
	Volume      string `json:"sku_volume_min"`
	Quantity    string `json:"sku_quantity_min"`
	Price       string `json:"price"`
	PromoPrice  string `json:"price_promo"`
	InStock     bool   `json:"in_stock"`
}

// Product holds the extracted detail-page data. Parsed is true only when
// extraction ran to completion; a dedup collision or a missing content
// container leaves it false.
type Product struct {
	Link       string    `json:"link"`
	Title      string    `json:"title"`
	CapturedAt time.Time `json:"price_datetime"`
	Offers     []Offer   `json:"offers"`
	Country    string    `json:"country"`
	Categories string    `json:"categories"` // pipe-joined breadcrumb
	Pictures   string    `json:"pictures"`   // comma-joined absolute URLs
	Parsed     bool      `json:"parsed"`
}

// ListingPage is one paginated page of product cards within a category.
// PageCount is derived from the page's own markup and is only meaningful on
// the first page of a category.
type ListingPage struct {
	CategoryLink string
	PageNumber   int
	PageCount    int
	Refs         []ProductRef
}
