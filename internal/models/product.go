package models

import "time"

// ProductRecord holds one listing as extracted from a search-result page.
// It is ephemeral: records are normalized during parsing and only become
// persistent through the store's upsert.
type ProductRecord struct {
	ASIN        string
	Title       string
	ProductURL  string
	ImageURL    string
	PriceRaw    string
	Price       *float64
	Rating      *float64
	RatingCount *int64
	Currency    string
}

// Product is the persisted catalog entity, unique per ASIN.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	ASIN        string    `db:"asin" json:"asin"`
	Title       string    `db:"title" json:"title"`
	ProductURL  string    `db:"product_url" json:"product_url"`
	ImageURL    *string   `db:"image_url" json:"image_url"`
	Price       *float64  `db:"price" json:"price"`
	PriceRaw    *string   `db:"price_raw" json:"price_raw"`
	Currency    *string   `db:"currency" json:"currency"`
	Rating      *float64  `db:"rating" json:"rating"`
	RatingCount *int64    `db:"rating_count" json:"rating_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PriceHistoryEntry is an append-only observation of a product's price.
// Rows are never mutated; they are removed only by the cascade when the
// parent product is deleted.
type PriceHistoryEntry struct {
	ID       int64     `db:"id" json:"-"`
	ASIN     string    `db:"asin" json:"asin"`
	Price    *float64  `db:"price" json:"price"`
	PriceRaw *string   `db:"price_raw" json:"price_raw"`
	Currency *string   `db:"currency" json:"currency"`
	SeenAt   time.Time `db:"seen_at" json:"seen_at"`
}

// ProductFilters holds all query parameters for listing products.
// All filters are optional and conjunctive.
type ProductFilters struct {
	Query     string
	MinRating *float64
	MaxPrice  *float64
	// For ordering and pagination
	OrderBy  string
	Order    string
	Page     int
	PageSize int
}

// DelayRange bounds the random pre-fetch sleep, in seconds.
type DelayRange struct {
	Lo float64
	Hi float64
}
