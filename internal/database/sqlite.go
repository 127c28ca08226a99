package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketScraper/internal/models"
	"MarketScraper/utils"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DBRepository wraps the database connection.
type DBRepository struct {
	DB *sql.DB
}

// InitDB opens (creating if needed) the catalog database and returns a
// repository around it.
func InitDB(filepath string) *DBRepository {
	// foreign_keys is a per-connection pragma and database/sql pools
	// connections, so it must ride the DSN to reach every connection;
	// the price_history cascade delete depends on it.
	db, err := sql.Open("sqlite", filepath+"?_pragma=foreign_keys(1)")
	if err != nil {
		zap.L().Fatal("error opening database", zap.Error(err))
	}
	if err = db.Ping(); err != nil {
		zap.L().Fatal("error pinging database", zap.Error(err))
	}

	createProductsTableSQL := `
	CREATE TABLE IF NOT EXISTS products (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"asin" TEXT NOT NULL UNIQUE,
		"title" TEXT NOT NULL DEFAULT '',
		"product_url" TEXT NOT NULL DEFAULT '',
		"image_url" TEXT,
		"price" REAL,
		"price_raw" TEXT,
		"currency" TEXT,
		"rating" REAL,
		"rating_count" INTEGER,
		"created_at" DATETIME NOT NULL,
		"updated_at" DATETIME NOT NULL
	);`
	if _, err = db.Exec(createProductsTableSQL); err != nil {
		zap.L().Fatal("error creating products table", zap.Error(err))
	}

	createHistoryTableSQL := `
	CREATE TABLE IF NOT EXISTS price_history (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"asin" TEXT NOT NULL REFERENCES products(asin) ON DELETE CASCADE,
		"price" REAL,
		"price_raw" TEXT,
		"currency" TEXT,
		"seen_at" DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ix_price_history_asin_seen
		ON price_history (asin, seen_at DESC);`
	if _, err = db.Exec(createHistoryTableSQL); err != nil {
		zap.L().Fatal("error creating price_history table", zap.Error(err))
	}

	zap.L().Info("database and tables initialized", zap.String("path", filepath))
	return &DBRepository{DB: db}
}

// Close closes the database connection.
func (repo *DBRepository) Close() {
	repo.DB.Close()
}

// UpsertProducts persists a batch of scraped records as a single
// transaction and returns the number of products inserted or updated (not
// the number of fields changed). Any failure rolls the whole batch back.
//
// For an existing product, each field is overwritten only when the incoming
// value is present and differs from the stored one. A price-history row is
// appended whenever the incoming price differs from the most recently
// recorded one (or no prior row exists) — independently of whether any
// other field changed.
func (repo *DBRepository) UpsertProducts(records []models.ProductRecord) (int, error) {
	tx, err := repo.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	changed := 0
	now := time.Now().UTC()

	for _, rec := range records {
		asin := strings.TrimSpace(rec.ASIN)
		if asin == "" {
			continue
		}

		currency := rec.Currency
		if currency == "" {
			currency = utils.ExtractCurrency(rec.PriceRaw)
		}

		var existing models.Product
		err := tx.QueryRow(`
			SELECT id, title, product_url, image_url, price, price_raw, currency, rating, rating_count
			FROM products WHERE asin = ?`, asin).Scan(
			&existing.ID, &existing.Title, &existing.ProductURL, &existing.ImageURL,
			&existing.Price, &existing.PriceRaw, &existing.Currency,
			&existing.Rating, &existing.RatingCount,
		)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.Exec(`
				INSERT INTO products (asin, title, product_url, image_url, price, price_raw, currency, rating, rating_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				asin, rec.Title, rec.ProductURL, nullString(rec.ImageURL),
				rec.Price, nullString(rec.PriceRaw), nullString(currency),
				rec.Rating, rec.RatingCount, now, now,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert product %s: %w", asin, err)
			}
			changed++
			if rec.Price != nil {
				if err := appendHistory(tx, asin, rec, currency, now); err != nil {
					return 0, err
				}
			}

		case err != nil:
			return 0, fmt.Errorf("failed to look up product %s: %w", asin, err)

		default:
			var sets []string
			var args []interface{}
			if rec.Title != "" && rec.Title != existing.Title {
				sets, args = append(sets, "title = ?"), append(args, rec.Title)
			}
			if rec.ProductURL != "" && rec.ProductURL != existing.ProductURL {
				sets, args = append(sets, "product_url = ?"), append(args, rec.ProductURL)
			}
			if rec.ImageURL != "" && (existing.ImageURL == nil || *existing.ImageURL != rec.ImageURL) {
				sets, args = append(sets, "image_url = ?"), append(args, rec.ImageURL)
			}
			if rec.Price != nil && (existing.Price == nil || *existing.Price != *rec.Price) {
				sets, args = append(sets, "price = ?"), append(args, *rec.Price)
			}
			if rec.PriceRaw != "" && (existing.PriceRaw == nil || *existing.PriceRaw != rec.PriceRaw) {
				sets, args = append(sets, "price_raw = ?"), append(args, rec.PriceRaw)
			}
			if currency != "" && (existing.Currency == nil || *existing.Currency != currency) {
				sets, args = append(sets, "currency = ?"), append(args, currency)
			}
			if rec.Rating != nil && (existing.Rating == nil || *existing.Rating != *rec.Rating) {
				sets, args = append(sets, "rating = ?"), append(args, *rec.Rating)
			}
			if rec.RatingCount != nil && (existing.RatingCount == nil || *existing.RatingCount != *rec.RatingCount) {
				sets, args = append(sets, "rating_count = ?"), append(args, *rec.RatingCount)
			}

			if rec.Price != nil {
				if err := maybeAppendHistory(tx, asin, rec, currency, now); err != nil {
					return 0, err
				}
			}

			if len(sets) == 0 {
				continue
			}
			sets = append(sets, "updated_at = ?")
			args = append(args, now, asin)
			_, err = tx.Exec("UPDATE products SET "+strings.Join(sets, ", ")+" WHERE asin = ?", args...)
			if err != nil {
				return 0, fmt.Errorf("failed to update product %s: %w", asin, err)
			}
			changed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return changed, nil
}

// maybeAppendHistory appends a history row only when the most recently
// observed price for the key differs from the incoming one.
func maybeAppendHistory(tx *sql.Tx, asin string, rec models.ProductRecord, currency string, now time.Time) error {
	var lastPrice *float64
	err := tx.QueryRow(`
		SELECT price FROM price_history
		WHERE asin = ? ORDER BY seen_at DESC, id DESC LIMIT 1`, asin).Scan(&lastPrice)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read last price for %s: %w", asin, err)
	}
	if errors.Is(err, sql.ErrNoRows) || lastPrice == nil || *lastPrice != *rec.Price {
		return appendHistory(tx, asin, rec, currency, now)
	}
	return nil
}

func appendHistory(tx *sql.Tx, asin string, rec models.ProductRecord, currency string, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO price_history (asin, price, price_raw, currency, seen_at)
		VALUES (?, ?, ?, ?, ?)`,
		asin, rec.Price, nullString(rec.PriceRaw), nullString(currency), now,
	)
	if err != nil {
		return fmt.Errorf("failed to append price history for %s: %w", asin, err)
	}
	return nil
}

// nullString maps "" to NULL so absent text never masquerades as a value.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
