package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketScraper/internal/models"
)

// orderColumns is the whitelist of sortable columns. Anything else falls
// back to created_at.
var orderColumns = map[string]string{
	"price":      "price",
	"rating":     "rating",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

// csvColumns is the fixed export column set, in order.
var csvColumns = []string{
	"asin", "title", "product_url", "image_url",
	"price", "price_raw", "currency",
	"rating", "rating_count",
	"created_at", "updated_at",
}

// ListProducts returns one page of products matching the filters plus the
// total size of the filtered set before pagination.
func (repo *DBRepository) ListProducts(filters models.ProductFilters) ([]models.Product, int, error) {
	var conditions []string
	var args []interface{}

	if filters.Query != "" {
		conditions = append(conditions, `LOWER(title) LIKE '%' || LOWER(?) || '%' ESCAPE '\'`)
		args = append(args, escapeLike(filters.Query))
	}
	if filters.MinRating != nil {
		conditions = append(conditions, "rating >= ?")
		args = append(args, *filters.MinRating)
	}
	if filters.MaxPrice != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *filters.MaxPrice)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := repo.DB.QueryRow("SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	col, ok := orderColumns[filters.OrderBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(filters.Order, "asc") {
		dir = "ASC"
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	query := fmt.Sprintf(`
		SELECT id, asin, title, product_url, image_url, price, price_raw, currency, rating, rating_count, created_at, updated_at
		FROM products%s ORDER BY %s %s LIMIT ? OFFSET ?`, where, col, dir)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := repo.DB.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute filtered query: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0, pageSize)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.ASIN, &p.Title, &p.ProductURL, &p.ImageURL,
			&p.Price, &p.PriceRaw, &p.Currency, &p.Rating, &p.RatingCount,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ExportCSV runs the same filter/sort/paginate pipeline as ListProducts and
// serializes the rows as flat text. Absent values become empty strings and
// literal commas inside values are replaced by spaces; there is no further
// quoting or escaping.
func (repo *DBRepository) ExportCSV(filters models.ProductFilters) (string, error) {
	items, _, err := repo.ListProducts(filters)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.Join(csvColumns, ","))
	for _, p := range items {
		fields := []string{
			p.ASIN,
			p.Title,
			p.ProductURL,
			strField(p.ImageURL),
			floatField(p.Price),
			strField(p.PriceRaw),
			strField(p.Currency),
			floatField(p.Rating),
			intField(p.RatingCount),
			p.CreatedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		}
		for i, f := range fields {
			fields[i] = strings.ReplaceAll(f, ",", " ")
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(fields, ","))
	}
	return b.String(), nil
}

// GetHistory returns up to limit recorded price points for an ASIN, oldest
// first.
func (repo *DBRepository) GetHistory(asin string, limit int) ([]models.PriceHistoryEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := repo.DB.Query(`
		SELECT id, asin, price, price_raw, currency, seen_at
		FROM price_history WHERE asin = ?
		ORDER BY seen_at ASC, id ASC LIMIT ?`, asin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for %s: %w", asin, err)
	}
	defer rows.Close()

	var points []models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ASIN, &e.Price, &e.PriceRaw, &e.Currency, &e.SeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		points = append(points, e)
	}
	return points, rows.Err()
}

// escapeLike neutralizes LIKE metacharacters so the title filter matches
// the query text literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func strField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatField(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func intField(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}
