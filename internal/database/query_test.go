package database

import (
	"strings"
	"testing"

	"MarketScraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T) *DBRepository {
	t.Helper()
	repo := newTestRepo(t)
	records := []models.ProductRecord{
		{ASIN: "B001", Title: "Wireless Mouse", ProductURL: "u1", PriceRaw: "$10.00", Price: fptr(10), Rating: fptr(4.5)},
		{ASIN: "B002", Title: "Gaming Keyboard", ProductURL: "u2", PriceRaw: "$80.00", Price: fptr(80), Rating: fptr(4.0)},
		{ASIN: "B003", Title: "USB Hub, 7-Port", ProductURL: "u3", PriceRaw: "$25.00", Price: fptr(25), Rating: fptr(3.5)},
		{ASIN: "B004", Title: "Mouse Pad", ProductURL: "u4"},
	}
	_, err := repo.UpsertProducts(records)
	require.NoError(t, err)
	return repo
}

func TestListProducts_TitleFilterCaseInsensitive(t *testing.T) {
	repo := seedCatalog(t)

	items, total, err := repo.ListProducts(models.ProductFilters{Query: "MOUSE"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}

func TestListProducts_TitleFilterMatchesMetacharactersLiterally(t *testing.T) {
	repo := seedCatalog(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{
		{ASIN: "B005", Title: "100% Cotton Mouse Pad", ProductURL: "u5"},
	})
	require.NoError(t, err)

	// "%" and "_" are not wildcards in the query text
	items, total, err := repo.ListProducts(models.ProductFilters{Query: "100%"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "B005", items[0].ASIN)

	_, total, err = repo.ListProducts(models.ProductFilters{Query: "M_use"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestListProducts_RatingAndPriceThresholds(t *testing.T) {
	repo := seedCatalog(t)

	_, total, err := repo.ListProducts(models.ProductFilters{MinRating: fptr(4.0)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = repo.ListProducts(models.ProductFilters{MaxPrice: fptr(25)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// conjunctive
	_, total, err = repo.ListProducts(models.ProductFilters{MinRating: fptr(4.0), MaxPrice: fptr(25)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListProducts_TotalInvariantUnderPagination(t *testing.T) {
	repo := seedCatalog(t)

	_, totalAll, err := repo.ListProducts(models.ProductFilters{PageSize: 100})
	require.NoError(t, err)

	items, totalPaged, err := repo.ListProducts(models.ProductFilters{Page: 2, PageSize: 1, OrderBy: "title", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, totalAll, totalPaged)
	assert.Len(t, items, 1)
}

func TestListProducts_SortWhitelist(t *testing.T) {
	repo := seedCatalog(t)

	items, _, err := repo.ListProducts(models.ProductFilters{OrderBy: "price", Order: "asc", PageSize: 100})
	require.NoError(t, err)
	require.Len(t, items, 4)
	// NULL prices sort first ascending in sqlite
	assert.Equal(t, "B004", items[0].ASIN)
	assert.Equal(t, "B001", items[1].ASIN)
	assert.Equal(t, "B002", items[3].ASIN)

	items, _, err = repo.ListProducts(models.ProductFilters{OrderBy: "title", Order: "asc", PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, "Gaming Keyboard", items[0].Title)

	// unrecognized sort key falls back to created_at without erroring
	_, _, err = repo.ListProducts(models.ProductFilters{OrderBy: "surprise; DROP TABLE products"})
	require.NoError(t, err)
	_, total, err := repo.ListProducts(models.ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestExportCSV_FormatAndCommaStripping(t *testing.T) {
	repo := seedCatalog(t)

	text, err := repo.ExportCSV(models.ProductFilters{OrderBy: "title", Order: "asc", PageSize: 100})
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "asin,title,product_url,image_url,price,price_raw,currency,rating,rating_count,created_at,updated_at", lines[0])

	// "USB Hub, 7-Port" keeps the column count: commas become spaces
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 11)
	}
	assert.Contains(t, text, "USB Hub  7-Port")

	// absent fields are empty strings
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "B004,") {
			fields := strings.Split(line, ",")
			assert.Empty(t, fields[4]) // price
			assert.Empty(t, fields[7]) // rating
		}
	}
}

func TestGetHistory_Limit(t *testing.T) {
	repo := newTestRepo(t)
	for _, price := range []float64{1, 2, 3} {
		_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$x", fptr(price))})
		require.NoError(t, err)
	}
	history, err := repo.GetHistory("B001", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
