package database

import (
	"path/filepath"
	"testing"

	"MarketScraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *DBRepository {
	t.Helper()
	repo := InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(repo.Close)
	return repo
}

func fptr(v float64) *float64 { return &v }

func record(asin, title, priceRaw string, price *float64) models.ProductRecord {
	return models.ProductRecord{
		ASIN:       asin,
		Title:      title,
		ProductURL: "https://www.amazon.com/dp/" + asin,
		PriceRaw:   priceRaw,
		Price:      price,
	}
}

func TestUpsertProducts_InsertThenIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	records := []models.ProductRecord{
		record("B001", "Mouse", "$10.00", fptr(10)),
		record("B002", "Keyboard", "$20.00", fptr(20)),
	}

	changed, err := repo.UpsertProducts(records)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	// identical batch: nothing differs, nothing counted
	changed, err = repo.UpsertProducts(records)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpsertProducts_SkipsEmptyKey(t *testing.T) {
	repo := newTestRepo(t)
	changed, err := repo.UpsertProducts([]models.ProductRecord{
		record("", "No Key", "$1.00", fptr(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestUpsertProducts_PartialUpdateOnlyDifferingFields(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$10.00", fptr(10))})
	require.NoError(t, err)

	// absent fields must not clobber stored values
	update := models.ProductRecord{ASIN: "B001", Title: "Wireless Mouse"}
	changed, err := repo.UpsertProducts([]models.ProductRecord{update})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	items, total, err := repo.ListProducts(models.ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Wireless Mouse", items[0].Title)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, 10.0, *items[0].Price)
	assert.True(t, items[0].UpdatedAt.After(items[0].CreatedAt) || items[0].UpdatedAt.Equal(items[0].CreatedAt))
}

func TestUpsertProducts_HistoryGrowsOncePerDistinctPrice(t *testing.T) {
	repo := newTestRepo(t)

	for _, price := range []float64{10, 12, 12, 9.5} {
		_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$x", fptr(price))})
		require.NoError(t, err)
	}

	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// oldest first
	assert.Equal(t, 10.0, *history[0].Price)
	assert.Equal(t, 12.0, *history[1].Price)
	assert.Equal(t, 9.5, *history[2].Price)
}

func TestUpsertProducts_NilPriceNeverAppendsHistory(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "", nil)})
	require.NoError(t, err)
	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// first observed price lands even though the product already exists
	_, err = repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$15.00", fptr(15))})
	require.NoError(t, err)
	history, err = repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpsertProducts_HistoryAppendIndependentOfOtherFields(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$10.00", fptr(10))})
	require.NoError(t, err)

	// title changes, price does not: product counted, history untouched
	changed, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Better Mouse", "$10.00", fptr(10))})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpsertProducts_CurrencyExtractedFromRawPrice(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Lamp", "AED 129.00", fptr(129))})
	require.NoError(t, err)

	items, _, err := repo.ListProducts(models.ProductFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Currency)
	assert.Equal(t, "AED", *items[0].Currency)
}

func TestDeleteCascadesToHistory(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$10.00", fptr(10))})
	require.NoError(t, err)

	_, err = repo.DB.Exec("DELETE FROM products WHERE asin = ?", "B001")
	require.NoError(t, err)

	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDeleteCascadesToHistory_AcrossPooledConnections(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpsertProducts([]models.ProductRecord{record("B001", "Mouse", "$10.00", fptr(10))})
	require.NoError(t, err)

	// Drop the idle connection so the delete runs on a fresh one; the
	// cascade must hold on every connection the pool hands out.
	repo.DB.SetMaxIdleConns(0)

	_, err = repo.DB.Exec("DELETE FROM products WHERE asin = ?", "B001")
	require.NoError(t, err)

	history, err := repo.GetHistory("B001", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
