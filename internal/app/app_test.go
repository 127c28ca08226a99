package app_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"MarketScraper/internal/app"
	"MarketScraper/internal/database"
	"MarketScraper/internal/models"
	"MarketScraper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(url, waitCSS string, delay models.DelayRange, timeout time.Duration) (string, error) {
	return f.pages[url], nil
}

func card(asin, title, price string, sponsored bool) string {
	badge := ""
	if sponsored {
		badge = `<span class="s-sponsored-label-text">Sponsored</span>`
	}
	return fmt.Sprintf(`<div data-asin="%s" data-component-type="s-search-result">%s
		<h2><a class="a-link-normal" href="/dp/%s">%s</a></h2>
		<span class="a-price"><span class="a-offscreen">%s</span></span>
	</div>`, asin, badge, asin, title, price)
}

func page(cards, next string) string {
	return `<html><body><div class="s-main-slot">` + cards + `</div>` + next + `</body></html>`
}

func newTestApp(t *testing.T, fetcher *fakeFetcher) *app.App {
	t.Helper()
	cfg := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	repo := database.InitDB(cfg.Database.Path)
	t.Cleanup(repo.Close)
	a := &app.App{Config: cfg, Repo: repo}
	if fetcher != nil {
		a.Fetcher = fetcher
	}
	return a
}

// Two pages of search results: page one has 20 cards of which 2 are
// sponsored, page two adds 5 more and no next link. A two-page crawl must
// collect 23 records, persist all of them once, and persist nothing on an
// identical repeat run.
func TestRunScrape_EndToEnd(t *testing.T) {
	var cards1 string
	for i := 1; i <= 18; i++ {
		cards1 += card(fmt.Sprintf("B%03d", i), fmt.Sprintf("Product %d", i), "$10.00", false)
	}
	cards1 += card("S001", "Ad One", "$1.00", true)
	cards1 += card("S002", "Ad Two", "$2.00", true)

	var cards2 string
	for i := 19; i <= 23; i++ {
		cards2 += card(fmt.Sprintf("B%03d", i), fmt.Sprintf("Product %d", i), "$20.00", false)
	}

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://www.amazon.com/s?k=usb+hub": page(cards1, `<a class="s-pagination-next" href="/s?page=2">Next</a>`),
		"https://www.amazon.com/s?page=2":    page(cards2, ""),
	}}
	a := newTestApp(t, fetcher)

	req := models.ScrapeRequest{Keyword: "usb hub", MaxPages: 2}
	resp, err := a.RunScrape(req)
	require.NoError(t, err)
	assert.Equal(t, 23, resp.Fetched)
	assert.Equal(t, 23, resp.InsertedOrUpdated)

	resp, err = a.RunScrape(req)
	require.NoError(t, err)
	assert.Equal(t, 23, resp.Fetched)
	assert.Equal(t, 0, resp.InsertedOrUpdated)

	_, total, err := a.Repo.ListProducts(models.ProductFilters{PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 23, total)
}

func TestRunScrape_RequiresExactlyOneInput(t *testing.T) {
	a := newTestApp(t, &fakeFetcher{})

	_, err := a.RunScrape(models.ScrapeRequest{})
	assert.ErrorIs(t, err, models.ErrExactlyOneInput)

	_, err = a.RunScrape(models.ScrapeRequest{Keyword: "x", SearchURL: "https://www.amazon.com/s?k=x"})
	assert.ErrorIs(t, err, models.ErrExactlyOneInput)
}

func TestRunScrape_NoFetcherIsUpstreamFailure(t *testing.T) {
	a := newTestApp(t, nil)

	_, err := a.RunScrape(models.ScrapeRequest{Keyword: "x"})
	assert.True(t, errors.Is(err, app.ErrUpstream))
}
