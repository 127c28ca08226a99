package app

import (
	"errors"
	"fmt"
	"os"

	"MarketScraper/internal/database"
	"MarketScraper/internal/models"
	"MarketScraper/internal/scraper"
	"MarketScraper/internal/scraper/amazon"
	"MarketScraper/pkg/config"

	"go.uber.org/zap"
)

// ErrUpstream marks scrape-pipeline failures, as opposed to persistence
// failures; the HTTP layer maps it to an upstream-failure status.
var ErrUpstream = errors.New("scrape pipeline failed")

// App is the main application structure holding all dependencies.
type App struct {
	Config  *config.Config
	Repo    *database.DBRepository
	Fetcher scraper.Fetcher

	browser *amazon.BrowserFetcher
}

// New creates an application instance from the config file. The config path
// can be overridden through the CONFIG_PATH environment variable.
func New() *App {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}
	cfg := config.LoadConfig(path)
	repo := database.InitDB(cfg.Database.Path)
	return &App{
		Config: cfg,
		Repo:   repo,
	}
}

// WithBrowser launches the headless browser fetcher. Callers that only
// query or export never need it.
func (a *App) WithBrowser() error {
	browser, err := amazon.NewBrowserFetcher(a.Config.Scraper.Headless)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	a.browser = browser
	a.Fetcher = browser
	return nil
}

// Close releases the browser and the database connection.
func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	a.Repo.Close()
}

// RunScrape executes one crawl per the request, persists the collected
// records and reports how many were fetched and inserted-or-updated.
// Fetch failures mid-crawl degrade to a partial result; only a missing
// pipeline or a persistence failure surfaces as an error.
func (a *App) RunScrape(req models.ScrapeRequest) (models.ScrapeResponse, error) {
	req.Defaults()
	if err := req.Validate(); err != nil {
		return models.ScrapeResponse{}, err
	}
	if a.Fetcher == nil {
		return models.ScrapeResponse{}, fmt.Errorf("%w: no fetcher configured", ErrUpstream)
	}

	walker := amazon.NewWalker(a.Fetcher)
	delay := req.Delay()

	var records []models.ProductRecord
	if req.Keyword != "" {
		records = walker.CrawlByKeyword(req.Keyword, req.Domain, req.MaxPages, delay)
	} else {
		records = walker.CrawlByURL(req.SearchURL, req.MaxPages, delay)
	}

	changed, err := a.Repo.UpsertProducts(records)
	if err != nil {
		return models.ScrapeResponse{Fetched: len(records)}, err
	}

	zap.L().Info("scrape run finished",
		zap.Int("fetched", len(records)),
		zap.Int("inserted_or_updated", changed))
	return models.ScrapeResponse{Fetched: len(records), InsertedOrUpdated: changed}, nil
}
