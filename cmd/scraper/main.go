package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MarketScraper/internal/app"
	"MarketScraper/internal/models"
	"MarketScraper/internal/scheduler"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	task := flag.String("task", "scrape", "Task to run: scrape, export, or watch")
	keyword := flag.String("keyword", "", "Search keyword (scrape task)")
	startURL := flag.String("url", "", "Explicit search URL (scrape task)")
	pages := flag.Int("pages", 0, "Page ceiling, overrides config (scrape task)")
	out := flag.String("out", "", "File for the CSV export (default stdout)")
	flag.Parse()

	application := app.New()
	defer application.Close()

	zap.L().Info("running task", zap.String("task", *task))

	switch *task {
	case "scrape":
		runScrape(application, *keyword, *startURL, *pages)

	case "export":
		runExport(application, *out)

	case "watch":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := application.WithBrowser(); err != nil {
			zap.L().Fatal("failed to launch browser", zap.Error(err))
		}
		if err := scheduler.Run(ctx, application); err != nil {
			zap.L().Fatal("watch scheduler failed", zap.Error(err))
		}

	default:
		zap.L().Fatal("unknown task", zap.String("task", *task))
	}
}

func runScrape(application *app.App, keyword, startURL string, pages int) {
	if err := application.WithBrowser(); err != nil {
		zap.L().Fatal("failed to launch browser", zap.Error(err))
	}

	lo, hi := application.Config.Scraper.DelayLo, application.Config.Scraper.DelayHi
	req := models.ScrapeRequest{
		Keyword:   keyword,
		SearchURL: startURL,
		Domain:    application.Config.Scraper.Domain,
		MaxPages:  application.Config.Scraper.MaxPages,
		DelayLo:   &lo,
		DelayHi:   &hi,
	}
	if pages > 0 {
		req.MaxPages = pages
	}

	resp, err := application.RunScrape(req)
	if err != nil {
		zap.L().Fatal("scrape failed", zap.Error(err))
	}
	zap.L().Info("scrape finished",
		zap.Int("fetched", resp.Fetched),
		zap.Int("inserted_or_updated", resp.InsertedOrUpdated))
}

func runExport(application *app.App, out string) {
	text, err := application.Repo.ExportCSV(models.ProductFilters{PageSize: 1000})
	if err != nil {
		zap.L().Fatal("export failed", zap.Error(err))
	}
	if out == "" {
		fmt.Println(text)
		return
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		zap.L().Fatal("failed to write export file", zap.String("path", out), zap.Error(err))
	}
	zap.L().Info("export written", zap.String("path", out))
}
