package main

import (
	"MarketScraper/internal/app"
	"MarketScraper/internal/server"

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

	application := app.New()
	defer application.Close()

	// The scrape endpoint needs the browser; queries and exports do not.
	// A failed launch degrades /scrape to 502 instead of killing the API.
	if err := application.WithBrowser(); err != nil {
		zap.L().Warn("browser unavailable, scrape requests will fail upstream", zap.Error(err))
	}

	if err := server.Start(application); err != nil {
		zap.L().Fatal("failed to start server", zap.Error(err))
	}
}
