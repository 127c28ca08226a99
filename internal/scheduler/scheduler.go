package scheduler

import (
	"context"
	"errors"
	"fmt"

	"MarketScraper/internal/app"
	"MarketScraper/internal/models"
	"MarketScraper/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Run registers every configured watch on a cron schedule and blocks until
// ctx is cancelled. Due runs are queued into a bounded worker pool so a
// slow crawl cannot pile browser tabs up; a run that finds the queue full
// is skipped and retried on the next tick.
func Run(ctx context.Context, a *app.App) error {
	watches := a.Config.Watches
	if len(watches) == 0 {
		return errors.New("no watches configured")
	}

	workers := utils.GetOptimalWorkerCount(a.Config.Scraper.Workers)
	jobs := make(chan models.ScrapeRequest, len(watches))

	for w := 1; w <= workers; w++ {
		go func(workerID int) {
			for req := range jobs {
				resp, err := a.RunScrape(req)
				if err != nil {
					zap.L().Error("watch scrape failed",
						zap.Int("worker", workerID),
						zap.String("keyword", req.Keyword),
						zap.Error(err))
					continue
				}
				zap.L().Info("watch scrape finished",
					zap.Int("worker", workerID),
					zap.String("keyword", req.Keyword),
					zap.Int("fetched", resp.Fetched),
					zap.Int("inserted_or_updated", resp.InsertedOrUpdated))
			}
		}(w)
	}

	c := cron.New()
	for _, watch := range watches {
		lo, hi := a.Config.Scraper.DelayLo, a.Config.Scraper.DelayHi
		req := models.ScrapeRequest{
			Keyword:  watch.Keyword,
			Domain:   watch.Domain,
			MaxPages: watch.MaxPages,
			DelayLo:  &lo,
			DelayHi:  &hi,
		}
		req.Defaults()

		keyword := watch.Keyword
		if _, err := c.AddFunc(watch.Schedule, func() {
			select {
			case jobs <- req:
			default:
				zap.L().Warn("watch queue full, skipping run", zap.String("keyword", keyword))
			}
		}); err != nil {
			return fmt.Errorf("invalid schedule %q for watch %q: %w", watch.Schedule, keyword, err)
		}
	}

	c.Start()
	zap.L().Info("watch scheduler started",
		zap.Int("watches", len(watches)),
		zap.Int("workers", workers))

	<-ctx.Done()
	<-c.Stop().Done()
	close(jobs)
	zap.L().Info("watch scheduler stopped")
	return nil
}
