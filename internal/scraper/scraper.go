package scraper

import (
	"time"

	"MarketScraper/internal/models"
)

// Fetcher defines the contract for the page-loading collaborator. The crawl
// pipeline never drives a browser directly; it only asks a Fetcher for the
// markup of one URL at a time.
//
// Implementations must sleep a random duration within delay before issuing
// the request and wait up to timeout for content matching waitCSS to appear.
// Whatever markup is available is returned even on partial readiness; an
// error means a hard failure and ends the caller's traversal.
type Fetcher interface {
	Fetch(url, waitCSS string, delay models.DelayRange, timeout time.Duration) (string, error)
}
