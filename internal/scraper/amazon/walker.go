package amazon

import (
	"net/url"
	"strings"
	"time"

	"MarketScraper/internal/models"
	"MarketScraper/internal/scraper"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHost is used when a start URL carries no usable scheme/authority.
const DefaultHost = "https://www.amazon.com"

// fetchTimeout bounds a single page load; a stalled fetch only ends that
// page's contribution, not the whole crawl.
const fetchTimeout = 45 * time.Second

// Walker drives the sequential page-by-page traversal of search results.
// Each page's URL comes from the previous page's next-link, so there is no
// intra-crawl parallelism.
type Walker struct {
	Fetcher scraper.Fetcher
}

func NewWalker(f scraper.Fetcher) *Walker {
	return &Walker{Fetcher: f}
}

// BuildSearchURL builds the storefront search URL for a keyword.
func BuildSearchURL(keyword, domain string) string {
	return "https://www." + domain + "/s?k=" + url.QueryEscape(strings.TrimSpace(keyword))
}

// CrawlByKeyword walks up to maxPages of search results for a keyword and
// returns the collected records deduplicated by ASIN.
func (w *Walker) CrawlByKeyword(keyword, domain string, maxPages int, delay models.DelayRange) []models.ProductRecord {
	host := "https://www." + domain
	all := w.walk(BuildSearchURL(keyword, domain), host, maxPages, delay)
	return dedupBy(all, func(r models.ProductRecord) string { return r.ASIN })
}

// CrawlByURL walks up to maxPages starting from an explicit search URL. The
// storefront host is inferred from that URL; records are deduplicated by
// detail link since arbitrary listing pages may repeat ASIN-less entries.
func (w *Walker) CrawlByURL(startURL string, maxPages int, delay models.DelayRange) []models.ProductRecord {
	host := DefaultHost
	if u, err := url.Parse(startURL); err == nil && u.Scheme != "" && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	all := w.walk(startURL, host, maxPages, delay)
	return dedupBy(all, func(r models.ProductRecord) string { return r.ProductURL })
}

// walk is the shared traversal loop: fetch, parse, accumulate, advance.
// It terminates on the page ceiling, on empty markup, on a fetch failure
// (returning whatever was collected so far) or when no next link is found.
func (w *Walker) walk(startURL, host string, maxPages int, delay models.DelayRange) []models.ProductRecord {
	log := zap.L().With(zap.String("crawl_id", uuid.NewString()), zap.String("host", host))

	var all []models.ProductRecord
	pageURL := startURL
	for pageNo := 0; pageURL != "" && pageNo < maxPages; pageNo++ {
		markup, err := w.Fetcher.Fetch(pageURL, DefaultWaitSelector, delay, fetchTimeout)
		if err != nil {
			log.Warn("fetch failed, finishing with partial results",
				zap.String("url", pageURL), zap.Int("page", pageNo+1), zap.Error(err))
			break
		}
		if markup == "" {
			break
		}

		records, next := ParseSearchPage(markup, host)
		all = append(all, records...)
		log.Info("parsed search page",
			zap.Int("page", pageNo+1),
			zap.Int("records", len(records)),
			zap.Bool("has_next", next != ""))
		pageURL = next
	}
	return all
}

// dedupBy keeps one record per key, in first-occurrence order, with the
// last occurrence winning so later pages override earlier ones.
func dedupBy(records []models.ProductRecord, key func(models.ProductRecord) string) []models.ProductRecord {
	index := make(map[string]int, len(records))
	out := make([]models.ProductRecord, 0, len(records))
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			out[i] = rec
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}
