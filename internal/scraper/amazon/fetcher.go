package amazon

import (
	"fmt"
	"math/rand"
	"time"

	"MarketScraper/internal/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// BrowserFetcher loads search pages in a headless browser. One fetcher owns
// one browser; crawls share it but each fetch runs in its own tab.
type BrowserFetcher struct {
	browser *rod.Browser
}

// NewBrowserFetcher launches a browser and connects to it.
func NewBrowserFetcher(headless bool) (*BrowserFetcher, error) {
	u, err := launcher.New().Headless(headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &BrowserFetcher{browser: browser}, nil
}

// Close shuts the underlying browser down.
func (f *BrowserFetcher) Close() {
	if f.browser != nil {
		_ = f.browser.Close()
	}
}

// Fetch implements scraper.Fetcher. It sleeps a random duration within
// delay, navigates, polls for waitCSS up to timeout and returns whatever
// markup is present. Result pages render lazily, so partial readiness still
// yields usable cards.
func (f *BrowserFetcher) Fetch(pageURL, waitCSS string, delay models.DelayRange, timeout time.Duration) (string, error) {
	sleepWithin(delay)

	page, err := stealth.Page(f.browser)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.Timeout(timeout).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		zap.L().Warn("page load wait ended early", zap.String("url", pageURL), zap.Error(err))
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if has, _, err := page.Has(waitCSS); err == nil && has {
			break
		}
		time.Sleep(400 * time.Millisecond)
	}

	// Light scrolls to trigger lazy-loaded cards further down the page.
	_, _ = page.Eval(`() => window.scrollTo(0, 1200)`)
	time.Sleep(time.Second)
	_, _ = page.Eval(`() => window.scrollTo(0, 2400)`)
	time.Sleep(800 * time.Millisecond)

	markup, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page markup for %s: %w", pageURL, err)
	}
	return markup, nil
}

// sleepWithin pauses for a random duration inside the delay range to avoid
// request bursts against the storefront.
func sleepWithin(delay models.DelayRange) {
	lo, hi := delay.Lo, delay.Hi
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	secs := lo + rand.Float64()*(hi-lo)
	time.Sleep(time.Duration(secs * float64(time.Second)))
}
