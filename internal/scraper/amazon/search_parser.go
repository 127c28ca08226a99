package amazon

import (
	"net/url"
	"regexp"
	"strings"

	"MarketScraper/internal/models"
	"MarketScraper/utils"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultWaitSelector is the search-result container the fetcher waits for
// before handing markup back.
const DefaultWaitSelector = "div.s-main-slot"

// sponsoredSelectors mark a card as an ad. Checked in order; any hit
// excludes the card from the catalog.
var sponsoredSelectors = []string{
	"span.s-sponsored-label-text",
	"span.puis-label-popover-default",
	"span[aria-label='Sponsored']",
}

// titleSelectors is the ordered fallback chain for the title anchor. The
// first selector that yields an element wins.
var titleSelectors = []string{
	"h2 a.a-link-normal",
	"h2.a-size-mini a",
	"a.a-link-normal.s-link-style",
	"a.a-link-normal.s-underline-text",
	"div.s-title-instructions-style a",
	"a[href*='/dp/']",
}

var (
	badgeCountRe  = regexp.MustCompile(`\(\d+\.?\d*[KM]?\)`)
	starsPhraseRe = regexp.MustCompile(`(?i)\d+\.?\d*\s*out of\s*\d+\.?\d*\s*stars`)
	reviewWordsRe = regexp.MustCompile(`(?i)\d{1,3}(,\d{3})*\s*(reviews?|ratings?)`)
)

// ParseSearchPage extracts product records and the absolute next-page URL
// from one page of search-result markup. host carries the scheme and
// authority used to resolve relative links, e.g. "https://www.amazon.com";
// it is threaded explicitly so concurrent crawls against different
// storefronts cannot interfere.
func ParseSearchPage(markup, host string) ([]models.ProductRecord, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		zap.L().Warn("failed to parse search page markup", zap.Error(err))
		return nil, ""
	}

	root := doc.Find(DefaultWaitSelector).First()
	container := root
	if root.Length() == 0 {
		// No result container; degrade to scanning the whole document.
		container = doc.Selection
	}

	var records []models.ProductRecord
	container.Find("div[data-asin][data-component-type='s-search-result']").Each(func(_ int, card *goquery.Selection) {
		asin := strings.TrimSpace(card.AttrOr("data-asin", ""))
		if asin == "" {
			return
		}
		if isSponsored(card) {
			return
		}
		title, href := parseTitleAndHref(card, asin, host)
		if title == "" || href == "" {
			return
		}

		priceRaw := parsePrice(card)
		records = append(records, models.ProductRecord{
			ASIN:       asin,
			Title:      title,
			ProductURL: href,
			ImageURL:   parseImage(card),
			PriceRaw:   priceRaw,
			Price:      utils.NormalizePrice(priceRaw),
			Rating:     utils.NormalizeRating(parseRating(card)),
		})
	})

	nextURL := ""
	if next := doc.Find("a.s-pagination-next:not(.s-pagination-disabled)").First(); next.Length() > 0 {
		if href, ok := next.Attr("href"); ok && strings.TrimSpace(href) != "" {
			nextURL = resolveURL(host, strings.TrimSpace(href))
		}
	}
	return records, nextURL
}

func isSponsored(card *goquery.Selection) bool {
	for _, sel := range sponsoredSelectors {
		if card.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// parseTitleAndHref finds the title anchor through the fallback chain and
// reconstructs the title from its child fragments, excluding rating and
// review annotations. Returns empty strings when the card has no usable
// title or link.
func parseTitleAndHref(card *goquery.Selection, asin, host string) (string, string) {
	var anchor *goquery.Selection
	for _, sel := range titleSelectors {
		if a := card.Find(sel).First(); a.Length() > 0 {
			anchor = a
			break
		}
	}
	if anchor == nil {
		return "", ""
	}

	var fragments []string
	anchor.Contents().Each(func(_ int, c *goquery.Selection) {
		node := c.Get(0)
		switch node.Type {
		case html.TextNode:
			text := strings.TrimSpace(node.Data)
			if text == "" {
				return
			}
			lower := strings.ToLower(text)
			if strings.Contains(lower, "out of") || strings.Contains(lower, "stars") || strings.Contains(lower, "rating") {
				return
			}
			fragments = append(fragments, text)
		case html.ElementNode:
			if node.Data != "span" {
				return
			}
			if hasRatingClass(c.AttrOr("class", "")) {
				return
			}
			text := strings.TrimSpace(c.Text())
			if text == "" {
				return
			}
			if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
				return
			}
			if isBadgeCount(text) {
				return
			}
			fragments = append(fragments, text)
		}
	})
	title := strings.TrimSpace(strings.Join(fragments, " "))

	if title == "" {
		// Second pass: take all anchor text and strip the known noise.
		full := strings.Join(strings.Fields(anchor.Text()), " ")
		full = badgeCountRe.ReplaceAllString(full, "")
		full = starsPhraseRe.ReplaceAllString(full, "")
		full = reviewWordsRe.ReplaceAllString(full, "")
		title = strings.TrimSpace(full)
	}
	if title == "" {
		return "", ""
	}

	href := strings.TrimSpace(anchor.AttrOr("href", ""))
	if strings.HasPrefix(href, "/") {
		href = resolveURL(host, href)
	}
	if strings.Contains(href, "/sspa/") || strings.Contains(href, "/gp/slredirect/") {
		// Redirect wrappers never point at the detail page; rebuild the
		// canonical link from the ASIN instead of following them.
		href = canonicalProductURL(asin, host)
	}
	return title, href
}

// hasRatingClass reports whether any class name marks the span as a
// review/rating annotation rather than title text.
func hasRatingClass(classAttr string) bool {
	for _, c := range strings.Fields(classAttr) {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "review") || strings.Contains(lower, "rating") {
			return true
		}
	}
	return false
}

// isBadgeCount reports whether the text is a pure count like "1,234",
// "2.1K" or "3M".
func isBadgeCount(text string) bool {
	s := strings.NewReplacer(",", "", ".", "", "K", "", "M", "").Replace(text)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// hasCurrencyMark reports whether the text carries a currency symbol or a
// known three-letter code.
func hasCurrencyMark(s string) bool {
	return strings.ContainsAny(s, "$€£") || strings.Contains(s, "AED") || strings.Contains(s, "SAR")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// parsePrice walks the price fallback chain and returns the first non-empty
// raw price text, or "" when the card shows no price at all.
func parsePrice(card *goquery.Selection) string {
	// (a) dedicated accessible price text
	if el := card.Find("span.a-price span.a-offscreen").First(); el.Length() > 0 {
		if text := strings.TrimSpace(el.Text()); text != "" {
			return text
		}
	}

	// (b) any offscreen span carrying a currency mark
	found := ""
	card.Find("span.a-offscreen").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		if text != "" && hasCurrencyMark(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	// (c) composed whole + fraction pair
	if whole := card.Find("span.a-price-whole").First(); whole.Length() > 0 {
		w := strings.ReplaceAll(strings.TrimSpace(whole.Text()), ",", "")
		f := "00"
		if frac := card.Find("span.a-price-fraction").First(); frac.Length() > 0 {
			f = strings.TrimSpace(frac.Text())
		}
		return "$" + w + "." + f
	}

	// (d) spans whose class mentions "price"
	card.Find("span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(el.AttrOr("class", "")), "price") {
			return true
		}
		text := strings.TrimSpace(el.Text())
		if text != "" && hasCurrencyMark(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	// (e) last resort: any span with a currency mark and a digit
	card.Find("span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		if text != "" && hasCurrencyMark(text) && hasDigit(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// parseRating returns the raw accessible rating label, e.g.
// "4.5 out of 5 stars", or "" when the card has none.
func parseRating(card *goquery.Selection) string {
	el := card.Find("span[aria-label$='out of 5 stars']").First()
	if el.Length() == 0 {
		el = card.Find("span.a-icon-alt").First()
	}
	if el.Length() == 0 {
		return ""
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}
	// Some result layouts keep the label only in the attribute.
	return strings.TrimSpace(el.AttrOr("aria-label", ""))
}

// parseImage returns the card's image URL from the first populated source
// attribute. For srcset only the first candidate is kept.
func parseImage(card *goquery.Selection) string {
	img := card.Find("img.s-image").First()
	if img.Length() == 0 {
		img = card.Find("img").First()
	}
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-image-src", "srcset"} {
		v, ok := img.Attr(attr)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if attr == "srcset" {
			v = strings.Fields(v)[0]
		}
		return v
	}
	return ""
}

// canonicalProductURL builds the detail link for an ASIN on the given host.
func canonicalProductURL(asin, host string) string {
	return strings.TrimRight(host, "/") + "/dp/" + asin
}

// resolveURL resolves href against host, returning href untouched when
// either side fails to parse.
func resolveURL(host, href string) string {
	base, err := url.Parse(host)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
