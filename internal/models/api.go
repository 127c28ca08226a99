package models

import "errors"

// ScrapeRequest is the body of POST /scrape. Exactly one of Keyword or
// SearchURL must be set.
type ScrapeRequest struct {
	Keyword   string   `json:"keyword"`
	SearchURL string   `json:"search_url"`
	Domain    string   `json:"domain"`
	MaxPages  int      `json:"max_pages"`
	DelayLo   *float64 `json:"delay_lo"`
	DelayHi   *float64 `json:"delay_hi"`
}

// ErrExactlyOneInput is returned when a scrape request supplies both or
// neither of keyword and search_url.
var ErrExactlyOneInput = errors.New("provide exactly one of keyword or search_url")

// Defaults fills unset fields and clamps max_pages to the allowed range.
// The delay fields are pointers so an explicit zero is kept; only absent or
// negative delays take the defaults.
func (r *ScrapeRequest) Defaults() {
	if r.Domain == "" {
		r.Domain = "amazon.com"
	}
	if r.MaxPages < 1 {
		r.MaxPages = 1
	}
	if r.MaxPages > 10 {
		r.MaxPages = 10
	}
	if r.DelayLo == nil || *r.DelayLo < 0 {
		v := 2.5
		r.DelayLo = &v
	}
	if r.DelayHi == nil || *r.DelayHi < 0 {
		v := 5.0
		r.DelayHi = &v
	}
	if *r.DelayHi < *r.DelayLo {
		r.DelayHi = r.DelayLo
	}
}

// Delay returns the request's delay range. Defaults must have run first.
func (r *ScrapeRequest) Delay() DelayRange {
	return DelayRange{Lo: *r.DelayLo, Hi: *r.DelayHi}
}

// Validate checks the keyword/search_url exclusivity rule.
func (r *ScrapeRequest) Validate() error {
	if (r.Keyword == "") == (r.SearchURL == "") {
		return ErrExactlyOneInput
	}
	return nil
}

// ScrapeResponse reports what a scrape run collected and persisted.
type ScrapeResponse struct {
	Fetched           int `json:"fetched"`
	InsertedOrUpdated int `json:"inserted_or_updated"`
}

// ProductsResponse is the paginated listing envelope.
type ProductsResponse struct {
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
	Items    []Product `json:"items"`
}

// HistoryResponse lists the recorded price points for one ASIN,
// oldest first.
type HistoryResponse struct {
	ASIN   string              `json:"asin"`
	Count  int                 `json:"count"`
	Points []PriceHistoryEntry `json:"points"`
}
