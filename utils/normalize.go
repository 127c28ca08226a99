package utils

import (
	"strconv"
	"strings"
)

// NormalizePrice converts raw price text like "$59.99", "59,99 €" or
// "AED 1,234.56" into a number. When both separators are present the comma
// is a thousands separator; a lone comma is a decimal separator. Returns
// nil for empty or non-parseable input, never an error.
func NormalizePrice(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	keep := b.String()
	if keep == "" {
		return nil
	}

	hasDot := strings.Contains(keep, ".")
	hasComma := strings.Contains(keep, ",")
	switch {
	case hasDot && hasComma:
		keep = strings.ReplaceAll(keep, ",", "")
	case hasComma:
		keep = strings.ReplaceAll(keep, ",", ".")
	}

	price, err := strconv.ParseFloat(keep, 64)
	if err != nil {
		return nil
	}
	return &price
}

// NormalizeRating converts rating label text like "4.5 out of 5 stars"
// into a number. Returns nil when nothing parseable remains.
func NormalizeRating(raw string) *float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "out of 5 stars", "")
	s = strings.ReplaceAll(s, "out of 5", "")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	keep := b.String()
	if keep == "" {
		return nil
	}

	rating, err := strconv.ParseFloat(keep, 64)
	if err != nil {
		return nil
	}
	return &rating
}

// ExtractCurrency matches raw price text against known currency codes and
// symbols, first match wins. A bare "$" with no explicit code counts as USD.
// Returns "" when no currency can be recognized.
func ExtractCurrency(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToUpper(raw)
	switch {
	case strings.Contains(s, "AED"):
		return "AED"
	case strings.Contains(s, "USD"):
		return "USD"
	case strings.Contains(s, "EUR") || strings.Contains(raw, "€"):
		return "EUR"
	case strings.Contains(s, "GBP") || strings.Contains(raw, "£"):
		return "GBP"
	case strings.Contains(raw, "$"):
		return "USD"
	case strings.Contains(s, "SAR"):
		return "SAR"
	}
	return ""
}
