package scrape

import (
	"math"
	"strconv"
	"strings"
)

// ParseMoney extracts a monetary amount from a noisy text fragment such as
// "£2.50 per entry" or "Only $0.99!". Everything except digits and the
// decimal point is stripped before parsing. Returns nil when the fragment
// holds no parseable finite number; absence is never reported as zero.
func ParseMoney(text string) *float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s == "." {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseCount extracts an integer count from a noisy text fragment such as
// "1,000 tickets" or "Sold: 349". All non-digit characters are stripped
// before parsing. Returns nil when the fragment holds no digits.
func ParseCount(text string) *int {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
