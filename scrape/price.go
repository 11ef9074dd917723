package scrape

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Common price containers seen across marketplace templates, tried after
// any rule-specified selectors.
var commonPriceSelectors = []string{
	".price",
	"[itemprop=price]",
	".product-price",
	".woocommerce-Price-amount",
	".ticket-price",
	".entry-price",
}

// Data attributes known to carry a per-entry price.
var priceAttrNames = []string{
	"data-price",
	"data-product-price",
	"data-ticket-price",
	"data-amount",
}

var (
	currencyAmountPat = regexp.MustCompile(`[£$€]\s*([\d,]+(?:\.\d+)?)`)
	bareAmountPat     = regexp.MustCompile(`\b(\d+(?:\.\d{1,2})?)\b`)
)

// maxTextScan bounds how much visible text the last-resort scans look at.
const maxTextScan = 20000

// ResolvePrice extracts a single plausible per-entry price from a page, or
// nil when nothing survives filtering. Sources are tried in the profile's
// priority order; the first source producing a surviving candidate wins.
// A structured-data price is trusted and bypasses the heuristics entirely.
func ResolvePrice(p *Page, prof *Profile) *float64 {
	for _, src := range prof.PriceOrder {
		var candidates []float64
		switch src {
		case PriceStructured:
			if v := structuredPrice(p); v != nil {
				return v
			}
			continue
		case PriceAnchors:
			candidates = anchorPrices(p, prof)
		case PriceSelectors:
			candidates = selectorPrices(p, prof)
		case PriceAttributes:
			candidates = attributePrices(p)
		case PriceTextScan:
			candidates = textScanPrices(p)
		}
		if pick := pickPrice(filterPriceWindow(candidates, prof), prof); pick != nil {
			return pick
		}
	}
	return nil
}

// structuredPrice looks for a JSON-LD product block and returns its offer
// price. Pages that publish one are unambiguous, so no windowing or
// disambiguation is applied.
func structuredPrice(p *Page) *float64 {
	var found *float64
	p.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v interface{}
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		if price := productOfferPrice(v); price != nil {
			found = price
			return false
		}
		return true
	})
	return found
}

// productOfferPrice walks decoded JSON-LD looking for a Product node and
// returns the price of its offer. Handles @graph wrappers, arrays, and
// price published as either a string or a number.
func productOfferPrice(v interface{}) *float64 {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if p := productOfferPrice(item); p != nil {
				return p
			}
		}
	case map[string]interface{}:
		if t, _ := node["@type"].(string); strings.EqualFold(t, "Product") {
			if p := offerPrice(node["offers"]); p != nil {
				return p
			}
		}
		if graph, ok := node["@graph"]; ok {
			if p := productOfferPrice(graph); p != nil {
				return p
			}
		}
	}
	return nil
}

func offerPrice(v interface{}) *float64 {
	switch offer := v.(type) {
	case []interface{}:
		for _, o := range offer {
			if p := offerPrice(o); p != nil {
				return p
			}
		}
	case map[string]interface{}:
		switch price := offer["price"].(type) {
		case string:
			return ParseMoney(price)
		case float64:
			if !math.IsNaN(price) && !math.IsInf(price, 0) {
				f := price
				return &f
			}
		}
	}
	return nil
}

// anchorPrices scans a bounded character window after each rule anchor
// phrase for currency amounts. The whole scan runs on the lowercased
// markup: ToLower can change byte lengths for some runes, so offsets found
// in it must never be used to slice the original. Digits and currency
// marks survive lowercasing unchanged.
func anchorPrices(p *Page, prof *Profile) []float64 {
	window := prof.Rules.PriceWindow
	lower := strings.ToLower(p.Raw())

	var candidates []float64
	for _, anchor := range prof.Rules.PriceAnchors {
		needle := strings.ToLower(anchor)
		from := 0
		for {
			i := strings.Index(lower[from:], needle)
			if i < 0 {
				break
			}
			start := from + i + len(needle)
			// Amounts usually sit just before the anchor too ("£2.50 per
			// entry"), so the window extends a little in both directions.
			back := start - len(needle) - window/2
			if back < 0 {
				back = 0
			}
			end := start + window
			if end > len(lower) {
				end = len(lower)
			}
			for _, m := range currencyAmountPat.FindAllStringSubmatch(lower[back:end], -1) {
				if v := ParseMoney(m[1]); v != nil {
					candidates = append(candidates, *v)
				}
			}
			from = start
		}
	}
	return candidates
}

// selectorPrices collects amounts from rule-specified selectors, in order,
// then from the common marketplace price containers.
func selectorPrices(p *Page, prof *Profile) []float64 {
	var candidates []float64
	selectors := append(append([]string{}, prof.Rules.PriceSelectors...), commonPriceSelectors...)
	for _, sel := range selectors {
		p.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v := ParseMoney(s.Text()); v != nil {
				candidates = append(candidates, *v)
			}
		})
	}
	return candidates
}

// attributePrices scans element attributes known to carry a price.
func attributePrices(p *Page) []float64 {
	var candidates []float64
	p.eachNode(func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, a := range n.Attr {
			for _, name := range priceAttrNames {
				if a.Key == name {
					if v := ParseMoney(a.Val); v != nil {
						candidates = append(candidates, *v)
					}
				}
			}
		}
	})
	return candidates
}

// textScanPrices is the last resort: currency-prefixed amounts anywhere in
// the visible text, and failing that a relaxed scan for bare decimals.
func textScanPrices(p *Page) []float64 {
	text := p.Text()
	if len(text) > maxTextScan {
		text = text[:maxTextScan]
	}

	var candidates []float64
	for _, m := range currencyAmountPat.FindAllStringSubmatch(text, -1) {
		if v := ParseMoney(m[1]); v != nil {
			candidates = append(candidates, *v)
		}
	}
	if len(candidates) > 0 {
		return candidates
	}
	for _, m := range bareAmountPat.FindAllStringSubmatch(text, -1) {
		if v := ParseMoney(m[1]); v != nil {
			candidates = append(candidates, *v)
		}
	}
	return candidates
}

// filterPriceWindow keeps candidates inside the acceptable numeric window.
func filterPriceWindow(candidates []float64, prof *Profile) []float64 {
	var kept []float64
	for _, c := range candidates {
		if c >= prof.Rules.PriceMin && c <= prof.Rules.PriceMax {
			kept = append(kept, c)
		}
	}
	return kept
}

// pickPrice disambiguates among surviving candidates. Per-entry ticket
// prices are typically small fractional amounts while prize values and
// cash alternatives are large round numbers, so fractional candidates win:
// smallest fractional under the threshold, else smallest fractional inside
// the preferred window, else smallest fractional, else smallest integer
// inside the preferred window, else the smallest candidate of any kind.
func pickPrice(candidates []float64, prof *Profile) *float64 {
	if len(candidates) == 0 {
		return nil
	}

	var fracUnder, fracPreferred, fracAll, intPreferred, all []float64
	for _, c := range candidates {
		all = append(all, c)
		if c != math.Trunc(c) {
			fracAll = append(fracAll, c)
			if c < prof.Rules.PriceFracMax {
				fracUnder = append(fracUnder, c)
			}
			if c >= prof.Rules.PricePreferMin && c <= prof.Rules.PricePreferMax {
				fracPreferred = append(fracPreferred, c)
			}
		} else if c >= prof.Rules.PricePreferMin && c <= prof.Rules.PricePreferMax {
			intPreferred = append(intPreferred, c)
		}
	}

	for _, tier := range [][]float64{fracUnder, fracPreferred, fracAll, intPreferred, all} {
		if len(tier) > 0 {
			m := tier[0]
			for _, c := range tier[1:] {
				if c < m {
					m = c
				}
			}
			return &m
		}
	}
	return nil
}
