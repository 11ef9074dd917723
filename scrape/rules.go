package scrape

import (
	"fmt"
	"regexp"

	"github.com/compscan/compscan/compdb"
)

// PriceSource names one strategy the price resolver can draw candidates
// from. Profiles order these; the resolver logic itself is shared.
type PriceSource int

const (
	PriceStructured PriceSource = iota // JSON-LD product data (trusted)
	PriceAnchors                       // text window after an anchor phrase
	PriceSelectors                     // rule + common price containers
	PriceAttributes                    // data-* attributes carrying a price
	PriceTextScan                      // bounded full-text scan
)

// TotalsSource names one strategy the totals resolver can draw counts from.
type TotalsSource int

const (
	TotalsSelectors TotalsSource = iota // rule-specified count selectors
	TotalsEmbedded                      // inline scripts + DOM attributes
	TotalsPatterns                      // regex against visible text
)

// Profile binds an adapter kind to its resolver priority order and a fully
// defaulted, validated rule document. Built once per invocation per kind;
// resolvers only ever read it.
type Profile struct {
	Kind        string
	Rules       compdb.RuleDocument
	PriceOrder  []PriceSource
	TotalsOrder []TotalsSource

	totalPats     []*regexp.Regexp
	soldPats      []*regexp.Regexp
	remainingPats []*regexp.Regexp
	linkAllow     *regexp.Regexp
	linkDeny      *regexp.Regexp
}

// Built-in rule defaults per adapter kind. A stored rule document overlays
// these field by field; adding a site never means adding resolver code.
func defaultRules(kind string) compdb.RuleDocument {
	doc := compdb.RuleDocument{
		Kind:           kind,
		TitleSelectors: []string{"h1"},
		PriceAnchors:   []string{"per entry", "per ticket", "entry fee"},
		PriceWindow:    160,
		PriceMin:       0.01,
		PriceMax:       100,
		PricePreferMin: 0.10,
		PricePreferMax: 50,
		PriceFracMax:   1.0,
		TotalPatterns: []string{
			`(?i)([\d,]+)\s*entries`,
			`(?i)max(?:imum)?\s*(?:of\s*)?([\d,]+)\s*(?:tickets|entries)`,
		},
		SoldPatterns: []string{
			`(?i)sold:?\s*([\d,]+)`,
			`(?i)([\d,]+)\s*sold`,
		},
		RemainingPatterns: []string{
			`(?i)remaining:?\s*([\d,]+)`,
			`(?i)([\d,]+)\s*(?:tickets?\s*)?(?:left|remaining)`,
		},
		MaxLinks: 60,
	}

	switch kind {
	case compdb.AdapterRaffleHall:
		// Banner phrasing used across this operator's pages. The generic
		// max-of pattern stays as a fallback for redesigned pages.
		doc.TotalPatterns = []string{
			`(?i)PRIZE\s+HAS\s+A\s+MAX\s+OF\s+([\d,]+)\s+TICKETS`,
			`(?i)MAX\s+OF\s+([\d,]+)\s+TICKETS`,
			`(?i)max(?:imum)?\s*(?:of\s*)?([\d,]+)\s*(?:tickets|entries)`,
		}
		doc.SoldPatterns = []string{`(?i)SOLD:?\s*([\d,]+)`}
		doc.RemainingPatterns = []string{`(?i)REMAINING:?\s*([\d,]+)`}
		doc.PriceAnchors = []string{"per ticket", "per entry"}
	case compdb.AdapterPrizePot:
		doc.TotalPatterns = []string{
			`(?i)([\d,]+)\s*entries`,
			`(?i)max(?:imum)?\s*(?:of\s*)?([\d,]+)\s*(?:tickets|entries)`,
		}
		doc.SoldPatterns = []string{`(?i)sold:?\s*([\d,]+)`}
	}
	return doc
}

// Resolver priority order per adapter kind. Structured product data always
// leads for prices since it is trusted when present.
func resolverOrder(kind string) ([]PriceSource, []TotalsSource) {
	switch kind {
	case compdb.AdapterRaffleHall:
		// Text banners are this operator's most reliable signal.
		return []PriceSource{PriceStructured, PriceAnchors, PriceSelectors, PriceAttributes, PriceTextScan},
			[]TotalsSource{TotalsPatterns, TotalsSelectors, TotalsEmbedded}
	case compdb.AdapterPrizePot:
		// Counts are injected by a client-side widget but remain visible
		// in the raw markup, so the embedded scan leads.
		return []PriceSource{PriceStructured, PriceSelectors, PriceAttributes, PriceAnchors, PriceTextScan},
			[]TotalsSource{TotalsEmbedded, TotalsSelectors, TotalsPatterns}
	default:
		return []PriceSource{PriceStructured, PriceAnchors, PriceSelectors, PriceAttributes, PriceTextScan},
			[]TotalsSource{TotalsSelectors, TotalsEmbedded, TotalsPatterns}
	}
}

// ProfileFor builds the resolver profile for an adapter kind, overlaying
// the stored rule document (may be nil) on the kind's built-in defaults.
// If the document names a fallback kind, that kind's defaults form the
// base instead. All regex patterns are compiled here, once, so resolver
// calls never re-guard rule fields.
func ProfileFor(kind string, doc *compdb.RuleDocument) (*Profile, error) {
	base := defaultRules(kind)
	if doc != nil && doc.Fallback != "" {
		base = defaultRules(doc.Fallback)
		base.Kind = kind
	}
	if doc != nil {
		base = overlayRules(base, *doc)
	}

	prices, totals := resolverOrder(kind)
	prof := &Profile{
		Kind:        kind,
		Rules:       base,
		PriceOrder:  prices,
		TotalsOrder: totals,
	}

	var err error
	if prof.totalPats, err = compilePatterns(base.TotalPatterns); err != nil {
		return nil, fmt.Errorf("rules for %s: total pattern: %w", kind, err)
	}
	if prof.soldPats, err = compilePatterns(base.SoldPatterns); err != nil {
		return nil, fmt.Errorf("rules for %s: sold pattern: %w", kind, err)
	}
	if prof.remainingPats, err = compilePatterns(base.RemainingPatterns); err != nil {
		return nil, fmt.Errorf("rules for %s: remaining pattern: %w", kind, err)
	}
	if base.LinkAllow != "" {
		if prof.linkAllow, err = regexp.Compile(base.LinkAllow); err != nil {
			return nil, fmt.Errorf("rules for %s: link allow pattern: %w", kind, err)
		}
	}
	if base.LinkDeny != "" {
		if prof.linkDeny, err = regexp.Compile(base.LinkDeny); err != nil {
			return nil, fmt.Errorf("rules for %s: link deny pattern: %w", kind, err)
		}
	}
	return prof, nil
}

// overlayRules applies every non-zero field of doc over base. The zoo of
// ifs is deliberate: each recognized option is enumerated exactly once,
// here, instead of being re-defaulted at every use site.
func overlayRules(base, doc compdb.RuleDocument) compdb.RuleDocument {
	if len(doc.TitleSelectors) > 0 {
		base.TitleSelectors = doc.TitleSelectors
	}
	if len(doc.PriceSelectors) > 0 {
		base.PriceSelectors = doc.PriceSelectors
	}
	if len(doc.PriceAnchors) > 0 {
		base.PriceAnchors = doc.PriceAnchors
	}
	if doc.PriceWindow > 0 {
		base.PriceWindow = doc.PriceWindow
	}
	if doc.PriceMin > 0 {
		base.PriceMin = doc.PriceMin
	}
	if doc.PriceMax > 0 {
		base.PriceMax = doc.PriceMax
	}
	if doc.PricePreferMin > 0 {
		base.PricePreferMin = doc.PricePreferMin
	}
	if doc.PricePreferMax > 0 {
		base.PricePreferMax = doc.PricePreferMax
	}
	if doc.PriceFracMax > 0 {
		base.PriceFracMax = doc.PriceFracMax
	}
	if len(doc.TotalSelectors) > 0 {
		base.TotalSelectors = doc.TotalSelectors
	}
	if len(doc.SoldSelectors) > 0 {
		base.SoldSelectors = doc.SoldSelectors
	}
	if len(doc.RemainingSelectors) > 0 {
		base.RemainingSelectors = doc.RemainingSelectors
	}
	if len(doc.TotalPatterns) > 0 {
		base.TotalPatterns = doc.TotalPatterns
	}
	if len(doc.SoldPatterns) > 0 {
		base.SoldPatterns = doc.SoldPatterns
	}
	if len(doc.RemainingPatterns) > 0 {
		base.RemainingPatterns = doc.RemainingPatterns
	}
	if doc.LinkAllow != "" {
		base.LinkAllow = doc.LinkAllow
	}
	if doc.LinkDeny != "" {
		base.LinkDeny = doc.LinkDeny
	}
	if doc.MaxLinks > 0 {
		base.MaxLinks = doc.MaxLinks
	}
	return base
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
