package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Totals holds the resolved ticket quantities for one page. Nil means the
// quantity could not be determined. Remaining is always a derived value:
// max(total − sold, 0) when both are known, nil otherwise. A remaining
// count read off the page only ever serves to derive the other two.
type Totals struct {
	Total     *int
	Sold      *int
	Remaining *int
}

// Key/value shapes that client-side counter widgets leave behind in inline
// scripts, e.g. `ticketsRemaining: 380` or "sold_tickets":"120".
var (
	embeddedTotalPat     = regexp.MustCompile(`(?i)["']?(?:max_?tickets?|total_?tickets?|ticket_?limit|max_?entries)["']?\s*[:=]\s*["']?([\d,]+)`)
	embeddedSoldPat      = regexp.MustCompile(`(?i)["']?(?:tickets?_?sold|sold_?tickets?|sold_?count)["']?\s*[:=]\s*["']?([\d,]+)`)
	embeddedRemainingPat = regexp.MustCompile(`(?i)["']?(?:tickets?_?remaining|remaining_?tickets?|tickets?_?left)["']?\s*[:=]\s*["']?([\d,]+)`)
)

// Data attributes that carry counts on progress widgets and the like.
var (
	totalAttrNames     = []string{"data-total", "data-max-tickets", "data-total-tickets", "data-ticket-limit"}
	soldAttrNames      = []string{"data-sold", "data-tickets-sold", "data-sold-tickets"}
	remainingAttrNames = []string{"data-remaining", "data-tickets-remaining", "data-tickets-left"}
)

// ResolveTotals extracts (total, sold, remaining) for a page. Sources are
// tried in the profile's priority order; the first source yielding any of
// the three quantities wins, with the gaps derived from the other two.
func ResolveTotals(p *Page, prof *Profile) Totals {
	for _, src := range prof.TotalsOrder {
		var t Totals
		switch src {
		case TotalsSelectors:
			t = selectorTotals(p, prof)
		case TotalsEmbedded:
			t = embeddedTotals(p)
		case TotalsPatterns:
			t = patternTotals(p, prof)
		}
		if t.Total != nil || t.Sold != nil || t.Remaining != nil {
			return finishTotals(t)
		}
	}
	return Totals{}
}

// finishTotals derives whichever quantity is missing when the other two
// are known, applies the consistency rule, and recomputes remaining.
func finishTotals(t Totals) Totals {
	if t.Total == nil && t.Sold != nil && t.Remaining != nil {
		total := *t.Sold + *t.Remaining
		t.Total = &total
	}
	if t.Sold == nil && t.Total != nil && t.Remaining != nil {
		if sold := *t.Total - *t.Remaining; sold >= 0 {
			t.Sold = &sold
		}
	}
	// A sold count beyond the total is noise from a stale widget or a
	// matched prize value; the total is the sturdier figure, keep it.
	if t.Total != nil && t.Sold != nil && *t.Sold > *t.Total {
		t.Sold = nil
	}
	if t.Total != nil && t.Sold != nil {
		remaining := *t.Total - *t.Sold
		if remaining < 0 {
			remaining = 0
		}
		t.Remaining = &remaining
	} else {
		t.Remaining = nil
	}
	return t
}

// selectorTotals reads counts from the rule-specified selectors.
func selectorTotals(p *Page, prof *Profile) Totals {
	return Totals{
		Total:     firstSelectorCount(p, prof.Rules.TotalSelectors),
		Sold:      firstSelectorCount(p, prof.Rules.SoldSelectors),
		Remaining: firstSelectorCount(p, prof.Rules.RemainingSelectors),
	}
}

func firstSelectorCount(p *Page, selectors []string) *int {
	for _, sel := range selectors {
		var found *int
		p.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := ParseCount(s.Text()); v != nil {
				found = v
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// embeddedTotals scans inline script content and DOM attributes for counts
// that client-rendered widgets bake into the raw markup. Progress and
// meter elements are read as max=total, value=sold.
func embeddedTotals(p *Page) Totals {
	var t Totals
	p.eachNode(func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if n.DataAtom == atom.Script {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				scanEmbeddedText(n.FirstChild.Data, &t)
			}
			return
		}
		if n.DataAtom == atom.Progress || n.DataAtom == atom.Meter {
			for _, a := range n.Attr {
				switch a.Key {
				case "max":
					setIfNil(&t.Total, ParseCount(a.Val))
				case "value":
					setIfNil(&t.Sold, ParseCount(a.Val))
				}
			}
			return
		}
		for _, a := range n.Attr {
			switch {
			case matchesAttr(a.Key, totalAttrNames):
				setIfNil(&t.Total, ParseCount(a.Val))
			case matchesAttr(a.Key, soldAttrNames):
				setIfNil(&t.Sold, ParseCount(a.Val))
			case matchesAttr(a.Key, remainingAttrNames):
				setIfNil(&t.Remaining, ParseCount(a.Val))
			}
		}
	})
	return t
}

func scanEmbeddedText(script string, t *Totals) {
	if m := embeddedTotalPat.FindStringSubmatch(script); m != nil {
		setIfNil(&t.Total, ParseCount(m[1]))
	}
	if m := embeddedSoldPat.FindStringSubmatch(script); m != nil {
		setIfNil(&t.Sold, ParseCount(m[1]))
	}
	if m := embeddedRemainingPat.FindStringSubmatch(script); m != nil {
		setIfNil(&t.Remaining, ParseCount(m[1]))
	}
}

func matchesAttr(key string, names []string) bool {
	for _, name := range names {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func setIfNil(dst **int, v *int) {
	if *dst == nil && v != nil {
		*dst = v
	}
}

// patternTotals matches the adapter's regex pattern lists against the
// visible page text. Patterns within each list are fallbacks for each
// other: the first one that matches wins for that quantity.
func patternTotals(p *Page, prof *Profile) Totals {
	text := p.Text()
	return Totals{
		Total:     firstPatternCount(text, prof.totalPats),
		Sold:      firstPatternCount(text, prof.soldPats),
		Remaining: firstPatternCount(text, prof.remainingPats),
	}
}

func firstPatternCount(text string, patterns []*regexp.Regexp) *int {
	for _, pat := range patterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if v := ParseCount(m[1]); v != nil {
				return v
			}
		}
	}
	return nil
}
