package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is one parsed detail or listing page. It keeps the raw markup for
// anchored-text scanning alongside the parsed document, and lazily caches
// the visible text since several resolvers share it.
type Page struct {
	URL  string
	doc  *goquery.Document
	raw  string
	text string
}

// ParsePage parses raw HTML fetched from pageURL.
func ParsePage(pageURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return &Page{URL: pageURL, doc: doc, raw: string(body)}, nil
}

// Find evaluates a CSS selector against the page.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// Raw returns the unparsed page markup.
func (p *Page) Raw() string {
	return p.raw
}

// Text returns the visible page text with scripts, styles and whitespace
// noise removed, words separated by single spaces.
func (p *Page) Text() string {
	if p.text == "" {
		for _, n := range p.doc.Nodes {
			p.text = collectVisibleText(n)
			break
		}
	}
	return p.text
}

// Title extracts the prize title using the profile's title selectors, then
// the og:title meta tag, then the document title. Returns "" when nothing
// usable is found; the orchestrator skips such pages.
func (p *Page) Title(prof *Profile) string {
	for _, sel := range prof.Rules.TitleSelectors {
		if t := strings.TrimSpace(p.doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t, ok := p.doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// eachNode walks every node of the document in depth-first order.
func (p *Page) eachNode(fn func(*html.Node)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		fn(n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range p.doc.Nodes {
		walk(n)
	}
}

// collectVisibleText extracts all visible text from a node subtree.
func collectVisibleText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strings.Join(strings.Fields(text), " "))
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
