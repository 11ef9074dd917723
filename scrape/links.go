package scrape

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/compscan/compscan/compdb"
)

// DiscoverLinks fetches a site's listing page and returns candidate detail
// page URLs: anchors matched by the site's link selector, resolved to
// absolute URLs, deduplicated, allow/deny filtered, and capped. An empty
// result is a valid outcome, not an error.
func DiscoverLinks(ctx context.Context, f Fetcher, site compdb.Site, prof *Profile) ([]string, error) {
	_, body, err := f.Fetch(ctx, site.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("listing fetch for %s: %w", site.Name, err)
	}
	page, err := ParsePage(site.ListingURL, body)
	if err != nil {
		return nil, fmt.Errorf("listing parse for %s: %w", site.Name, err)
	}

	selector := site.LinkSelector
	if selector == "" {
		selector = "a"
	}

	var hrefs []string
	page.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
			return
		}
		// Selector may target a card wrapping the anchor.
		if href, ok := s.Find("a").First().Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})

	resolved := resolveLinks(hrefs, site.ListingURL)

	var links []string
	seen := make(map[string]struct{}, len(resolved))
	for _, link := range resolved {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		if prof.linkAllow != nil && !prof.linkAllow.MatchString(link) {
			continue
		}
		if prof.linkDeny != nil && prof.linkDeny.MatchString(link) {
			continue
		}
		links = append(links, link)
		if len(links) >= prof.Rules.MaxLinks {
			break
		}
	}
	return links, nil
}

// resolveLinks turns raw href values into absolute URLs against the
// listing page, stripping fragments and dropping anything that isn't
// plain http(s) (mailto, ftp, javascript and friends).
func resolveLinks(hrefs []string, listingURL string) []string {
	ref, err := url.Parse(listingURL)
	if err != nil {
		return nil
	}

	var urls []string
	for _, href := range hrefs {
		u, err := ref.Parse(href)
		if err != nil {
			continue
		}
		u.Fragment = ""
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		urls = append(urls, u.String())
	}
	return urls
}
