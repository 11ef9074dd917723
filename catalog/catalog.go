// Package catalog provides file-backed site and rule providers.
//
// A catalog file is a single YAML document listing sites and adapter rule
// documents. It mirrors the Postgres providers' interfaces so a crawl can
// run without a database, and doubles as a seed format for one.
package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/compscan/compscan/compdb"
	"gopkg.in/yaml.v3"
)

// File is a loaded catalog. It satisfies scrape.SiteProvider and
// scrape.RuleProvider.
type File struct {
	SiteList []compdb.Site                  `yaml:"sites"`
	RuleDocs map[string]compdb.RuleDocument `yaml:"rules"`
}

// Load reads and validates a catalog file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	f := &File{}
	if err := yaml.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, s := range f.SiteList {
		if s.Name == "" || s.ListingURL == "" {
			return nil, fmt.Errorf("catalog %s: site %d needs both name and listing_url", path, i)
		}
		if s.AdapterKind == "" {
			f.SiteList[i].AdapterKind = compdb.AdapterGeneric
		}
		if s.Tier == "" {
			f.SiteList[i].Tier = compdb.TierBoth
		}
	}
	return f, nil
}

// Sites returns the enabled sites matching the given access tier, with
// "both"-tier sites always included.
func (f *File) Sites(_ context.Context, tier string) ([]compdb.Site, error) {
	var sites []compdb.Site
	for _, s := range f.SiteList {
		if !s.Enabled {
			continue
		}
		if s.Tier == compdb.TierBoth || s.Tier == tier {
			sites = append(sites, s)
		}
	}
	return sites, nil
}

// AllSites returns every site in the catalog regardless of tier or
// enabled flag.
func (f *File) AllSites(_ context.Context) ([]compdb.Site, error) {
	return append([]compdb.Site{}, f.SiteList...), nil
}

// RulesFor returns the catalog's rule document for an adapter kind.
func (f *File) RulesFor(_ context.Context, kind string) (*compdb.RuleDocument, error) {
	doc, ok := f.RuleDocs[kind]
	if !ok {
		return nil, compdb.ErrNoRuleDocument
	}
	doc.Kind = kind
	return &doc, nil
}
