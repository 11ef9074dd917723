package compdb

import (
	"context"
	"database/sql"
	"fmt"
)

const siteColumns = `id, name, listing_url, link_selector, adapter_kind, delay_ms, tier, enabled`

// Sites returns the enabled sites matching the given access tier. Sites
// configured with the "both" tier are always included.
func (p *Postgres) Sites(ctx context.Context, tier string) ([]Site, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+siteColumns+`
		FROM sites
		WHERE enabled = TRUE AND (tier = $1 OR tier = $2)
		ORDER BY id ASC`, tier, TierBoth)
	if err != nil {
		return nil, fmt.Errorf("Unable to get sites for tier %s: %v", tier, err)
	}
	return scanSites(rows)
}

// AllSites returns every configured site regardless of tier or enabled
// flag. Used as a fallback when the enabled-filtered query comes back
// empty, so a misconfigured flag doesn't silently produce an empty crawl.
func (p *Postgres) AllSites(ctx context.Context) ([]Site, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+siteColumns+`
		FROM sites
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("Unable to get sites: %v", err)
	}
	return scanSites(rows)
}

func scanSites(rows *sql.Rows) ([]Site, error) {
	defer rows.Close()
	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.ListingURL, &s.LinkSelector,
			&s.AdapterKind, &s.DelayMs, &s.Tier, &s.Enabled); err != nil {
			return sites, fmt.Errorf("Unable to scan site row: %v", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
