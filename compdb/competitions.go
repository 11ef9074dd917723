package compdb

import (
	"context"
	"fmt"
)

// UpsertCompetitions writes a batch of competition records keyed by detail
// URL. Re-scraped URLs overwrite the existing row; nothing is ever deleted
// here. The whole batch is written in one transaction so a failed write
// leaves the table untouched.
func (p *Postgres) UpsertCompetitions(ctx context.Context, comps []Competition) error {
	if len(comps) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Unable to begin competition upsert: %v", err)
	}
	defer tx.Rollback()

	for _, c := range comps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO competitions
			(url, prize_name, site_name, entry_fee, total_tickets, tickets_sold, tickets_remaining, last_scraped)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (url) DO UPDATE SET
				prize_name=$2, site_name=$3, entry_fee=$4, total_tickets=$5,
				tickets_sold=$6, tickets_remaining=$7, last_scraped=$8`,
			c.URL, c.PrizeName, c.SiteName, c.EntryFee, c.TotalTickets,
			c.TicketsSold, c.TicketsRemaining, c.LastScraped)
		if err != nil {
			return fmt.Errorf("Unable to upsert competition with url %s: %v", c.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Unable to commit competition upsert: %v", err)
	}
	return nil
}

// SearchCompetitions returns stored competitions whose prize name contains
// the given query, case-insensitively. An empty query returns everything,
// most recently scraped first.
func (p *Postgres) SearchCompetitions(ctx context.Context, query string) ([]Competition, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT url, prize_name, site_name, entry_fee, total_tickets, tickets_sold, tickets_remaining, last_scraped
		FROM competitions
		WHERE ($1 = '' OR prize_name ILIKE '%' || $1 || '%')
		ORDER BY last_scraped DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("Unable to search competitions for %q: %v", query, err)
	}
	defer rows.Close()

	var comps []Competition
	for rows.Next() {
		var c Competition
		if err := rows.Scan(&c.URL, &c.PrizeName, &c.SiteName, &c.EntryFee,
			&c.TotalTickets, &c.TicketsSold, &c.TicketsRemaining, &c.LastScraped); err != nil {
			return comps, fmt.Errorf("Unable to scan competition row: %v", err)
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}
