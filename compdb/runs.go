package compdb

import (
	"context"
	"fmt"
)

// StartRun records the beginning of one site's processing within an
// invocation. The run is created in the STARTED state.
func (p *Postgres) StartRun(ctx context.Context, run *CrawlRun) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO crawl_runs
		(id, site_name, status, item_count, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.SiteName, run.Status, run.ItemCount, run.StartedAt)
	if err != nil {
		return fmt.Errorf("Unable to create crawl run for site %s: %v", run.SiteName, err)
	}
	return nil
}

// FinishRun finalizes a run exactly once with its terminal status, item
// count and finish timestamp.
func (p *Postgres) FinishRun(ctx context.Context, run *CrawlRun) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE crawl_runs
		SET status = $2, item_count = $3, error = $4, finished_at = $5
		WHERE id = $1`,
		run.ID, run.Status, run.ItemCount, run.Error, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("Unable to finalize crawl run %s: %v", run.ID, err)
	}
	return nil
}

// RecentRuns returns the most recent crawl runs, newest first.
func (p *Postgres) RecentRuns(ctx context.Context, limit int) ([]CrawlRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, site_name, status, item_count, COALESCE(error, ''), started_at, finished_at
		FROM crawl_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("Unable to get crawl runs: %v", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		var r CrawlRun
		if err := rows.Scan(&r.ID, &r.SiteName, &r.Status, &r.ItemCount,
			&r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return runs, fmt.Errorf("Unable to scan crawl run row: %v", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
