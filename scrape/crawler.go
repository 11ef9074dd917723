package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/compscan/compscan/compdb"
	"github.com/google/uuid"
)

// defaultDelay is the politeness pause between successive detail-page
// fetches against the same site when the site doesn't configure one.
const defaultDelay = 250 * time.Millisecond

// SiteProvider supplies the configured sites for an invocation. Sites is
// the enabled, tier-filtered view; AllSites the unfiltered fallback used
// when the filtered view is empty, so a misconfigured enabled flag never
// silently produces an empty crawl.
type SiteProvider interface {
	Sites(ctx context.Context, tier string) ([]compdb.Site, error)
	AllSites(ctx context.Context) ([]compdb.Site, error)
}

// RuleProvider supplies the stored rule document for an adapter kind, or
// compdb.ErrNoRuleDocument when only built-in defaults apply.
type RuleProvider interface {
	RulesFor(ctx context.Context, kind string) (*compdb.RuleDocument, error)
}

// RecordSink persists a batch of competition records, upserting by URL.
type RecordSink interface {
	UpsertCompetitions(ctx context.Context, comps []compdb.Competition) error
}

// RunLedger records crawl run lifecycle entries.
type RunLedger interface {
	StartRun(ctx context.Context, run *compdb.CrawlRun) error
	FinishRun(ctx context.Context, run *compdb.CrawlRun) error
}

// Params carries the invocation trigger's hints: an optional free-text
// query matched case-insensitively against prize names, and an access
// tier selecting which sites to crawl.
type Params struct {
	Query string
	Tier  string
}

// Crawler walks every configured site sequentially, turning each site's
// detail pages into normalized competition records. One Crawler may serve
// many invocations; all mutable crawl state is scoped to a single Run call
// so overlapping invocations cannot corrupt each other.
type Crawler struct {
	sites   SiteProvider
	rules   RuleProvider
	fetcher Fetcher
	sink    RecordSink
	ledger  RunLedger
	logger  *slog.Logger
}

// New creates a Crawler from its collaborators.
func New(sites SiteProvider, rules RuleProvider, fetcher Fetcher, sink RecordSink, ledger RunLedger, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		sites:   sites,
		rules:   rules,
		fetcher: fetcher,
		sink:    sink,
		ledger:  ledger,
		logger:  logger,
	}
}

// invocation holds the state owned by a single Run call: the records
// accumulated so far and the cross-site seen-URL set guaranteeing each
// detail URL is processed at most once per invocation.
type invocation struct {
	params   Params
	profiles map[string]*Profile
	seen     map[string]struct{}
	records  []compdb.Competition
}

// Run executes one crawl invocation: every matching site in order, every
// discovered detail page in order, one in-flight fetch at a time. Site and
// page failures are isolated; only a configuration-provider failure aborts
// the invocation. The returned records are everything normalized in this
// run, independent of what the sink accepted.
func (c *Crawler) Run(ctx context.Context, params Params) ([]compdb.Competition, error) {
	if params.Tier == "" {
		params.Tier = compdb.TierFree
	}

	sites, err := c.sites.Sites(ctx, params.Tier)
	if err != nil {
		return nil, fmt.Errorf("site provider: %w", err)
	}
	if len(sites) == 0 {
		c.logger.Warn("no enabled sites for tier, falling back to full site list", "tier", params.Tier)
		sites, err = c.sites.AllSites(ctx)
		if err != nil {
			return nil, fmt.Errorf("site provider: %w", err)
		}
	}

	inv := &invocation{
		params:   params,
		profiles: make(map[string]*Profile),
		seen:     make(map[string]struct{}),
	}
	if err := c.loadProfiles(ctx, sites, inv); err != nil {
		return nil, err
	}

	for _, site := range sites {
		c.crawlSite(ctx, site, inv)
	}
	return inv.records, nil
}

// loadProfiles resolves the rule document for every adapter kind the
// invocation needs, up front, so a rule-provider outage fails the whole
// invocation instead of half of it. A missing document just means the
// kind's built-in defaults; a malformed one falls back to defaults with a
// warning rather than taking the site down.
func (c *Crawler) loadProfiles(ctx context.Context, sites []compdb.Site, inv *invocation) error {
	for _, site := range sites {
		kind := site.AdapterKind
		if _, ok := inv.profiles[kind]; ok {
			continue
		}
		doc, err := c.rules.RulesFor(ctx, kind)
		if err != nil && !errors.Is(err, compdb.ErrNoRuleDocument) {
			return fmt.Errorf("rule provider: %w", err)
		}
		prof, err := ProfileFor(kind, doc)
		if err != nil {
			c.logger.Warn("invalid rule document, using built-in defaults", "kind", kind, "err", err)
			if prof, err = ProfileFor(kind, nil); err != nil {
				return fmt.Errorf("default rules for kind %s: %w", kind, err)
			}
		}
		inv.profiles[kind] = prof
	}
	return nil
}

// crawlSite processes one site end to end: ledger start, link discovery,
// sequential detail scrapes with the politeness delay, batch upsert,
// ledger finish. Individual page failures are swallowed and logged; a
// listing fetch failure, batch write failure, or panic marks the site's
// run as an error without disturbing the sites that follow.
func (c *Crawler) crawlSite(ctx context.Context, site compdb.Site, inv *invocation) {
	run := &compdb.CrawlRun{
		ID:        uuid.NewString(),
		SiteName:  site.Name,
		Status:    compdb.RunStarted,
		StartedAt: time.Now().UTC(),
	}
	if err := c.ledger.StartRun(ctx, run); err != nil {
		c.logger.Warn("unable to record run start", "site", site.Name, "err", err)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while crawling site", "site", site.Name, "panic", r)
			c.finishRun(ctx, run, compdb.RunError, 0, fmt.Errorf("panic: %v", r))
		}
	}()

	prof := inv.profiles[site.AdapterKind]
	links, err := DiscoverLinks(ctx, c.fetcher, site, prof)
	if err != nil {
		c.logger.Warn("listing fetch failed, skipping site", "site", site.Name, "err", err)
		c.finishRun(ctx, run, compdb.RunError, 0, err)
		return
	}
	c.logger.Info("discovered links", "site", site.Name, "count", len(links))

	delay := time.Duration(site.DelayMs) * time.Millisecond
	if site.DelayMs <= 0 {
		delay = defaultDelay
	}

	var batch []compdb.Competition
	fetched := false
	for _, link := range links {
		if _, ok := inv.seen[link]; ok {
			continue
		}
		inv.seen[link] = struct{}{}

		if fetched && !sleepCtx(ctx, delay) {
			break
		}
		fetched = true

		rec, err := c.scrapeDetail(ctx, site, prof, link)
		if err != nil {
			c.logger.Warn("skipping detail page", "site", site.Name, "url", link, "err", err)
			continue
		}
		if rec == nil || !matchQuery(rec.PrizeName, inv.params.Query) {
			continue
		}
		batch = append(batch, *rec)
	}

	inv.records = append(inv.records, batch...)

	if err := c.sink.UpsertCompetitions(ctx, batch); err != nil {
		c.logger.Error("batch upsert failed", "site", site.Name, "items", len(batch), "err", err)
		c.finishRun(ctx, run, compdb.RunError, len(batch), err)
		return
	}
	c.finishRun(ctx, run, compdb.RunOK, len(batch), nil)
}

// scrapeDetail fetches and normalizes one detail page. A nil record with a
// nil error means the page was intentionally skipped (no prize title, or
// filtered out by the invocation query).
func (c *Crawler) scrapeDetail(ctx context.Context, site compdb.Site, prof *Profile, link string) (*compdb.Competition, error) {
	_, body, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	page, err := ParsePage(link, body)
	if err != nil {
		return nil, err
	}

	title := page.Title(prof)
	if title == "" {
		c.logger.Debug("no prize title, skipping page", "site", site.Name, "url", link)
		return nil, nil
	}
	totals := ResolveTotals(page, prof)
	return &compdb.Competition{
		PrizeName:        title,
		SiteName:         site.Name,
		EntryFee:         ResolvePrice(page, prof),
		TotalTickets:     totals.Total,
		TicketsSold:      totals.Sold,
		TicketsRemaining: totals.Remaining,
		URL:              page.URL,
		LastScraped:      time.Now().UTC(),
	}, nil
}

// finishRun finalizes a run exactly once.
func (c *Crawler) finishRun(ctx context.Context, run *compdb.CrawlRun, status string, items int, cause error) {
	now := time.Now().UTC()
	run.Status = status
	run.ItemCount = items
	run.FinishedAt = &now
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := c.ledger.FinishRun(ctx, run); err != nil {
		c.logger.Warn("unable to record run finish", "site", run.SiteName, "err", err)
	}
}

// sleepCtx pauses for the politeness delay, returning false if the
// invocation context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// matchQuery reports whether a prize name satisfies the invocation's
// free-text query (case-insensitive substring; empty query matches all).
func matchQuery(prizeName, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(prizeName), strings.ToLower(query))
}

// NopSink is a RecordSink that discards batches. Used for DB-less runs
// where the caller only wants the returned records.
type NopSink struct{}

func (NopSink) UpsertCompetitions(context.Context, []compdb.Competition) error { return nil }

// NopLedger is a RunLedger that records nothing.
type NopLedger struct{}

func (NopLedger) StartRun(context.Context, *compdb.CrawlRun) error  { return nil }
func (NopLedger) FinishRun(context.Context, *compdb.CrawlRun) error { return nil }
