package compdb

import "time"

// Adapter kinds. A kind selects which default patterns and resolver
// priority order a site uses; it is never a code branch of its own.
const (
	AdapterGeneric    = "generic"
	AdapterRaffleHall = "rafflehall"
	AdapterPrizePot   = "prizepot"
)

// Access tiers for sites. Sites with TierBoth are crawled for every
// invocation; the other tiers only when the invocation asks for them.
const (
	TierFree    = "free"
	TierPremium = "premium"
	TierBoth    = "both"
)

// Crawl run statuses. A run is created as STARTED and finalized exactly
// once as OK or ERROR.
const (
	RunStarted = "STARTED"
	RunOK      = "OK"
	RunError   = "ERROR"
)

// Site describes one configured source website. Administrator-managed;
// read at crawl start and immutable for the duration of a run.
type Site struct {
	ID           int    `json:"id" yaml:"-"`
	Name         string `json:"name" yaml:"name"`
	ListingURL   string `json:"listing_url" yaml:"listing_url"`
	LinkSelector string `json:"link_selector" yaml:"link_selector"`
	AdapterKind  string `json:"adapter_kind" yaml:"adapter_kind"`
	DelayMs      int    `json:"delay_ms" yaml:"delay_ms"`
	Tier         string `json:"tier" yaml:"tier"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
}

// RuleDocument is the configuration bag driving the shared resolvers for
// one adapter kind. Every field is optional; absent fields fall back to
// the built-in defaults for the kind. Rules are data, never code.
type RuleDocument struct {
	Kind string `json:"kind,omitempty" yaml:"kind"`

	// Prize title extraction.
	TitleSelectors []string `json:"title_selectors,omitempty" yaml:"title_selectors"`

	// Price resolution.
	PriceSelectors []string `json:"price_selectors,omitempty" yaml:"price_selectors"`
	PriceAnchors   []string `json:"price_anchors,omitempty" yaml:"price_anchors"`
	PriceWindow    int      `json:"price_window,omitempty" yaml:"price_window"`
	PriceMin       float64  `json:"price_min,omitempty" yaml:"price_min"`
	PriceMax       float64  `json:"price_max,omitempty" yaml:"price_max"`
	PricePreferMin float64  `json:"price_prefer_min,omitempty" yaml:"price_prefer_min"`
	PricePreferMax float64  `json:"price_prefer_max,omitempty" yaml:"price_prefer_max"`
	PriceFracMax   float64  `json:"price_frac_max,omitempty" yaml:"price_frac_max"`

	// Ticket totals resolution.
	TotalSelectors     []string `json:"total_selectors,omitempty" yaml:"total_selectors"`
	SoldSelectors      []string `json:"sold_selectors,omitempty" yaml:"sold_selectors"`
	RemainingSelectors []string `json:"remaining_selectors,omitempty" yaml:"remaining_selectors"`
	TotalPatterns      []string `json:"total_patterns,omitempty" yaml:"total_patterns"`
	SoldPatterns       []string `json:"sold_patterns,omitempty" yaml:"sold_patterns"`
	RemainingPatterns  []string `json:"remaining_patterns,omitempty" yaml:"remaining_patterns"`

	// Link discovery.
	LinkAllow string `json:"link_allow,omitempty" yaml:"link_allow"`
	LinkDeny  string `json:"link_deny,omitempty" yaml:"link_deny"`
	MaxLinks  int    `json:"max_links,omitempty" yaml:"max_links"`

	// Fallback names another kind whose defaults backfill absent fields.
	Fallback string `json:"fallback,omitempty" yaml:"fallback"`
}

// Competition is the canonical normalized record produced for one detail
// page. Identity is the URL: re-scraping the same URL updates in place.
// Nil numeric fields mean the quantity could not be determined.
type Competition struct {
	PrizeName        string    `json:"prize_name"`
	SiteName         string    `json:"site_name"`
	EntryFee         *float64  `json:"entry_fee"`
	TotalTickets     *int      `json:"total_tickets"`
	TicketsSold      *int      `json:"tickets_sold"`
	TicketsRemaining *int      `json:"tickets_remaining"`
	URL              string    `json:"url"`
	LastScraped      time.Time `json:"last_scraped"`
}

// CrawlRun records the lifecycle of a single site's processing within one
// orchestrator invocation.
type CrawlRun struct {
	ID         string     `json:"id"`
	SiteName   string     `json:"site_name"`
	Status     string     `json:"status"`
	ItemCount  int        `json:"item_count"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
