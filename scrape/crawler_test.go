package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/compscan/compscan/compdb"
	"github.com/stretchr/testify/assert"
)

// stubFetcher serves canned HTML by URL, failing where told to.
type stubFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (int, []byte, error) {
	if f.fail[url] {
		return 500, nil, fmt.Errorf("get %s: http 500 Internal Server Error", url)
	}
	body, ok := f.pages[url]
	if !ok {
		return 404, nil, fmt.Errorf("get %s: http 404 Not Found", url)
	}
	return 200, []byte(body), nil
}

type fakeSites struct {
	enabled []compdb.Site
	all     []compdb.Site
	err     error
	gotTier string
}

func (f *fakeSites) Sites(_ context.Context, tier string) ([]compdb.Site, error) {
	f.gotTier = tier
	return f.enabled, f.err
}

func (f *fakeSites) AllSites(context.Context) ([]compdb.Site, error) {
	return f.all, nil
}

type fakeRules struct {
	docs map[string]*compdb.RuleDocument
	err  error
}

func (f *fakeRules) RulesFor(_ context.Context, kind string) (*compdb.RuleDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[kind]
	if !ok {
		return nil, compdb.ErrNoRuleDocument
	}
	return doc, nil
}

type fakeSink struct {
	batches [][]compdb.Competition
	failFor map[string]bool
}

func (f *fakeSink) UpsertCompetitions(_ context.Context, comps []compdb.Competition) error {
	if len(comps) > 0 && f.failFor[comps[0].SiteName] {
		return errors.New("write refused")
	}
	f.batches = append(f.batches, comps)
	return nil
}

type fakeLedger struct {
	finished []compdb.CrawlRun
}

func (f *fakeLedger) StartRun(context.Context, *compdb.CrawlRun) error { return nil }

func (f *fakeLedger) FinishRun(_ context.Context, run *compdb.CrawlRun) error {
	f.finished = append(f.finished, *run)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSite(name, listing string) compdb.Site {
	return compdb.Site{
		Name:        name,
		ListingURL:  listing,
		AdapterKind: compdb.AdapterGeneric,
		DelayMs:     1,
		Tier:        compdb.TierFree,
		Enabled:     true,
	}
}

func listingHTML(hrefs ...string) string {
	body := "<html><body>"
	for _, h := range hrefs {
		body += fmt.Sprintf(`<a href=%q>enter</a>`, h)
	}
	return body + "</body></html>"
}

func detailHTML(title, body string) string {
	return fmt.Sprintf(`<html><body><h1>%s</h1><p>%s</p></body></html>`, title, body)
}

func TestCrawlerRun(t *testing.T) {
	t.Run("successfully crawls every site and isolates a listing failure", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		beta := testSite("beta", "http://beta.test/comps")
		gamma := testSite("gamma", "http://gamma.test/comps")

		fetcher := &stubFetcher{
			pages: map[string]string{
				alpha.ListingURL:              listingHTML("/p/car", "/p/watch"),
				"http://alpha.test/p/car":     detailHTML("Dream Car", "£2.50 per entry. 350 entries. Sold: 40"),
				"http://alpha.test/p/watch":   detailHTML("Gold Watch", "£0.99 per entry"),
				gamma.ListingURL:              listingHTML("/p/console"),
				"http://gamma.test/p/console": detailHTML("Games Console", "Sold: 120 Remaining: 380"),
			},
			fail: map[string]bool{beta.ListingURL: true},
		}
		sink := &fakeSink{}
		ledger := &fakeLedger{}
		c := New(&fakeSites{enabled: []compdb.Site{alpha, beta, gamma}}, &fakeRules{}, fetcher, sink, ledger, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 3)

		car := records[0]
		assert.Equal(tt, "Dream Car", car.PrizeName)
		assert.Equal(tt, "alpha", car.SiteName)
		assertPrice(tt, 2.50, car.EntryFee)
		assertCount(tt, 350, car.TotalTickets)
		assertCount(tt, 40, car.TicketsSold)
		assertCount(tt, 310, car.TicketsRemaining)

		console := records[2]
		assert.Equal(tt, "gamma", console.SiteName)
		assertCount(tt, 500, console.TotalTickets)
		assertCount(tt, 380, console.TicketsRemaining)

		// One finished run per site, in order, with beta the only error.
		assert.Len(tt, ledger.finished, 3)
		assert.Equal(tt, compdb.RunOK, ledger.finished[0].Status)
		assert.Equal(tt, 2, ledger.finished[0].ItemCount)
		assert.Equal(tt, compdb.RunError, ledger.finished[1].Status)
		assert.NotEmpty(tt, ledger.finished[1].Error)
		assert.Equal(tt, compdb.RunOK, ledger.finished[2].Status)
		assert.Equal(tt, 1, ledger.finished[2].ItemCount)
		for _, run := range ledger.finished {
			assert.NotEmpty(tt, run.ID)
			assert.NotNil(tt, run.FinishedAt)
		}
	})

	t.Run("successfully processes a shared detail url only once per invocation", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		gamma := testSite("gamma", "http://gamma.test/comps")
		shared := "http://promo.test/p/tv"

		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL: listingHTML(shared),
			gamma.ListingURL: listingHTML(shared),
			shared:           detailHTML("Big TV", "£1.50 per entry"),
		}}
		ledger := &fakeLedger{}
		c := New(&fakeSites{enabled: []compdb.Site{alpha, gamma}}, &fakeRules{}, fetcher, &fakeSink{}, ledger, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
		assert.Equal(tt, "alpha", records[0].SiteName)
		assert.Equal(tt, compdb.RunOK, ledger.finished[1].Status)
		assert.Equal(tt, 0, ledger.finished[1].ItemCount)
	})

	t.Run("successfully filters records by the free-text query", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL:          listingHTML("/p/ps5", "/p/car"),
			"http://alpha.test/p/ps5": detailHTML("PS5 Bundle", "£0.99 per entry"),
			"http://alpha.test/p/car": detailHTML("Dream Car", "£2.50 per entry"),
		}}
		c := New(&fakeSites{enabled: []compdb.Site{alpha}}, &fakeRules{}, fetcher, &fakeSink{}, &fakeLedger{}, testLogger())

		records, err := c.Run(context.Background(), Params{Query: "ps5"})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
		assert.Equal(tt, "PS5 Bundle", records[0].PrizeName)
	})

	t.Run("successfully falls back to the full site list for an empty tier view", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL:          listingHTML("/p/car"),
			"http://alpha.test/p/car": detailHTML("Dream Car", "£2.50 per entry"),
		}}
		sites := &fakeSites{all: []compdb.Site{alpha}}
		c := New(sites, &fakeRules{}, fetcher, &fakeSink{}, &fakeLedger{}, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
		// An unset tier defaults to free before reaching the provider.
		assert.Equal(tt, compdb.TierFree, sites.gotTier)
	})

	t.Run("returns normalized records even when the batch write fails", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL:          listingHTML("/p/car"),
			"http://alpha.test/p/car": detailHTML("Dream Car", "£2.50 per entry"),
		}}
		ledger := &fakeLedger{}
		sink := &fakeSink{failFor: map[string]bool{"alpha": true}}
		c := New(&fakeSites{enabled: []compdb.Site{alpha}}, &fakeRules{}, fetcher, sink, ledger, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
		assert.Equal(tt, compdb.RunError, ledger.finished[0].Status)
		assert.Equal(tt, 1, ledger.finished[0].ItemCount)
	})

	t.Run("skips detail pages without a prize title or that fail to fetch", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{
			pages: map[string]string{
				alpha.ListingURL:               listingHTML("/p/untitled", "/p/broken", "/p/car"),
				"http://alpha.test/p/untitled": `<html><body><p>coming soon</p></body></html>`,
				"http://alpha.test/p/car":      detailHTML("Dream Car", "£2.50 per entry"),
			},
			fail: map[string]bool{"http://alpha.test/p/broken": true},
		}
		ledger := &fakeLedger{}
		c := New(&fakeSites{enabled: []compdb.Site{alpha}}, &fakeRules{}, fetcher, &fakeSink{}, ledger, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
		assert.Equal(tt, "Dream Car", records[0].PrizeName)
		// Page-level trouble never fails the site's run.
		assert.Equal(tt, compdb.RunOK, ledger.finished[0].Status)
	})

	t.Run("fails the whole invocation when a configuration provider errors", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")

		c := New(&fakeSites{err: errors.New("sites down")}, &fakeRules{}, &stubFetcher{}, &fakeSink{}, &fakeLedger{}, testLogger())
		_, err := c.Run(context.Background(), Params{})
		assert.Error(tt, err)

		c = New(&fakeSites{enabled: []compdb.Site{alpha}}, &fakeRules{err: errors.New("rules down")}, &stubFetcher{}, &fakeSink{}, &fakeLedger{}, testLogger())
		_, err = c.Run(context.Background(), Params{})
		assert.Error(tt, err)
	})

	t.Run("falls back to built-in defaults for a malformed rule document", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL:          listingHTML("/p/car"),
			"http://alpha.test/p/car": detailHTML("Dream Car", "£2.50 per entry"),
		}}
		rules := &fakeRules{docs: map[string]*compdb.RuleDocument{
			compdb.AdapterGeneric: {TotalPatterns: []string{"("}},
		}}
		c := New(&fakeSites{enabled: []compdb.Site{alpha}}, rules, fetcher, &fakeSink{}, &fakeLedger{}, testLogger())

		records, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		assert.Len(tt, records, 1)
	})

	t.Run("produces the same record for a repeated scrape of one page", func(tt *testing.T) {
		alpha := testSite("alpha", "http://alpha.test/comps")
		fetcher := &stubFetcher{pages: map[string]string{
			alpha.ListingURL:          listingHTML("/p/car"),
			"http://alpha.test/p/car": detailHTML("Dream Car", "£2.50 per entry. 350 entries. Sold: 40"),
		}}
		c := New(&fakeSites{enabled: []compdb.Site{alpha}}, &fakeRules{}, fetcher, &fakeSink{}, &fakeLedger{}, testLogger())

		first, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		second, err := c.Run(context.Background(), Params{})
		assert.NoError(tt, err)
		if assert.Len(tt, first, 1) && assert.Len(tt, second, 1) {
			a, b := first[0], second[0]
			b.LastScraped = a.LastScraped
			assert.Equal(tt, a, b)
		}
	})
}
