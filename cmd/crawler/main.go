package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/compscan/compscan/catalog"
	"github.com/compscan/compscan/compdb"
	"github.com/compscan/compscan/config"
	"github.com/compscan/compscan/logging"
	"github.com/compscan/compscan/scrape"
)

func main() {
	// Get configuration.
	cfg := config.Load()
	dbDSN := flag.String("dsn", cfg.DSN(), "connection data source name (empty = no persistence)")
	siteFile := flag.String("sites", cfg.SiteFile, "YAML site catalog (overrides database site config)")
	query := flag.String("query", "", "optional free-text prize name filter")
	tier := flag.String("tier", compdb.TierFree, "access tier (free, premium or both)")
	noDB := flag.Bool("no-db", false, "run without a database; requires -sites")
	flag.Parse()

	logger := logging.New()

	var (
		db     *compdb.Postgres
		sites  scrape.SiteProvider
		rules  scrape.RuleProvider
		sink   scrape.RecordSink = scrape.NopSink{}
		ledger scrape.RunLedger  = scrape.NopLedger{}
	)

	if !*noDB {
		var err error
		db, err = compdb.Connect(*dbDSN)
		if err != nil {
			fmt.Println("Unable to connect to database.")
			panic(err)
		}
		sites, rules, sink, ledger = db, db, db, db
	}

	if *siteFile != "" {
		cat, err := catalog.Load(*siteFile)
		if err != nil {
			fmt.Println("Unable to load site catalog.")
			panic(err)
		}
		sites, rules = cat, cat
	}
	if sites == nil {
		fmt.Println("Either a database or a -sites catalog is required.")
		os.Exit(2)
	}

	fetcher := scrape.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	summary := &summaryLedger{RunLedger: ledger}
	crawler := scrape.New(sites, rules, fetcher, sink, summary, logger)

	records, err := crawler.Run(context.Background(), scrape.Params{Query: *query, Tier: *tier})
	if err != nil {
		logger.Error("crawl invocation failed", "err", err)
		os.Exit(1)
	}

	for _, run := range summary.runs {
		fmt.Printf("%s: %s, %d competitions\n", run.SiteName, run.Status, run.ItemCount)
	}
	fmt.Printf("total: %d competitions\n", len(records))
}

// summaryLedger keeps finished runs in memory for the end-of-run summary
// while passing them through to the real ledger.
type summaryLedger struct {
	scrape.RunLedger
	runs []compdb.CrawlRun
}

func (l *summaryLedger) FinishRun(ctx context.Context, run *compdb.CrawlRun) error {
	l.runs = append(l.runs, *run)
	return l.RunLedger.FinishRun(ctx, run)
}
