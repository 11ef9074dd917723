package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/compscan/compscan/api"
	"github.com/compscan/compscan/compdb"
	"github.com/compscan/compscan/config"
	"github.com/compscan/compscan/logging"
	"github.com/compscan/compscan/scrape"
)

func main() {
	// Get configuration.
	cfg := config.Load()
	dbDSN := flag.String("dsn", cfg.DSN(), "connection data source name")
	addr := flag.String("addr", cfg.ListenAddr, "listen address")
	flag.Parse()

	logger := logging.New()

	db, err := compdb.Connect(*dbDSN)
	if err != nil {
		fmt.Println("Unable to start API server.")
		panic(err)
	}

	fetcher := scrape.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	crawler := scrape.New(db, db, fetcher, db, db, logger)

	s := api.New(db, crawler, logger, *addr)
	if err := s.Start(); err != nil {
		panic(err)
	}
}
