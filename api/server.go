package api

import (
	"log/slog"
	"net/http"

	"github.com/compscan/compscan/compdb"
	"github.com/compscan/compscan/scrape"
)

// Server exposes the crawl trigger and read endpoints over HTTP.
type Server struct {
	logger  *slog.Logger
	db      *compdb.Postgres
	crawler *scrape.Crawler
	addr    string
}

// New creates a new API Server.
func New(db *compdb.Postgres, crawler *scrape.Crawler, logger *slog.Logger, addr string) *Server {
	return &Server{
		logger:  logger,
		db:      db,
		crawler: crawler,
		addr:    addr,
	}
}

// Start starts the server and blocks until it exits.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.routes())
}
