package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/compscan/compscan/scrape"
)

// routes builds the HTTP router.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/crawl", s.crawlHandler)
	r.Get("/competitions", s.competitionsHandler)
	r.Get("/runs", s.runsHandler)
	r.Get("/sites", s.sitesHandler)
	return r
}

// crawlHandler triggers one crawl invocation and returns every record
// normalized during it, whether or not persistence succeeded. Errors here
// mean configuration failure; partial site failures are reflected in the
// run ledger, not the response status.
func (s *Server) crawlHandler(w http.ResponseWriter, req *http.Request) {
	var trigger struct {
		Query string `json:"query"`
		Tier  string `json:"tier"`
	}
	if req.Body != nil {
		// An empty body is a valid trigger: crawl everything.
		_ = json.NewDecoder(req.Body).Decode(&trigger)
	}

	records, err := s.crawler.Run(req.Context(), scrape.Params{
		Query: trigger.Query,
		Tier:  trigger.Tier,
	})
	if err != nil {
		s.logger.Error("crawl invocation failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"count":        len(records),
		"competitions": records,
	})
}

// competitionsHandler searches stored competitions by prize name.
func (s *Server) competitionsHandler(w http.ResponseWriter, req *http.Request) {
	comps, err := s.db.SearchCompetitions(req.Context(), req.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, comps)
}

// runsHandler returns recent crawl runs, newest first.
func (s *Server) runsHandler(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	runs, err := s.db.RecentRuns(req.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, runs)
}

// sitesHandler returns every configured site.
func (s *Server) sitesHandler(w http.ResponseWriter, req *http.Request) {
	sites, err := s.db.AllSites(req.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, sites)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("unable to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
