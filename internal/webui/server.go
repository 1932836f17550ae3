// Package webui serves a solved rating snapshot over HTTP.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pairwise-ratings/internal/report"
	"github.com/pairwise-ratings/pkg/metrics"
	"github.com/pairwise-ratings/pkg/utils"
	"github.com/pairwise-ratings/pkg/writer"
)

// Snapshot is the read-only state the server exposes.
type Snapshot struct {
	RunID      string         `json:"run_id"`
	Input      string         `json:"input"`
	Players    int            `json:"players"`
	Edges      int            `json:"edges"`
	Games      int            `json:"games"`
	Iterations int            `json:"iterations"`
	TotalError float64        `json:"total_error"`
	Converged  bool           `json:"converged"`
	Summary    report.Summary `json:"summary"`
	Entries    []report.Entry `json:"-"`
}

// Server represents the web UI server
type Server struct {
	snapshot *Snapshot
	metrics  *metrics.Metrics
	port     int
	logger   utils.Logger
	server   *http.Server
}

// NewServer creates a new web UI server. m may be nil, in which case
// /metrics is not mounted.
func NewServer(snapshot *Snapshot, m *metrics.Metrics, port int, logger utils.Logger) *Server {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	s := &Server{
		snapshot: snapshot,
		metrics:  m,
		port:     port,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/ratings", s.handleRatings)
		r.Get("/ratings/{name}", s.handlePlayer)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the web server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting web server at http://localhost:%d", s.port)
	s.logger.Info("Serving %d ratings from run %s", len(s.snapshot.Entries), s.snapshot.RunID)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snapshot)
}

// handleRatings returns the ranked entries, optionally the first ?limit=.
func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	entries := s.snapshot.Entries

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
	}

	if entries == nil {
		entries = []report.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	name, err := playerName(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := report.Find(s.snapshot.Entries, name)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("player %q not found", name))
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// playerName returns the decoded {name} segment. chi matches against
// RawPath when the request carries escapes such as %2F, leaving the
// parameter encoded.
func playerName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("invalid player name %q", name)
	}
	return decoded, nil
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writer.NewJSONWriter[any]().Write(v, w); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}
