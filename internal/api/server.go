// Package api serves the JSON endpoints used by the preview front end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/dashboard"
	"github.com/IshaanNene/ShelfScout/internal/engine"
	"github.com/IshaanNene/ShelfScout/internal/export"
	"github.com/IshaanNene/ShelfScout/internal/monitor"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/storage"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Scraper is the interface the API uses to build records.
type Scraper interface {
	BuildRecords(ctx context.Context, run engine.RunContext) ([]types.ProductRecord, error)
}

// Matcher is the interface the API uses for catalog lookups.
type Matcher interface {
	Match(ctx context.Context, query string, limit int) []types.CatalogCandidate
}

// ExportFunc renders records as workbook bytes.
type ExportFunc func(ctx context.Context, records []types.ProductRecord) ([]byte, error)

// Server provides a REST API over scraping, saved runs and catalog matching.
type Server struct {
	mux      *http.ServeMux
	port     int
	defaults config.ScrapeConfig
	logger   *slog.Logger

	// Collaborators (set at runtime)
	scraper Scraper
	matcher Matcher
	store   storage.RunStore
	export  ExportFunc
	metrics *observability.Metrics
}

// NewServer creates a new API server.
func NewServer(port int, defaults config.ScrapeConfig, logger *slog.Logger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		port:     port,
		defaults: defaults,
		logger:   logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// SetScraper sets the record builder.
func (s *Server) SetScraper(sc Scraper) { s.scraper = sc }

// SetMatcher sets the catalog matcher.
func (s *Server) SetMatcher(m Matcher) { s.matcher = m }

// SetStore sets the saved-run backend.
func (s *Server) SetStore(st storage.RunStore) { s.store = st }

// SetExporter sets the workbook renderer.
func (s *Server) SetExporter(fn ExportFunc) { s.export = fn }

// SetMetrics exposes counters at /metrics.
func (s *Server) SetMetrics(m *observability.Metrics) { s.metrics = m }

// SetDashboard mounts the browser front end on the API's mux.
func (s *Server) SetDashboard(d *dashboard.Dashboard) { d.Register(s.mux) }

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server stopping")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Runs
	s.mux.HandleFunc("POST /api/runs", s.handleCreateRun)
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{name}", s.handleGetRun)
	s.mux.HandleFunc("DELETE /api/runs/{name}", s.handleDeleteRun)
	s.mux.HandleFunc("POST /api/runs/{name}/annotate", s.handleAnnotate)
	s.mux.HandleFunc("GET /api/runs/{name}/export", s.handleExport)
	s.mux.HandleFunc("GET /api/runs/{name}/diff", s.handleDiff)

	// Catalog
	s.mux.HandleFunc("GET /api/match", s.handleMatch)

	// Metrics
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// CreateRunRequest is the body of POST /api/runs. Delays are in seconds.
type CreateRunRequest struct {
	URL      string   `json:"url"`
	Name     string   `json:"name"`
	DelayMin *float64 `json:"delay_min,omitempty"`
	DelayMax *float64 `json:"delay_max,omitempty"`
}

func seconds(v *float64, fallback time.Duration) time.Duration {
	if v == nil || *v < 0 {
		return fallback
	}
	return time.Duration(*v * float64(time.Second))
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.scraper == nil || s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "scraper not initialized")
		return
	}

	var body CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := config.ValidateURL(body.URL); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = "run-" + time.Now().UTC().Format("20060102-150405")
	}
	if storage.Slug(name) == "" {
		s.errorResponse(w, http.StatusBadRequest, "name has no usable characters")
		return
	}

	delayMin := seconds(body.DelayMin, s.defaults.DelayMin)
	delayMax := seconds(body.DelayMax, s.defaults.DelayMax)
	if delayMax < delayMin {
		delayMax = delayMin
	}

	records, err := s.scraper.BuildRecords(r.Context(), engine.RunContext{
		ListingURL: body.URL,
		DelayMin:   delayMin,
		DelayMax:   delayMax,
	})
	if err != nil {
		s.logger.Warn("scrape failed", "url", body.URL, "error", err)
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}

	run := types.NewRun(name, body.URL, records)
	if err := s.store.Save(r.Context(), run); err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, infos)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "storage not initialized")
		return
	}
	if err := s.store.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnnotateRequest is the body of POST /api/runs/{name}/annotate. Candidate
// fills the catalog SKU, title and retail price; the other fields overwrite
// the matching manual column when present.
type AnnotateRequest struct {
	Rank       int                     `json:"rank"`
	Candidate  *types.CatalogCandidate `json:"candidate,omitempty"`
	Cost       *string                 `json:"cost,omitempty"`
	Avg        *string                 `json:"avg_1_4,omitempty"`
	Attributes *string                 `json:"attributes,omitempty"`
	Notes      *string                 `json:"notes,omitempty"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var body AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	rec, err := run.Record(body.Rank)
	if err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}

	if body.Candidate != nil {
		rec.ApplyCatalog(*body.Candidate)
	}
	for dst, v := range map[*string]*string{
		&rec.CatalogCost:  body.Cost,
		&rec.AvgOneToFour: body.Avg,
		&rec.Attributes:   body.Attributes,
		&rec.Notes:        body.Notes,
	} {
		if v != nil {
			*dst = *v
		}
	}

	if err := s.store.Save(r.Context(), run); err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.export == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "exporter not initialized")
		return
	}
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	data, err := s.export(r.Context(), run.Records)
	if err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// MatchResponse is the body of GET /api/match.
type MatchResponse struct {
	Query      string                   `json:"query"`
	Candidates []types.CatalogCandidate `json:"candidates"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if s.matcher == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "matcher not initialized")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing q")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	candidates := s.matcher.Match(r.Context(), q, limit)
	if candidates == nil {
		candidates = []types.CatalogCandidate{}
	}
	s.jsonResponse(w, http.StatusOK, MatchResponse{Query: q, Candidates: candidates})
}

// DiffResponse is the body of GET /api/runs/{name}/diff?against=<older>.
type DiffResponse struct {
	Run     string           `json:"run"`
	Against string           `json:"against"`
	Summary monitor.Summary  `json:"summary"`
	Changes []monitor.Change `json:"changes"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	against := strings.TrimSpace(r.URL.Query().Get("against"))
	if against == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing 'against' parameter")
		return
	}

	newer, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	older, err := s.store.Load(r.Context(), against)
	if err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return
	}

	changes, sum := monitor.DiffRuns(older, newer)
	if changes == nil {
		changes = []monitor.Change{}
	}
	s.jsonResponse(w, http.StatusOK, DiffResponse{
		Run:     newer.Name,
		Against: older.Name,
		Summary: sum,
		Changes: changes,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*types.Run, bool) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "storage not initialized")
		return nil, false
	}
	run, err := s.store.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		s.errorResponse(w, statusFor(err), err.Error())
		return nil, false
	}
	return run, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *types.FetchError
	switch {
	case errors.Is(err, types.ErrRunNotFound), errors.Is(err, types.ErrRankNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
