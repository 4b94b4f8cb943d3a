// Package dashboard serves the browser front end: a single page that starts
// runs, previews records, picks catalog matches and downloads the workbook.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/engine"
)

// StatsProvider provides counter snapshots.
type StatsProvider interface {
	Snapshot() map[string]int64
}

// StateProvider reports whether a run is in progress.
type StateProvider interface {
	GetState() engine.State
}

// Dashboard serves the page and its live stats feed.
type Dashboard struct {
	stats  StatsProvider
	state  StateProvider
	logger *slog.Logger
}

// NewDashboard creates a dashboard. Either provider may be nil.
func NewDashboard(stats StatsProvider, state StateProvider, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		stats:  stats,
		state:  state,
		logger: logger.With("component", "dashboard"),
	}
}

// Register mounts the page at / and the stats feed at /api/stats.
func (d *Dashboard) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", d.handleDashboard)
	mux.HandleFunc("GET /api/stats", d.handleAPIStats)
	d.logger.Debug("dashboard routes registered")
}

func (d *Dashboard) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

// Stats is the body of GET /api/stats.
type Stats struct {
	Timestamp string           `json:"timestamp"`
	State     string           `json:"state"`
	Counters  map[string]int64 `json:"counters"`
}

func (d *Dashboard) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		Timestamp: time.Now().Format(time.RFC3339),
		State:     engine.StateIdle.String(),
		Counters:  map[string]int64{},
	}
	if d.state != nil {
		stats.State = d.state.GetState().String()
	}
	if d.stats != nil {
		stats.Counters = d.stats.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		d.logger.Debug("write stats", "error", err)
	}
}
