package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/ShelfScout/internal/engine"
	"github.com/IshaanNene/ShelfScout/internal/observability"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fixedState engine.State

func (s fixedState) GetState() engine.State { return engine.State(s) }

func newMux(d *Dashboard) *http.ServeMux {
	mux := http.NewServeMux()
	d.Register(mux)
	return mux
}

func TestDashboardPage(t *testing.T) {
	mux := newMux(NewDashboard(nil, nil, testLogger))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	for _, want := range []string{"Fetch Top 20", "/api/runs", "/api/match", "Download Spreadsheet"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("page is missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("only the root path serves the page, got %d for /other", rec.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	metrics := observability.NewMetrics(testLogger)
	metrics.RecordsBuilt.Add(7)
	mux := newMux(NewDashboard(metrics, fixedState(engine.StateRunning), testLogger))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.State != "running" {
		t.Errorf("state = %q, want running", stats.State)
	}
	if stats.Counters["records_built"] != 7 {
		t.Errorf("records_built = %d, want 7", stats.Counters["records_built"])
	}
	if stats.Timestamp == "" {
		t.Error("missing timestamp")
	}
}

func TestDashboardStatsWithoutProviders(t *testing.T) {
	mux := newMux(NewDashboard(nil, nil, testLogger))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var stats Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.State != "idle" || len(stats.Counters) != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
