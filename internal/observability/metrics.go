package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for scrape runs and catalog lookups.
type Metrics struct {
	// Listing metrics
	ListingFetches  atomic.Int64
	ListingFailures atomic.Int64

	// Detail metrics
	DetailFetches  atomic.Int64
	DetailRetries  atomic.Int64
	DetailFailures atomic.Int64

	// Record metrics
	RecordsBuilt   atomic.Int64
	RecordsDropped atomic.Int64

	// Catalog metrics
	CatalogLookups   atomic.Int64
	CatalogCacheHits atomic.Int64
	CatalogFailures  atomic.Int64

	// Transfer metrics
	BytesDownloaded atomic.Int64
	ImagesResized   atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"shelfscout_listing_fetches_total", "Total listing page fetches", m.ListingFetches.Load()},
		{"shelfscout_listing_failures_total", "Total failed listing page fetches", m.ListingFailures.Load()},
		{"shelfscout_detail_fetches_total", "Total detail page fetch attempts", m.DetailFetches.Load()},
		{"shelfscout_detail_retries_total", "Total detail page retries", m.DetailRetries.Load()},
		{"shelfscout_detail_failures_total", "Total detail pages that exhausted retries", m.DetailFailures.Load()},
		{"shelfscout_records_built_total", "Total product records assembled", m.RecordsBuilt.Load()},
		{"shelfscout_records_dropped_total", "Total product records dropped by the pipeline", m.RecordsDropped.Load()},
		{"shelfscout_catalog_lookups_total", "Total catalog match lookups", m.CatalogLookups.Load()},
		{"shelfscout_catalog_cache_hits_total", "Total catalog lookups served from cache", m.CatalogCacheHits.Load()},
		{"shelfscout_catalog_failures_total", "Total catalog lookups that failed", m.CatalogFailures.Load()},
		{"shelfscout_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"shelfscout_images_resized_total", "Total thumbnails produced", m.ImagesResized.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"listing_fetches":    m.ListingFetches.Load(),
		"listing_failures":   m.ListingFailures.Load(),
		"detail_fetches":     m.DetailFetches.Load(),
		"detail_retries":     m.DetailRetries.Load(),
		"detail_failures":    m.DetailFailures.Load(),
		"records_built":      m.RecordsBuilt.Load(),
		"records_dropped":    m.RecordsDropped.Load(),
		"catalog_lookups":    m.CatalogLookups.Load(),
		"catalog_cache_hits": m.CatalogCacheHits.Load(),
		"catalog_failures":   m.CatalogFailures.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"images_resized":     m.ImagesResized.Load(),
	}
}
