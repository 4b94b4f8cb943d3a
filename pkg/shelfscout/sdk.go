// Package shelfscout provides a public SDK for embedding ShelfScout as a library.
//
// Example usage:
//
//	scout, err := shelfscout.New(
//	    shelfscout.WithDelay(time.Second, 2*time.Second),
//	    shelfscout.WithMaxItems(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scout.Close()
//
//	records, err := scout.Scrape(ctx, "https://www.amazon.com/gp/bestsellers/pc", nil)
//	for _, r := range records {
//	    matches := scout.Match(ctx, r.Title, 3)
//	    ...
//	}
//
//	xlsx, err := scout.Export(ctx, records)
package shelfscout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/catalog"
	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/engine"
	"github.com/IshaanNene/ShelfScout/internal/export"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/media"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Record is one ranked product row.
type Record = types.ProductRecord

// Candidate is one catalog match option.
type Candidate = types.CatalogCandidate

// Run is a named, saved set of records.
type Run = types.Run

// Option configures a Scout.
type Option func(*config.Config)

// WithConfig replaces the whole configuration. Later options still apply on top.
func WithConfig(cfg *config.Config) Option {
	return func(c *config.Config) { *c = *cfg }
}

// WithDelay sets the random pause range between detail fetches.
func WithDelay(lo, hi time.Duration) Option {
	return func(c *config.Config) {
		c.Scrape.DelayMin = lo
		c.Scrape.DelayMax = hi
	}
}

// WithMaxItems sets how many ranked products are kept from the listing.
func WithMaxItems(n int) Option {
	return func(c *config.Config) { c.Scrape.MaxItems = n }
}

// WithHostInterval sets the minimum spacing between requests to one host.
func WithHostInterval(d time.Duration) Option {
	return func(c *config.Config) { c.Scrape.HostInterval = d }
}

// WithUserAgent sets a single custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgents = []string{ua} }
}

// WithBrowser renders pages in headless Chrome instead of plain HTTP.
func WithBrowser() Option {
	return func(c *config.Config) { c.Fetcher.Type = "browser" }
}

// WithCatalog points the matcher at a different catalog host.
func WithCatalog(baseURL string) Option {
	return func(c *config.Config) { c.Catalog.BaseURL = baseURL }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// Scout is the high-level API for using ShelfScout as a library.
type Scout struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	engine  *engine.Engine
	session fetcher.Fetcher
	matcher *catalog.Matcher
	thumbs  *media.Thumbnailer
}

// New creates a Scout with the given options.
func New(opts ...Option) (*Scout, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return NewWithLogger(cfg, logger)
}

// NewWithLogger creates a Scout from a complete configuration.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Scout, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	eng := engine.New(cfg, logger, metrics)

	// Catalog lookups and thumbnails share one long-lived session; each
	// scrape gets its own from the engine.
	session, err := eng.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Scout{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		engine:  eng,
		session: session,
		matcher: catalog.NewMatcher(cfg, session, eng.Throttle(), metrics, logger),
		thumbs:  media.NewThumbnailer(session, cfg.Export, metrics, logger),
	}, nil
}

// Scrape builds up to the configured number of ranked records from a
// best-sellers listing page. progress may be nil.
func (s *Scout) Scrape(ctx context.Context, listingURL string, progress func(done, total int)) ([]Record, error) {
	return s.engine.BuildRecords(ctx, engine.RunContext{
		ListingURL: listingURL,
		DelayMin:   s.cfg.Scrape.DelayMin,
		DelayMax:   s.cfg.Scrape.DelayMax,
		Progress:   progress,
	})
}

// Match returns ranked catalog candidates for a title or SKU. It never fails;
// lookup errors produce an empty slice.
func (s *Scout) Match(ctx context.Context, query string, limit int) []Candidate {
	return s.matcher.Match(ctx, query, limit)
}

// Export renders records as a two-sheet xlsx workbook.
func (s *Scout) Export(ctx context.Context, records []Record) ([]byte, error) {
	return export.BuildWorkbook(ctx, records, export.OptionsFromConfig(s.cfg.Export, s.thumbs, s.logger))
}

// Config returns the active configuration.
func (s *Scout) Config() *config.Config { return s.cfg }

// Engine returns the underlying record builder.
func (s *Scout) Engine() *engine.Engine { return s.engine }

// Matcher returns the underlying catalog matcher.
func (s *Scout) Matcher() *catalog.Matcher { return s.matcher }

// Metrics returns the shared counters.
func (s *Scout) Metrics() *observability.Metrics { return s.metrics }

// Close releases the shared session and stops the catalog cache sweep.
func (s *Scout) Close() error {
	s.matcher.Close()
	return s.session.Close()
}
