package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/detail"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/listing"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/pipeline"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// RunContext carries everything one BuildRecords call needs. It is owned by
// the caller and never shared between runs.
type RunContext struct {
	// ListingURL is the best-sellers category page.
	ListingURL string

	// DelayMin and DelayMax bound the random pause after each detail fetch.
	DelayMin time.Duration
	DelayMax time.Duration

	// Session is reused for every request of the run. When nil the engine
	// creates one from its factory and closes it when the run ends.
	Session fetcher.Fetcher

	// Progress is called after each record with the number of candidates
	// processed so far and the total.
	Progress func(done, total int)
}

// Engine assembles ranked product records from a listing page.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	throttle  *fetcher.HostThrottle
	factory   fetcher.Factory
	extractor *listing.Extractor
	resolver  *detail.Resolver

	newPipeline func() *pipeline.Pipeline
	sleep       func(ctx context.Context, d time.Duration) error

	state atomic.Int32
}

// New creates an Engine. A nil metrics creates a private set of counters.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	throttle := fetcher.NewHostThrottle(cfg.Scrape.HostInterval)

	return &Engine{
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		metrics:   metrics,
		throttle:  throttle,
		factory:   fetcher.NewFactory(cfg, logger),
		extractor: listing.NewExtractor(cfg, throttle, metrics, logger),
		resolver:  detail.NewResolver(cfg, throttle, metrics, logger),
		newPipeline: func() *pipeline.Pipeline {
			return pipeline.Default(logger)
		},
		sleep: fetcher.Sleep,
	}
}

// SetFetcherFactory replaces the session factory used when a RunContext has no session.
func (e *Engine) SetFetcherFactory(f fetcher.Factory) {
	e.factory = f
}

// Throttle returns the per-host throttle shared by every request of this engine.
func (e *Engine) Throttle() *fetcher.HostThrottle {
	return e.throttle
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// NewSession creates a fetcher session from the engine's factory.
func (e *Engine) NewSession() (fetcher.Fetcher, error) {
	return e.factory()
}

// BuildRecords extracts the listing once and resolves every candidate's
// detail page in order. Only a listing failure is returned as an error;
// failed detail pages yield records with empty fields. When ctx is cancelled
// between candidates the records finalized so far are returned with ctx.Err().
func (e *Engine) BuildRecords(ctx context.Context, run RunContext) ([]types.ProductRecord, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, types.ErrRunInProgress
	}
	defer e.state.Store(int32(StateIdle))

	if err := config.ValidateURL(run.ListingURL); err != nil {
		return nil, fmt.Errorf("listing url: %w", err)
	}

	session := run.Session
	if session == nil {
		s, err := e.factory()
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		defer func() {
			if err := s.Close(); err != nil {
				e.logger.Error("session close error", "error", err)
			}
		}()
		session = s
	}

	start := time.Now()
	candidates, err := e.extractor.ExtractURL(ctx, session, run.ListingURL)
	if err != nil {
		return nil, err
	}

	total := len(candidates)
	records := make([]types.ProductRecord, 0, total)
	if total == 0 {
		e.logger.Warn("listing yielded no candidates", "url", run.ListingURL)
		return records, nil
	}

	e.logger.Info("run started", "url", run.ListingURL, "candidates", total, "session", session.Type())
	pipe := e.newPipeline()

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rank := i + 1
		fields := e.resolver.Resolve(ctx, session, c.DetailURL)
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec := types.NewProductRecord(rank, c, fields)
		out, err := pipe.Process(&rec)
		switch {
		case err != nil:
			e.metrics.RecordsDropped.Add(1)
			e.logger.Warn("pipeline rejected record", "rank", rank, "identifier", c.Identifier, "error", err)
		case out == nil:
			e.metrics.RecordsDropped.Add(1)
		default:
			e.metrics.RecordsBuilt.Add(1)
			records = append(records, *out)
		}

		e.logger.Info("detail resolved", "rank", rank, "total", total, "identifier", c.Identifier,
			"price", rec.Price != "", "image", rec.ImageURL != "", "popularity", rec.Popularity != "")
		if run.Progress != nil {
			run.Progress(rank, total)
		}

		if rank < total {
			if err := e.sleep(ctx, fetcher.RandomBetween(run.DelayMin, run.DelayMax)); err != nil {
				return records, err
			}
		}
	}

	e.logger.Info("run finished", "url", run.ListingURL, "records", len(records), "elapsed", time.Since(start).Round(time.Millisecond))
	return records, nil
}
