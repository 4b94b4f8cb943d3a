// Package detail resolves price, image and popularity from a product detail
// page. Each field has its own ordered fallback chain and a miss or panic in
// one chain never affects the others.
package detail

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// fieldFunc is one step of a fallback chain. It returns "" on a miss.
type fieldFunc func(p *parser.Page) string

// ResolvePage runs the price, image and popularity chains over a parsed page.
func ResolvePage(p *parser.Page) types.DetailFields {
	return types.DetailFields{
		Price:      runChain(p, priceChain),
		ImageURL:   runChain(p, imageChain),
		Popularity: runChain(p, popularityChain),
	}
}

// runChain returns the first non-empty step result. A panicking step counts as a miss.
func runChain(p *parser.Page, chain []fieldFunc) string {
	for _, step := range chain {
		if v := safeStep(p, step); v != "" {
			return v
		}
	}
	return ""
}

func safeStep(p *parser.Page, step fieldFunc) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()
	return step(p)
}

// Resolver fetches detail pages under a retry policy and resolves their fields.
type Resolver struct {
	retry    fetcher.RetryPolicy
	timeout  time.Duration
	throttle *fetcher.HostThrottle
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewResolver creates a Resolver from the scrape settings. A nil throttle disables host spacing.
func NewResolver(cfg *config.Config, throttle *fetcher.HostThrottle, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	r := &Resolver{
		retry:    fetcher.NewRetryPolicy(cfg.Scrape.DetailAttempts, cfg.Scrape.BackoffMin, cfg.Scrape.BackoffMax),
		timeout:  cfg.Scrape.DetailTimeout,
		throttle: throttle,
		metrics:  metrics,
		logger:   logger.With("component", "detail"),
	}
	r.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.metrics.DetailRetries.Add(1)
		r.logger.Warn("detail fetch failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	return r
}

// Resolve fetches rawURL through session and resolves its fields. Fetch and
// parse errors are retried; once attempts run out the result is empty. It
// never returns an error.
func (r *Resolver) Resolve(ctx context.Context, session fetcher.Fetcher, rawURL string) types.DetailFields {
	base, err := types.NewTaggedRequest(rawURL, types.TagDetail, r.timeout)
	if err != nil {
		r.metrics.DetailFailures.Add(1)
		r.logger.Warn("invalid detail URL", "url", rawURL, "error", err)
		return types.DetailFields{}
	}

	var fields types.DetailFields
	err = r.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := r.throttle.Wait(ctx, base.Domain()); err != nil {
			return err
		}
		req := base.Clone()
		req.Attempt = attempt

		r.metrics.DetailFetches.Add(1)
		resp, err := session.Fetch(ctx, req)
		if err != nil {
			return err
		}
		r.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

		page, err := parser.NewPage(resp)
		if err != nil {
			return err
		}
		fields = ResolvePage(page)
		return nil
	})
	if err != nil {
		r.metrics.DetailFailures.Add(1)
		r.logger.Warn("detail resolution failed", "url", rawURL, "error", err)
		return types.DetailFields{}
	}

	r.logger.Debug("detail resolved", "url", rawURL,
		"price", fields.Price != "", "image", fields.ImageURL != "", "popularity", fields.Popularity != "")
	return fields
}
