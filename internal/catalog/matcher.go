// Package catalog searches the second retailer's catalog and ranks product
// pages against a free-text or SKU query.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/cache"
	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Matcher looks up catalog candidates for a query. Results are cached per
// exact query text. Match never fails; any error yields an empty list.
type Matcher struct {
	cfg      config.CatalogConfig
	session  fetcher.Fetcher
	throttle *fetcher.HostThrottle
	cache    *cache.Memory[[]types.CatalogCandidate]
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewMatcher creates a Matcher that fetches through session.
func NewMatcher(cfg *config.Config, session fetcher.Fetcher, throttle *fetcher.HostThrottle, metrics *observability.Metrics, logger *slog.Logger) *Matcher {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Matcher{
		cfg:      cfg.Catalog,
		session:  session,
		throttle: throttle,
		cache:    cache.NewMemory[[]types.CatalogCandidate](cfg.Catalog.CacheTTL, cfg.Catalog.CacheTTL),
		metrics:  metrics,
		logger:   logger.With("component", "catalog"),
	}
}

// Match returns at most limit ranked candidates for query. limit <= 0 uses
// the configured default.
func (m *Matcher) Match(ctx context.Context, query string, limit int) (out []types.CatalogCandidate) {
	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}
	if strings.TrimSpace(query) == "" {
		return []types.CatalogCandidate{}
	}

	m.metrics.CatalogLookups.Add(1)
	if cached, err := m.cache.Get(query); err == nil {
		m.metrics.CatalogCacheHits.Add(1)
		return truncate(cached, limit)
	}

	defer func() {
		if r := recover(); r != nil {
			m.metrics.CatalogFailures.Add(1)
			m.logger.Warn("catalog lookup panicked", "query", query, "panic", r)
			out = []types.CatalogCandidate{}
		}
	}()

	ranked, err := m.lookup(ctx, query)
	if err != nil {
		m.metrics.CatalogFailures.Add(1)
		m.logger.Warn("catalog lookup failed", "query", query, "error", err)
		return []types.CatalogCandidate{}
	}
	if len(ranked) > 0 {
		m.cache.Set(query, ranked)
	}

	m.logger.Info("catalog matched", "query", query, "candidates", len(ranked))
	return truncate(ranked, limit)
}

// Close stops the cache sweep. The session is owned by the caller.
func (m *Matcher) Close() {
	m.cache.Close()
}

func (m *Matcher) lookup(ctx context.Context, query string) ([]types.CatalogCandidate, error) {
	searchURL, err := SearchURL(m.cfg.BaseURL, m.cfg.SearchPath, m.cfg.QueryParam, query)
	if err != nil {
		return nil, fmt.Errorf("build search url: %w", err)
	}

	results, err := m.fetchPage(ctx, searchURL, types.TagSearch)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var cands []types.CatalogCandidate

	// A SKU query can land directly on the product page.
	if u, err := url.Parse(results.URL); err == nil && strings.Contains(u.Path, productPathMarker) && !IsServiceLink(results.URL) {
		if c, ok := ParseProduct(results); ok {
			c.MatchScore = Score(query, c, m.cfg.ModelBonus)
			cands = append(cands, c)
		}
	} else {
		for _, link := range SearchLinks(results, m.cfg.MaxCandidates) {
			page, err := m.fetchPage(ctx, link, types.TagProduct)
			if err != nil {
				return nil, fmt.Errorf("product %s: %w", link, err)
			}
			c, ok := ParseProduct(page)
			if !ok {
				m.logger.Debug("not a product page", "url", link)
				continue
			}
			c.MatchScore = Score(query, c, m.cfg.ModelBonus)
			cands = append(cands, c)
		}
	}

	return Rank(query, cands, 0, m.cfg.MinScore), nil
}

func (m *Matcher) fetchPage(ctx context.Context, rawURL, tag string) (*parser.Page, error) {
	req, err := types.NewTaggedRequest(rawURL, tag, m.timeout())
	if err != nil {
		return nil, err
	}
	if err := m.throttle.Wait(ctx, req.Domain()); err != nil {
		return nil, err
	}
	resp, err := m.session.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	m.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	return parser.NewPage(resp)
}

func (m *Matcher) timeout() time.Duration {
	if m.cfg.RequestTimeout > 0 {
		return m.cfg.RequestTimeout
	}
	return 15 * time.Second
}
