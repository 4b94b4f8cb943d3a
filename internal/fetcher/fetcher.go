package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	// Any non-2xx final status is returned as a *types.FetchError.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Factory creates a fresh fetcher session.
type Factory func() (Fetcher, error)

// NewFactory returns a Factory for the configured fetcher type.
func NewFactory(cfg *config.Config, logger *slog.Logger) Factory {
	return func() (Fetcher, error) {
		switch cfg.Fetcher.Type {
		case "", "http":
			return NewHTTPFetcher(cfg, logger)
		case "browser":
			return NewBrowserFetcher(cfg, logger)
		default:
			return nil, fmt.Errorf("%w: %q", types.ErrNoFetcher, cfg.Fetcher.Type)
		}
	}
}
