package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// MaxListingItems is the largest number of ranked products a run may keep.
const MaxListingItems = 20

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.MaxItems < 1 || cfg.Scrape.MaxItems > MaxListingItems {
		return fmt.Errorf("scrape.max_items must be 1-%d, got %d", MaxListingItems, cfg.Scrape.MaxItems)
	}
	if cfg.Scrape.DelayMin < 0 || cfg.Scrape.DelayMax < 0 {
		return fmt.Errorf("scrape.delay_min and scrape.delay_max must be >= 0")
	}
	if cfg.Scrape.DelayMax < cfg.Scrape.DelayMin {
		return fmt.Errorf("scrape.delay_max (%s) must be >= scrape.delay_min (%s)", cfg.Scrape.DelayMax, cfg.Scrape.DelayMin)
	}
	if cfg.Scrape.DetailAttempts < 1 {
		return fmt.Errorf("scrape.detail_attempts must be >= 1, got %d", cfg.Scrape.DetailAttempts)
	}
	if cfg.Scrape.BackoffMax < cfg.Scrape.BackoffMin || cfg.Scrape.BackoffMin < 0 {
		return fmt.Errorf("scrape.backoff_min/backoff_max must satisfy 0 <= min <= max")
	}
	if cfg.Scrape.ListingTimeout <= 0 || cfg.Scrape.DetailTimeout <= 0 {
		return fmt.Errorf("scrape.listing_timeout and scrape.detail_timeout must be > 0")
	}
	if cfg.Scrape.HostInterval < 0 {
		return fmt.Errorf("scrape.host_interval must be >= 0")
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if err := ValidateURL(cfg.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	if cfg.Catalog.QueryParam == "" {
		return fmt.Errorf("catalog.query_param must not be empty")
	}
	if cfg.Catalog.MinScore < 0 || cfg.Catalog.MinScore > 1 {
		return fmt.Errorf("catalog.min_score must be within [0,1], got %v", cfg.Catalog.MinScore)
	}
	if cfg.Catalog.MaxCandidates < 1 {
		return fmt.Errorf("catalog.max_candidates must be >= 1, got %d", cfg.Catalog.MaxCandidates)
	}
	if cfg.Catalog.DefaultLimit < 1 {
		return fmt.Errorf("catalog.default_limit must be >= 1, got %d", cfg.Catalog.DefaultLimit)
	}

	switch cfg.Storage.Type {
	case "file":
	case "mongodb", "multi":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for storage.type %q", cfg.Storage.Type)
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: file, mongodb, multi)", cfg.Storage.Type)
	}

	if cfg.Export.ItemsPerRow < 1 {
		return fmt.Errorf("export.items_per_row must be >= 1, got %d", cfg.Export.ItemsPerRow)
	}
	if cfg.Export.ImageMaxPx < 16 {
		return fmt.Errorf("export.image_max_px must be >= 16, got %d", cfg.Export.ImageMaxPx)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a scrape target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
