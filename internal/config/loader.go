package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SHELFSCOUT_SCRAPE_DELAY_MIN=2s.
const EnvPrefix = "SHELFSCOUT"

// Load reads configuration from file and environment on top of the defaults.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags are applied by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shelfscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".shelfscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind to every key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.max_items", cfg.Scrape.MaxItems)
	v.SetDefault("scrape.delay_min", cfg.Scrape.DelayMin)
	v.SetDefault("scrape.delay_max", cfg.Scrape.DelayMax)
	v.SetDefault("scrape.detail_attempts", cfg.Scrape.DetailAttempts)
	v.SetDefault("scrape.backoff_min", cfg.Scrape.BackoffMin)
	v.SetDefault("scrape.backoff_max", cfg.Scrape.BackoffMax)
	v.SetDefault("scrape.listing_timeout", cfg.Scrape.ListingTimeout)
	v.SetDefault("scrape.detail_timeout", cfg.Scrape.DetailTimeout)
	v.SetDefault("scrape.host_interval", cfg.Scrape.HostInterval)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.accept_language", cfg.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)

	v.SetDefault("catalog.base_url", cfg.Catalog.BaseURL)
	v.SetDefault("catalog.search_path", cfg.Catalog.SearchPath)
	v.SetDefault("catalog.query_param", cfg.Catalog.QueryParam)
	v.SetDefault("catalog.max_candidates", cfg.Catalog.MaxCandidates)
	v.SetDefault("catalog.default_limit", cfg.Catalog.DefaultLimit)
	v.SetDefault("catalog.min_score", cfg.Catalog.MinScore)
	v.SetDefault("catalog.model_bonus", cfg.Catalog.ModelBonus)
	v.SetDefault("catalog.cache_ttl", cfg.Catalog.CacheTTL)
	v.SetDefault("catalog.request_timeout", cfg.Catalog.RequestTimeout)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("export.image_max_px", cfg.Export.ImageMaxPx)
	v.SetDefault("export.items_per_row", cfg.Export.ItemsPerRow)
	v.SetDefault("export.image_timeout", cfg.Export.ImageTimeout)
	v.SetDefault("export.placeholder", cfg.Export.Placeholder)
	v.SetDefault("export.embed_images", cfg.Export.EmbedImages)

	v.SetDefault("server.port", cfg.Server.Port)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
