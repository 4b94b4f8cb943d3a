package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ShelfScout.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"  yaml:"scrape"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScrapeConfig controls listing extraction and record assembly.
type ScrapeConfig struct {
	MaxItems       int           `mapstructure:"max_items"       yaml:"max_items"`
	DelayMin       time.Duration `mapstructure:"delay_min"       yaml:"delay_min"`
	DelayMax       time.Duration `mapstructure:"delay_max"       yaml:"delay_max"`
	DetailAttempts int           `mapstructure:"detail_attempts" yaml:"detail_attempts"`
	BackoffMin     time.Duration `mapstructure:"backoff_min"     yaml:"backoff_min"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"     yaml:"backoff_max"`
	ListingTimeout time.Duration `mapstructure:"listing_timeout" yaml:"listing_timeout"`
	DetailTimeout  time.Duration `mapstructure:"detail_timeout"  yaml:"detail_timeout"`
	HostInterval   time.Duration `mapstructure:"host_interval"   yaml:"host_interval"`
}

// FetcherConfig controls the fetch layer.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// CatalogConfig controls the second-retailer catalog matcher.
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"base_url"        yaml:"base_url"`
	SearchPath     string        `mapstructure:"search_path"     yaml:"search_path"`
	QueryParam     string        `mapstructure:"query_param"     yaml:"query_param"`
	MaxCandidates  int           `mapstructure:"max_candidates"  yaml:"max_candidates"`
	DefaultLimit   int           `mapstructure:"default_limit"   yaml:"default_limit"`
	MinScore       float64       `mapstructure:"min_score"       yaml:"min_score"`
	ModelBonus     float64       `mapstructure:"model_bonus"     yaml:"model_bonus"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"       yaml:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// StorageConfig controls where saved runs live.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// ExportConfig controls the spreadsheet layout.
type ExportConfig struct {
	ImageMaxPx   int           `mapstructure:"image_max_px"  yaml:"image_max_px"`
	ItemsPerRow  int           `mapstructure:"items_per_row" yaml:"items_per_row"`
	ImageTimeout time.Duration `mapstructure:"image_timeout" yaml:"image_timeout"`
	Placeholder  string        `mapstructure:"placeholder"   yaml:"placeholder"`
	EmbedImages  bool          `mapstructure:"embed_images"  yaml:"embed_images"`
}

// ServerConfig controls the JSON API.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			MaxItems:       20,
			DelayMin:       1 * time.Second,
			DelayMax:       1 * time.Second,
			DetailAttempts: 3,
			BackoffMin:     1 * time.Second,
			BackoffMax:     2 * time.Second,
			ListingTimeout: 15 * time.Second,
			DetailTimeout:  20 * time.Second,
			HostInterval:   500 * time.Millisecond,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			RequestTimeout:  20 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			AcceptLanguage:  "en-US,en;q=0.9",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			},
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://www.microcenter.com",
			SearchPath:     "/search/search_results.aspx",
			QueryParam:     "Ntt",
			MaxCandidates:  12,
			DefaultLimit:   5,
			MinScore:       0.12,
			ModelBonus:     0.25,
			CacheTTL:       10 * time.Minute,
			RequestTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Type:            "file",
			OutputPath:      "./runs",
			MongoDatabase:   "shelfscout",
			MongoCollection: "runs",
		},
		Export: ExportConfig{
			ImageMaxPx:   120,
			ItemsPerRow:  5,
			ImageTimeout: 15 * time.Second,
			Placeholder:  "—",
			EmbedImages:  true,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
