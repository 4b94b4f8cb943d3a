package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/storage"
	"github.com/IshaanNene/ShelfScout/pkg/shelfscout"
)

var (
	dumpYAML    bool
	cfgFile     string
	verbose     bool
	useBrowser  bool
	userAgent   string
	storagePath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelfscout",
		Short: "ShelfScout: best-seller scraping and catalog comparison",
		Long: `ShelfScout pulls the top products from a marketplace best-sellers page,
resolves price, image and popularity for each one, matches them against a
second retailer's catalog and exports a styled comparison workbook.

Commands:
  scrape   build a ranked run from a best-sellers URL
  match    search the catalog for a title or SKU
  runs     list, show or delete saved runs
  export   render a saved run as an xlsx workbook
  serve    run the JSON API`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&useBrowser, "browser", false, "render pages in headless Chrome")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	rootCmd.PersistentFlags().StringVar(&storagePath, "runs-dir", "", "directory for saved runs (file storage)")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, applies global flags and
// any command-specific adjustments, then validates.
func loadConfig(adjust func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if adjust != nil {
		if err := adjust(cfg); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies global flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if useBrowser {
		cfg.Fetcher.Type = "browser"
	}
	if userAgent != "" {
		cfg.Fetcher.UserAgents = []string{userAgent}
	}
	if storagePath != "" {
		cfg.Storage.OutputPath = storagePath
	}
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// env bundles what most commands need.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.RunStore
	scout  *shelfscout.Scout
}

// setup loads configuration and opens storage. The Scout is only created
// when withScout is set since it opens a fetch session.
func setup(withScout bool, adjust func(*config.Config) error) (*env, error) {
	cfg, err := loadConfig(adjust)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg)

	store, err := storage.NewFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	e := &env{cfg: cfg, logger: logger, store: store}
	if withScout {
		scout, err := shelfscout.NewWithLogger(cfg, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		e.scout = scout
	}
	return e, nil
}

func (e *env) Close() {
	if e.scout != nil {
		if err := e.scout.Close(); err != nil {
			e.logger.Warn("close session", "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close storage", "error", err)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ShelfScout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if dumpYAML {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			}
			fmt.Printf("Scrape:\n")
			fmt.Printf("  Max Items:         %d\n", cfg.Scrape.MaxItems)
			fmt.Printf("  Delay:             %s - %s\n", cfg.Scrape.DelayMin, cfg.Scrape.DelayMax)
			fmt.Printf("  Detail Attempts:   %d\n", cfg.Scrape.DetailAttempts)
			fmt.Printf("  Backoff:           %s - %s\n", cfg.Scrape.BackoffMin, cfg.Scrape.BackoffMax)
			fmt.Printf("  Host Interval:     %s\n", cfg.Scrape.HostInterval)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nCatalog:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Catalog.BaseURL)
			fmt.Printf("  Max Candidates:    %d\n", cfg.Catalog.MaxCandidates)
			fmt.Printf("  Min Score:         %.2f\n", cfg.Catalog.MinScore)
			fmt.Printf("  Cache TTL:         %s\n", cfg.Catalog.CacheTTL)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nExport:\n")
			fmt.Printf("  Items Per Row:     %d\n", cfg.Export.ItemsPerRow)
			fmt.Printf("  Embed Images:      %v\n", cfg.Export.EmbedImages)
			fmt.Printf("\nServer:\n")
			fmt.Printf("  Port:              %d\n", cfg.Server.Port)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dumpYAML, "yaml", false, "print the effective config as a loadable shelfscout.yaml")
	return cmd
}

// parseDelay parses a duration flag, returning fallback when empty.
func parseDelay(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
