package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Scrape.MaxItems != 20 {
		t.Errorf("expected max_items 20, got %d", cfg.Scrape.MaxItems)
	}
	if cfg.Catalog.MinScore != 0.12 {
		t.Errorf("expected min_score 0.12, got %v", cfg.Catalog.MinScore)
	}
	if len(cfg.Fetcher.UserAgents) != 3 {
		t.Errorf("expected 3 default user agents, got %d", len(cfg.Fetcher.UserAgents))
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"delay max below min", func(c *Config) { c.Scrape.DelayMin = 3 * time.Second; c.Scrape.DelayMax = time.Second }},
		{"zero max items", func(c *Config) { c.Scrape.MaxItems = 0 }},
		{"max items above twenty", func(c *Config) { c.Scrape.MaxItems = 21 }},
		{"zero attempts", func(c *Config) { c.Scrape.DetailAttempts = 0 }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad catalog url", func(c *Config) { c.Catalog.BaseURL = "ftp://example.com" }},
		{"min score above one", func(c *Config) { c.Catalog.MinScore = 1.5 }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongodb" }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "sqlite" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfscout.yaml")
	yaml := `
scrape:
  delay_min: 2s
  delay_max: 3s
catalog:
  min_score: 0.2
storage:
  output_path: /tmp/runs-test
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHELFSCOUT_SCRAPE_MAX_ITEMS", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scrape.DelayMin != 2*time.Second || cfg.Scrape.DelayMax != 3*time.Second {
		t.Errorf("unexpected delays %s..%s", cfg.Scrape.DelayMin, cfg.Scrape.DelayMax)
	}
	if cfg.Catalog.MinScore != 0.2 {
		t.Errorf("expected min_score 0.2, got %v", cfg.Catalog.MinScore)
	}
	if cfg.Scrape.MaxItems != 10 {
		t.Errorf("expected env override max_items=10, got %d", cfg.Scrape.MaxItems)
	}
	if cfg.Storage.OutputPath != "/tmp/runs-test" {
		t.Errorf("unexpected output path %q", cfg.Storage.OutputPath)
	}
	if cfg.Catalog.ModelBonus != 0.25 {
		t.Errorf("untouched default lost: model_bonus=%v", cfg.Catalog.ModelBonus)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://www.amazon.com/gp/bestsellers/pc/17441247011"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"amazon.com/bestsellers", "mailto:x@y.z", "https://"} {
		if err := ValidateURL(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
