// Package storage persists named runs. Saves are last-write-wins.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// RunStore is the interface for all saved-run backends.
type RunStore interface {
	// Save writes a run under its name, replacing any previous run of that name.
	Save(ctx context.Context, run *types.Run) error

	// Load returns the run saved under name, or an error wrapping types.ErrRunNotFound.
	Load(ctx context.Context, name string) (*types.Run, error)

	// List returns a summary of every saved run, newest first.
	List(ctx context.Context) ([]RunInfo, error)

	// Delete removes the run saved under name.
	Delete(ctx context.Context, name string) error

	// Name returns the storage backend identifier.
	Name() string

	// Close releases resources.
	Close() error
}

// RunInfo summarizes a saved run without its records.
type RunInfo struct {
	ID         string    `json:"id"          bson:"run_id"`
	Name       string    `json:"name"        bson:"_id"`
	ListingURL string    `json:"listing_url" bson:"listing_url"`
	CreatedAt  time.Time `json:"created_at"  bson:"created_at"`
	Count      int       `json:"count"       bson:"count"`
}

// InfoOf builds the summary of a run.
func InfoOf(run *types.Run) RunInfo {
	return RunInfo{
		ID:         run.ID,
		Name:       run.Name,
		ListingURL: run.ListingURL,
		CreatedAt:  run.CreatedAt,
		Count:      len(run.Records),
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// Slug turns a run name into a file-system safe key.
func Slug(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

func notFound(name string) error {
	return fmt.Errorf("%w: %q", types.ErrRunNotFound, name)
}

// NewFromConfig creates the configured backend: "file", "mongodb" or "multi"
// (both, file first).
func NewFromConfig(cfg config.StorageConfig, logger *slog.Logger) (RunStore, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileStore(cfg.OutputPath, logger)
	case "mongodb":
		return NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "multi":
		fs, err := NewFileStore(cfg.OutputPath, logger)
		if err != nil {
			return nil, err
		}
		ms, err := NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, err
		}
		return NewMultiStore([]RunStore{fs, ms}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
