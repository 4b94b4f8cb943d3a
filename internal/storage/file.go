package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// csvColumns is the saved-run CSV header. Load maps columns by name, so the
// order may change without breaking older files.
var csvColumns = []string{
	"Rank", "ASIN", "Title", "Price", "SellThrough", "URL", "Image",
	"MC SKU", "MC Title", "MC Retail", "MC Cost", "1-4 Avg", "Attributes", "Notes",
}

func recordRow(rec types.ProductRecord) []string {
	return []string{
		strconv.Itoa(rec.Rank), rec.Identifier, rec.Title, rec.Price, rec.Popularity, rec.DetailURL, rec.ImageURL,
		rec.CatalogSKU, rec.CatalogTitle, rec.CatalogRetail, rec.CatalogCost, rec.AvgOneToFour, rec.Attributes, rec.Notes,
	}
}

func rowRecord(index map[string]int, row []string) types.ProductRecord {
	get := func(col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}
	rank, _ := strconv.Atoi(get("Rank"))
	return types.ProductRecord{
		Rank:          rank,
		Identifier:    get("ASIN"),
		Title:         get("Title"),
		Price:         get("Price"),
		Popularity:    get("SellThrough"),
		DetailURL:     get("URL"),
		ImageURL:      get("Image"),
		CatalogSKU:    get("MC SKU"),
		CatalogTitle:  get("MC Title"),
		CatalogRetail: get("MC Retail"),
		CatalogCost:   get("MC Cost"),
		AvgOneToFour:  get("1-4 Avg"),
		Attributes:    get("Attributes"),
		Notes:         get("Notes"),
	}
}

// FileStore keeps each run as <dir>/<slug>.csv with a <dir>/<slug>.json sidecar.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "file_storage"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) paths(name string) (csvPath, metaPath string, err error) {
	slug := Slug(name)
	if slug == "" {
		return "", "", &types.StorageError{Backend: "file", Err: fmt.Errorf("run name %q has no usable characters", name)}
	}
	return filepath.Join(s.dir, slug+".csv"), filepath.Join(s.dir, slug+".json"), nil
}

func (s *FileStore) Save(ctx context.Context, run *types.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	csvPath, metaPath, err := s.paths(run.Name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeCSV(csvPath, run.Records); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}

	meta, err := json.MarshalIndent(InfoOf(run), "", "  ")
	if err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("encode sidecar: %w", err)}
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write sidecar: %w", err)}
	}

	s.logger.Info("run saved", "name", run.Name, "path", csvPath, "records", len(run.Records))
	return nil
}

func writeCSV(path string, records []types.ProductRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (s *FileStore) Load(ctx context.Context, name string) (*types.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	csvPath, metaPath, err := s.paths(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(csvPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("read CSV: %w", err)}
	}

	run := &types.Run{Name: name, Records: []types.ProductRecord{}}
	if len(rows) > 0 {
		index := make(map[string]int, len(rows[0]))
		for i, col := range rows[0] {
			index[col] = i
		}
		for _, row := range rows[1:] {
			run.Records = append(run.Records, rowRecord(index, row))
		}
	}

	// A missing sidecar only loses the metadata.
	if info, err := readInfo(metaPath); err == nil {
		run.ID = info.ID
		run.Name = info.Name
		run.ListingURL = info.ListingURL
		run.CreatedAt = info.CreatedAt
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("unreadable sidecar", "path", metaPath, "error", err)
	}

	return run, nil
}

func readInfo(path string) (RunInfo, error) {
	var info RunInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("decode sidecar: %w", err)
	}
	return info, nil
}

func (s *FileStore) List(ctx context.Context) ([]RunInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}

	out := make([]RunInfo, 0, len(paths))
	for _, p := range paths {
		info, err := readInfo(p)
		if err != nil {
			s.logger.Warn("skipping unreadable sidecar", "path", p, "error", err)
			continue
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	csvPath, metaPath, err := s.paths(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(csvPath)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(name)
	}
	if err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &types.StorageError{Backend: "file", Err: err}
	}

	s.logger.Info("run deleted", "name", name)
	return nil
}

func (s *FileStore) Close() error { return nil }
