package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.ProductRecord) (*types.ProductRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the normalization chain applied to every assembled record:
// markup stripping, whitespace trimming, price formatting, a required
// identifier and per-run de-duplication.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&TrimMiddleware{})
	p.Use(&PriceNormalizeMiddleware{})
	p.Use(&RequiredIdentifierMiddleware{})
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:      mw.Name(),
				Identifier: current.Identifier,
				Err:        err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "rank", rec.Rank, "identifier", rec.Identifier)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// stringFields lists every free-text field of a record.
func stringFields(rec *types.ProductRecord) []*string {
	return []*string{
		&rec.Identifier, &rec.Title, &rec.DetailURL, &rec.Price, &rec.ImageURL, &rec.Popularity,
		&rec.CatalogSKU, &rec.CatalogTitle, &rec.CatalogRetail, &rec.CatalogCost,
		&rec.AvgOneToFour, &rec.Attributes, &rec.Notes,
	}
}

// TrimMiddleware trims and collapses whitespace in all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	for _, f := range stringFields(rec) {
		if *f != "" {
			*f = strings.Join(strings.Fields(*f), " ")
		}
	}
	return rec, nil
}

// RequiredIdentifierMiddleware drops records without a product identifier.
type RequiredIdentifierMiddleware struct{}

func (m *RequiredIdentifierMiddleware) Name() string { return "required_identifier" }

func (m *RequiredIdentifierMiddleware) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	if rec.Identifier == "" {
		return nil, nil // Drop record
	}
	return rec, nil
}

// DedupMiddleware drops records whose identifier was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	key := rec.Identifier
	if key == "" {
		key = rec.DetailURL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil // Drop duplicate
	}
	m.seen[key] = struct{}{}
	return rec, nil
}
