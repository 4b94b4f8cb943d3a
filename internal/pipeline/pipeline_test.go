package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := &types.ProductRecord{Rank: 1, Identifier: " B0TEST0001 ", Title: "  Echo   Dot \n (5th Gen) "}

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Echo Dot (5th Gen)" {
		t.Errorf("expected collapsed title, got %q", result.Title)
	}
	if result.Identifier != "B0TEST0001" {
		t.Errorf("expected trimmed identifier, got %q", result.Identifier)
	}
}

func TestRequiredIdentifierMiddleware(t *testing.T) {
	m := &RequiredIdentifierMiddleware{}

	result, err := m.Process(&types.ProductRecord{Identifier: "B0TEST0001"})
	if err != nil || result == nil {
		t.Error("record with identifier should pass")
	}

	result, _ = m.Process(&types.ProductRecord{Title: "no id"})
	if result != nil {
		t.Error("record without identifier should be dropped (nil)")
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := &types.ProductRecord{Title: `Apple <b>AirPods</b> Pro &amp; Case`, DetailURL: "https://x/?a=1&amp;b=2"}

	result, err := m.Process(rec)
	if err != nil {
		t.Fatal(err)
	}
	if result.Title != "Apple AirPods Pro & Case" {
		t.Errorf("unexpected sanitized title: %q", result.Title)
	}
	if result.DetailURL != "https://x/?a=1&amp;b=2" {
		t.Errorf("URLs must be left untouched, got %q", result.DetailURL)
	}
}

func TestPriceNormalizeMiddleware(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$ 19.99", "$19.99"},
		{"24.50", "$24.50"},
		{"$1,299.00", "$1,299.00"},
		{"See options", "See options"},
		{"", ""},
	}

	m := &PriceNormalizeMiddleware{}
	for _, tt := range tests {
		rec := &types.ProductRecord{Price: tt.in, CatalogCost: tt.in}
		result, _ := m.Process(rec)
		if result.Price != tt.want || result.CatalogCost != tt.want {
			t.Errorf("normalize(%q) = %q / %q, want %q", tt.in, result.Price, result.CatalogCost, tt.want)
		}
	}
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	r1, _ := m.Process(&types.ProductRecord{Identifier: "B0TEST0001"})
	r2, _ := m.Process(&types.ProductRecord{Identifier: "B0TEST0001"})
	r3, _ := m.Process(&types.ProductRecord{Identifier: "B0TEST0002"})

	if r1 == nil || r3 == nil {
		t.Error("first occurrences should pass")
	}
	if r2 != nil {
		t.Error("duplicate should be dropped")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(*types.ProductRecord) (*types.ProductRecord, error) {
	return nil, errors.New("boom")
}

func TestPipelineWrapsStageErrors(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	_, err := p.Process(&types.ProductRecord{Identifier: "B0TEST0001"})
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "failing" || pe.Identifier != "B0TEST0001" {
		t.Errorf("unexpected error fields: %+v", pe)
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := Default(testLogger)
	if p.Len() != 5 {
		t.Errorf("expected 5 middleware, got %d", p.Len())
	}

	out, err := p.Process(&types.ProductRecord{Rank: 1, Identifier: "B0TEST0001", Title: " Kindle &amp; cover ", Price: "$ 99.99"})
	if err != nil || out == nil {
		t.Fatalf("unexpected drop or error: %v", err)
	}
	if out.Title != "Kindle & cover" || out.Price != "$99.99" {
		t.Errorf("unexpected record %+v", out)
	}

	dup, _ := p.Process(&types.ProductRecord{Rank: 2, Identifier: "B0TEST0001"})
	if dup != nil {
		t.Error("duplicate identifier should be dropped within a run")
	}
}

func BenchmarkPipeline(b *testing.B) {
	p := Default(testLogger)
	for i := 0; i < b.N; i++ {
		p.Process(&types.ProductRecord{Identifier: "B0BENCH001", Title: "  Some <i>title</i>  ", Price: "12.00"})
		p = Default(testLogger)
	}
}
