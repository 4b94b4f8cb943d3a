package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// HTMLSanitizeMiddleware strips HTML tags and entities from the display fields.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	for _, f := range []*string{&rec.Title, &rec.Popularity, &rec.CatalogTitle, &rec.Attributes, &rec.Notes} {
		if *f == "" {
			continue
		}
		cleaned := m.stripRe.ReplaceAllString(*f, "")
		cleaned = html.UnescapeString(cleaned)
		*f = strings.Join(strings.Fields(cleaned), " ")
	}
	return rec, nil
}

// PriceNormalizeMiddleware formats price fields as "$N.NN": inner spaces are
// removed and bare amounts get a leading "$". Values that are not prices are left alone.
type PriceNormalizeMiddleware struct{}

func (m *PriceNormalizeMiddleware) Name() string { return "price_normalize" }

func (m *PriceNormalizeMiddleware) Process(rec *types.ProductRecord) (*types.ProductRecord, error) {
	for _, f := range []*string{&rec.Price, &rec.CatalogRetail, &rec.CatalogCost} {
		if *f == "" {
			continue
		}
		normalized := parser.NormalizePrice(*f)
		if parser.StartsWithCurrency(normalized) {
			*f = normalized
		}
	}
	return rec, nil
}
