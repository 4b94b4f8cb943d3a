package catalog

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

var (
	skuPattern   = regexp.MustCompile(`(?i)\bSKU\s*#?\s*:?\s*(\d{4,})`)
	brandPattern = regexp.MustCompile(`(?i:\bbrand)\s*:\s*([A-Z0-9][\w&'\-]*(?: [A-Z0-9][\w&'\-]*){0,2})`)
	modelPattern = regexp.MustCompile(`(?i)\b(?:model|mfr\.? part ?#?)\s*[:#]\s*([A-Z0-9][A-Z0-9\-_/.]{0,30}[A-Z0-9])`)
)

// priceContainerSelector finds elements that look like they render a price.
const priceContainerSelector = `#pricing, [itemprop="price"], [data-price], .price`

// maxFragmentLen skips large wrappers whose text would drown the context cues.
const maxFragmentLen = 200

// ParseProduct reads a catalog detail page. ok is false when the page carries
// no structured product data, no SKU indicator and no price container.
func ParseProduct(page *parser.Page) (c types.CatalogCandidate, ok bool) {
	product := parser.Product(parser.ExtractStructured(page))
	text := page.VisibleText()

	skuText := parser.FirstSubmatch([]*regexp.Regexp{skuPattern}, text)
	hasPrice := page.Find(priceContainerSelector).Length() > 0
	if product == nil && skuText == "" && !hasPrice {
		return c, false
	}
	if product == nil {
		product = map[string]any{}
	}

	c.DetailURL = page.URL
	c.CatalogIdentifier = parser.String(product, "sku", "productID")
	if c.CatalogIdentifier == "" {
		c.CatalogIdentifier = skuText
	}

	c.CatalogTitle = parser.String(product, "name")
	if c.CatalogTitle == "" {
		c.CatalogTitle = page.XPathText(`//h1`)
	}

	c.ImageURL = parser.Image(product)
	if c.ImageURL == "" {
		c.ImageURL = page.Meta("og:image")
	}
	c.ImageURL = page.Resolve(c.ImageURL)

	c.Brand = parser.String(product, "brand")
	if c.Brand == "" {
		c.Brand = trimLabels(parser.FirstSubmatch([]*regexp.Regexp{brandPattern}, text))
	}
	c.Model = parser.String(product, "model", "mpn")
	if c.Model == "" {
		c.Model = parser.FirstSubmatch([]*regexp.Regexp{modelPattern}, text)
	}

	c.Description = parser.String(product, "description")
	if c.Description == "" {
		c.Description = page.Meta("description")
	}

	c.CurrentPrice, c.ListPrice = ResolvePrices(priceFragments(page, product))
	return c, true
}

func priceFragments(page *parser.Page, product map[string]any) []PriceFragment {
	var out []PriceFragment

	for _, offer := range parser.Offers(product) {
		for _, key := range []string{"price", "lowPrice", "highPrice"} {
			if v := parser.String(offer, key); v != "" {
				out = append(out, PriceFragment{Text: parser.NormalizePrice(v), Hint: "offer " + key, Source: SourceStructured})
			}
		}
	}

	page.Find(`[itemprop="price"], [data-price]`).Each(func(_ int, s *goquery.Selection) {
		v := s.AttrOr("content", "")
		if v == "" {
			v = s.AttrOr("data-price", "")
		}
		if v == "" {
			v = parser.SelectionVisibleText(s)
		}
		if v != "" {
			out = append(out, PriceFragment{Text: parser.NormalizePrice(v), Hint: elementHint(s), Source: SourceAttribute})
		}
	})

	page.Find(`[class*="price"], [id*="price"], [class*="Price"], [id*="Price"]`).Each(func(_ int, s *goquery.Selection) {
		text := parser.SelectionVisibleText(s)
		if text == "" || len(text) > maxFragmentLen || !parser.CurrencyPattern.MatchString(text) {
			return
		}
		out = append(out, PriceFragment{Text: text, Hint: elementHint(s), Source: SourceClass})
	})

	return out
}

// specLabels are neighbouring spec-table labels that a flattened brand match can run into.
var specLabels = map[string]bool{"SKU": true, "Mfr": true, "Model": true, "UPC": true, "Part": true}

func trimLabels(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if specLabels[w] {
			return strings.Join(words[:i], " ")
		}
	}
	return s
}

func elementHint(s *goquery.Selection) string {
	return strings.TrimSpace(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
}
