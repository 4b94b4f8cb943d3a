package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StructuredDataType identifies the type of structured data.
type StructuredDataType string

const (
	JSONLD    StructuredDataType = "json-ld"
	Microdata StructuredDataType = "microdata"
	OpenGraph StructuredDataType = "opengraph"
)

// StructuredData is one block of machine-readable data found on a page.
type StructuredData struct {
	Type StructuredDataType `json:"type"`
	Data map[string]any     `json:"data"`
}

// ExtractStructured finds JSON-LD, OpenGraph and microdata blocks on the page.
func ExtractStructured(p *Page) []StructuredData {
	var results []StructuredData
	results = append(results, extractJSONLD(p.Doc)...)

	if og := extractOpenGraph(p.Doc); len(og.Data) > 0 {
		results = append(results, og)
	}

	results = append(results, extractMicrodata(p.Doc)...)
	return results
}

// Product returns the first JSON-LD or microdata block typed as a Product, or nil.
func Product(results []StructuredData) map[string]any {
	for _, sd := range results {
		if sd.Type == JSONLD && isType(sd.Data["@type"], "Product") {
			return sd.Data
		}
	}
	for _, sd := range results {
		if sd.Type == Microdata && strings.HasSuffix(fmt.Sprint(sd.Data["@type"]), "/Product") {
			return sd.Data
		}
	}
	return nil
}

// extractJSONLD parses <script type="application/ld+json"> elements, flattening arrays and @graph.
func extractJSONLD(doc *goquery.Document) []StructuredData {
	var results []StructuredData

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			results = append(results, flattenGraph(data)...)
			return
		}

		var dataArr []map[string]any
		if err := json.Unmarshal([]byte(raw), &dataArr); err == nil {
			for _, d := range dataArr {
				results = append(results, flattenGraph(d)...)
			}
		}
	})

	return results
}

func flattenGraph(data map[string]any) []StructuredData {
	graph, ok := data["@graph"].([]any)
	if !ok {
		return []StructuredData{{Type: JSONLD, Data: data}}
	}
	var out []StructuredData
	for _, node := range graph {
		if m, ok := node.(map[string]any); ok {
			out = append(out, StructuredData{Type: JSONLD, Data: m})
		}
	}
	return out
}

// extractOpenGraph parses og: meta tags.
func extractOpenGraph(doc *goquery.Document) StructuredData {
	data := make(map[string]any)

	doc.Find(`meta[property^="og:"]`).Each(func(i int, sel *goquery.Selection) {
		property, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		if property != "" && content != "" {
			key := strings.TrimPrefix(property, "og:")
			if _, exists := data[key]; !exists {
				data[key] = content
			}
		}
	})

	return StructuredData{Type: OpenGraph, Data: data}
}

// extractMicrodata parses top-level itemscope elements and their itemprop values.
func extractMicrodata(doc *goquery.Document) []StructuredData {
	var results []StructuredData

	doc.Find("[itemscope]:not([itemscope] [itemscope])").Each(func(i int, sel *goquery.Selection) {
		data := make(map[string]any)

		if itemType, _ := sel.Attr("itemtype"); itemType != "" {
			data["@type"] = itemType
		}

		sel.Find("[itemprop]").Each(func(j int, prop *goquery.Selection) {
			name, _ := prop.Attr("itemprop")
			if name == "" {
				return
			}
			if _, exists := data[name]; exists {
				return
			}

			var value string
			if content, ok := prop.Attr("content"); ok {
				value = content
			} else if href, ok := prop.Attr("href"); ok {
				value = href
			} else if src, ok := prop.Attr("src"); ok {
				value = src
			} else {
				value = CollapseSpace(prop.Text())
			}

			if value != "" {
				data[name] = value
			}
		})

		if len(data) > 0 {
			results = append(results, StructuredData{Type: Microdata, Data: data})
		}
	})

	return results
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want) || strings.HasSuffix(t, "/"+want)
	case []any:
		for _, e := range t {
			if isType(e, want) {
				return true
			}
		}
	}
	return false
}

// String returns the first key whose value renders as a non-empty string.
// Numbers are formatted without exponent; objects yield their "name" field.
func String(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any:
		return String(t, "name", "@value")
	case []any:
		for _, e := range t {
			if s := stringify(e); s != "" {
				return s
			}
		}
	}
	return ""
}

// Image resolves a schema.org image value: a string, a list, or an ImageObject.
func Image(m map[string]any) string {
	switch t := m["image"].(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				return s
			}
			if obj, ok := e.(map[string]any); ok {
				if s := String(obj, "url", "contentUrl"); s != "" {
					return s
				}
			}
		}
	case map[string]any:
		return String(t, "url", "contentUrl")
	}
	return ""
}

// Offers returns the product's offer objects whether "offers" is a single object or a list.
func Offers(m map[string]any) []map[string]any {
	switch t := m["offers"].(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if o, ok := e.(map[string]any); ok {
				out = append(out, o)
			}
		}
		return out
	}
	return nil
}
