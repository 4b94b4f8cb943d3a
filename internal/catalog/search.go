package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ShelfScout/internal/parser"
)

// servicePattern matches link paths for repair, warranty and similar
// non-purchasable listings.
var servicePattern = regexp.MustCompile(`(?i)(service|repair|battery|warrant|appointment|protection-plan|install|setup|diagnostic|cleaning)`)

// productPathMarker identifies catalog detail pages.
const productPathMarker = "/product/"

// IsServiceLink reports whether a result link points at a service page.
// Only the path is inspected; query strings carry tracking noise.
func IsServiceLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return servicePattern.MatchString(rawURL)
	}
	return servicePattern.MatchString(u.Path)
}

// SearchURL builds the catalog search URL for a query.
func SearchURL(baseURL, searchPath, queryParam, query string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + searchPath)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(queryParam, query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SearchLinks returns the distinct absolute product links on a search result
// page in page order, with service pages removed, capped at limit (<= 0 means no cap).
func SearchLinks(page *parser.Page, limit int) []string {
	seen := make(map[string]bool)
	var out []string

	page.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		link := page.Resolve(a.AttrOr("href", ""))
		if link == "" || seen[link] {
			return true
		}
		seen[link] = true

		u, err := url.Parse(link)
		if err != nil || !strings.Contains(u.Path, productPathMarker) {
			return true
		}
		if IsServiceLink(link) {
			return true
		}

		out = append(out, link)
		return limit <= 0 || len(out) < limit
	})

	return out
}
