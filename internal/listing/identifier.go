package listing

import (
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// hrefPatterns are tried in order; the first match wins.
var hrefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`(?i)[?&]ASIN=([A-Z0-9]{10})(?:[&#]|$)`),
}

// ValidIdentifier reports whether s is a well-formed 10-character product code.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// IdentifierFromURL extracts the product code from a detail-page href.
// It returns "" when no known URL shape matches.
func IdentifierFromURL(href string) string {
	for _, re := range hrefPatterns {
		m := re.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		id := strings.ToUpper(m[1])
		if ValidIdentifier(id) {
			return id
		}
	}
	return ""
}
