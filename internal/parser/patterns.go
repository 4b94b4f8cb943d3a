package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// CurrencyPattern matches a dollar amount such as "$19.99", "$ 1,299.00" or "$40".
var CurrencyPattern = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\$\s?\d+(?:\.\d{1,2})?`)

var (
	leadingCurrency = regexp.MustCompile(`^\$\s*\d`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// CollapseSpace trims s and folds every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// StartsWithCurrency reports whether s begins with a dollar amount.
func StartsWithCurrency(s string) bool {
	return leadingCurrency.MatchString(strings.TrimSpace(s))
}

// LooksLikePrice reports whether s is a bare price label rather than a product name.
func LooksLikePrice(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if StartsWithCurrency(s) {
		return true
	}
	m := CurrencyPattern.FindString(s)
	return m != "" && len(m)*2 >= len(s)
}

// FindCurrency returns the first dollar amount in s with inner spaces removed.
func FindCurrency(s string) string {
	return strings.ReplaceAll(CurrencyPattern.FindString(s), " ", "")
}

// NormalizePrice removes spaces and guarantees a leading "$" on a numeric amount.
func NormalizePrice(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return ""
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "$" + s
	}
	return s
}

// ParsePrice converts "$1,299.99" to 1299.99.
func ParsePrice(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FirstSubmatch tries the patterns in order and returns the first capture group
// of the first one that matches. Patterns without a group return the whole match.
func FirstSubmatch(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}
