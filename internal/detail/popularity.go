package detail

import (
	"regexp"

	"github.com/IshaanNene/ShelfScout/internal/parser"
)

var (
	// "9K+ bought in past month", "200+ bought last month", "1.5K bought in past week"
	strictPopularity = regexp.MustCompile(`(?i)(\d[\d,.]*\s*[KM]?\+?\s*bought\s+(?:in\s+(?:the\s+)?past\s+(?:month|week)|last\s+month))`)

	// "1K people bought this in the past month"
	loosePopularity = regexp.MustCompile(`(?i)(\d[\d,.]*[KM]?\+?[^.!?\d]{0,40}?\bbought\b[^.!?]{0,40}?\bpast\s+month)`)
)

var popularityChain = []fieldFunc{
	popularityFromText,
}

func popularityFromText(p *parser.Page) string {
	return Popularity(p.VisibleText())
}

// Popularity finds the recent-purchases signal in flattened page text.
func Popularity(text string) string {
	if m := strictPopularity.FindStringSubmatch(text); m != nil {
		return parser.CollapseSpace(m[1])
	}
	if m := loosePopularity.FindStringSubmatch(text); m != nil {
		return parser.CollapseSpace(m[1])
	}
	return ""
}
