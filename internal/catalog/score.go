package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

var (
	tokenPattern   = regexp.MustCompile(`[a-z0-9]+`)
	numericPattern = regexp.MustCompile(`^\d+$`)
)

// Tokens returns the set of lowercased alphanumeric tokens in s.
func Tokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		set[tok] = true
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Score rates a candidate against the query by token-set overlap with its
// title, brand, model and description. A model token that appears in the
// query adds modelBonus. The result is clamped to [0, 1].
func Score(query string, c types.CatalogCandidate, modelBonus float64) float64 {
	q := Tokens(query)
	text := strings.Join([]string{c.CatalogTitle, c.Brand, c.Model, c.Description}, " ")
	score := jaccard(q, Tokens(text))

	for tok := range Tokens(c.Model) {
		if q[tok] {
			score += modelBonus
			break
		}
	}

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// Rank orders scored candidates. When the query is purely numeric and a
// candidate's identifier equals it, that candidate leads with ExactMatch set,
// whatever its score. The rest are dropped below minScore and sorted by score
// descending, keeping page order among ties. limit <= 0 keeps everything.
func Rank(query string, cands []types.CatalogCandidate, limit int, minScore float64) []types.CatalogCandidate {
	query = strings.TrimSpace(query)
	byID := numericPattern.MatchString(query)

	var head []types.CatalogCandidate
	rest := make([]types.CatalogCandidate, 0, len(cands))
	for _, c := range cands {
		if byID && len(head) == 0 && c.CatalogIdentifier == query {
			c.ExactMatch = true
			head = append(head, c)
			continue
		}
		if c.MatchScore < minScore {
			continue
		}
		rest = append(rest, c)
	}

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].MatchScore > rest[j].MatchScore })

	out := append(head, rest...)
	return truncate(out, limit)
}

// truncate returns a copy of at most limit candidates.
func truncate(cands []types.CatalogCandidate, limit int) []types.CatalogCandidate {
	if limit <= 0 || limit > len(cands) {
		limit = len(cands)
	}
	out := make([]types.CatalogCandidate, limit)
	copy(out, cands[:limit])
	return out
}
