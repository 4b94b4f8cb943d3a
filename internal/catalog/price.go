package catalog

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/ShelfScout/internal/parser"
)

// PriceSource says where a price fragment was found. Higher wins ties between
// matches in the same bucket, below an explicit context cue.
type PriceSource int

const (
	SourceClass      PriceSource = iota + 1 // element whose class or id mentions "price"
	SourceAttribute                         // itemprop=price or data-price
	SourceStructured                        // JSON-LD offer
)

const (
	cuePriority  = int(SourceStructured) + 1
	contextLimit = 32
)

// PriceFragment is a piece of page text that may hold one or more prices.
// Hint carries the element's class and id.
type PriceFragment struct {
	Text   string
	Hint   string
	Source PriceSource
}

var (
	currentCue = regexp.MustCompile(`\b(your|now|sale|today|deal|instant)\b`)
	retailCue  = regexp.MustCompile(`\b(was|reg|regular|compare|list|original|msrp|strike)\b`)
	discardCue = regexp.MustCompile(`\b(plans?|protection|subscriptions?|warrant(y|ies)|services?|memberships?)\b|\bper\s+month\b|/\s*mo\b`)

	hintSeparators = regexp.MustCompile(`[^a-z0-9]+`)
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	retailHints    = map[string]bool{
		"was": true, "reg": true, "regular": true, "compare": true, "list": true,
		"original": true, "msrp": true, "strike": true, "strikethrough": true,
	}
)

type bucket int

const (
	bucketCurrent bucket = iota
	bucketRetail
)

type priceMatch struct {
	text     string
	amount   float64
	bucket   bucket
	priority int
}

// ResolvePrices picks a current and a list price from the fragments. Each
// dollar amount is classified by the text leading up to it, falling back to
// a retail-looking element hint; amounts with no cue count as current.
// Amounts next to plan or subscription wording are ignored. Within a bucket
// the highest priority wins, then the highest value. If current exceeds list,
// they swap.
func ResolvePrices(fragments []PriceFragment) (current, list string) {
	var bestCurrent, bestRetail *priceMatch
	for _, f := range fragments {
		for _, m := range classify(f) {
			switch m.bucket {
			case bucketCurrent:
				if better(&m, bestCurrent) {
					bestCurrent = &m
				}
			case bucketRetail:
				if better(&m, bestRetail) {
					bestRetail = &m
				}
			}
		}
	}

	if bestCurrent != nil && bestRetail != nil && bestCurrent.amount > bestRetail.amount {
		bestCurrent, bestRetail = bestRetail, bestCurrent
	}
	if bestCurrent != nil {
		current = bestCurrent.text
	}
	if bestRetail != nil {
		list = bestRetail.text
	}
	return current, list
}

func better(m, best *priceMatch) bool {
	if best == nil {
		return true
	}
	if m.priority != best.priority {
		return m.priority > best.priority
	}
	return m.amount > best.amount
}

func classify(f PriceFragment) []priceMatch {
	text := f.Text
	locs := parser.CurrencyPattern.FindAllStringIndex(text, -1)

	var out []priceMatch
	prevEnd := 0
	for i, loc := range locs {
		start, end := loc[0], loc[1]

		leadStart := prevEnd
		if start-leadStart > contextLimit {
			leadStart = start - contextLimit
		}
		lead := strings.ToLower(text[leadStart:start])

		aroundEnd := len(text)
		if i+1 < len(locs) {
			aroundEnd = locs[i+1][0]
		}
		if aroundEnd-end > contextLimit {
			aroundEnd = end + contextLimit
		}
		around := lead + " " + strings.ToLower(text[end:aroundEnd])
		prevEnd = end

		if discardCue.MatchString(around) {
			continue
		}

		value := strings.ReplaceAll(text[start:end], " ", "")
		amount, ok := parser.ParsePrice(value)
		if !ok {
			continue
		}

		m := priceMatch{text: value, amount: amount, bucket: bucketCurrent, priority: int(f.Source)}
		switch {
		case retailCue.MatchString(lead):
			m.bucket, m.priority = bucketRetail, cuePriority
		case currentCue.MatchString(lead):
			m.priority = cuePriority
		case hasRetailHint(f.Hint):
			m.bucket = bucketRetail
		}
		out = append(out, m)
	}
	return out
}

// hasRetailHint reports whether a whole token of the class/id hint marks a
// retail price, so "price-was" and "listPrice" count but
// "product-price-listing" does not.
func hasRetailHint(hint string) bool {
	hint = strings.ToLower(camelBoundary.ReplaceAllString(hint, "$1 $2"))
	for _, tok := range hintSeparators.Split(hint, -1) {
		if retailHints[tok] {
			return true
		}
	}
	return false
}
