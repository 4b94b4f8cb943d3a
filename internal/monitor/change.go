// Package monitor compares two saved runs of the same listing and reports
// what moved between them.
package monitor

import (
	"fmt"
	"sort"

	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// ChangeType identifies what kind of change occurred.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one difference between two runs for a single product.
type Change struct {
	Identifier string     `json:"identifier"`
	Title      string     `json:"title"`
	Type       ChangeType `json:"type"`
	Field      string     `json:"field,omitempty"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`

	// Rank is the product's rank in the newer run, or in the older run for removals.
	Rank int `json:"rank"`
}

// String renders the change as one human-readable line.
func (c Change) String() string {
	switch c.Type {
	case ChangeAdded:
		return fmt.Sprintf("#%d %s new entry: %s", c.Rank, c.Identifier, c.Title)
	case ChangeRemoved:
		return fmt.Sprintf("#%d %s dropped out: %s", c.Rank, c.Identifier, c.Title)
	default:
		return fmt.Sprintf("#%d %s %s: %s -> %s", c.Rank, c.Identifier, c.Field, orNone(c.OldValue), orNone(c.NewValue))
	}
}

// Summary counts changes by kind.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Moved     int `json:"moved"`
	Repriced  int `json:"repriced"`
	Unchanged int `json:"unchanged"`
}

// tracked lists the scraped fields compared between runs. Manual catalog
// fields are user edits and are not reported.
var tracked = []struct {
	name string
	get  func(types.ProductRecord) string
}{
	{"rank", func(r types.ProductRecord) string { return fmt.Sprint(r.Rank) }},
	{"price", func(r types.ProductRecord) string { return parser.NormalizePrice(r.Price) }},
	{"popularity", func(r types.ProductRecord) string { return r.Popularity }},
	{"title", func(r types.ProductRecord) string { return r.Title }},
}

// DiffRuns compares older against newer by product identifier. Changes for
// products in newer come first in newer's rank order, followed by removals
// in older's rank order.
func DiffRuns(older, newer *types.Run) ([]Change, Summary) {
	prev := make(map[string]types.ProductRecord, len(older.Records))
	for _, r := range older.Records {
		prev[r.Identifier] = r
	}

	current := append([]types.ProductRecord(nil), newer.Records...)
	sort.SliceStable(current, func(i, j int) bool { return current[i].Rank < current[j].Rank })

	var changes []Change
	var sum Summary
	seen := make(map[string]bool, len(current))

	for _, rec := range current {
		seen[rec.Identifier] = true
		old, ok := prev[rec.Identifier]
		if !ok {
			changes = append(changes, Change{Identifier: rec.Identifier, Title: rec.Title, Type: ChangeAdded, Rank: rec.Rank})
			sum.Added++
			continue
		}

		changed := false
		for _, f := range tracked {
			before, after := f.get(old), f.get(rec)
			if before == after {
				continue
			}
			changed = true
			changes = append(changes, Change{
				Identifier: rec.Identifier,
				Title:      rec.Title,
				Type:       ChangeModified,
				Field:      f.name,
				OldValue:   before,
				NewValue:   after,
				Rank:       rec.Rank,
			})
			switch f.name {
			case "rank":
				sum.Moved++
			case "price":
				sum.Repriced++
			}
		}
		if !changed {
			sum.Unchanged++
		}
	}

	gone := make([]types.ProductRecord, 0)
	for _, r := range older.Records {
		if !seen[r.Identifier] {
			gone = append(gone, r)
		}
	}
	sort.SliceStable(gone, func(i, j int) bool { return gone[i].Rank < gone[j].Rank })
	for _, r := range gone {
		changes = append(changes, Change{Identifier: r.Identifier, Title: r.Title, Type: ChangeRemoved, Rank: r.Rank})
		sum.Removed++
	}

	return changes, sum
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
