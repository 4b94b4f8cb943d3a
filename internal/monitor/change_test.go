package monitor

import (
	"testing"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

func rec(rank int, id, price, pop string) types.ProductRecord {
	return types.ProductRecord{Rank: rank, Identifier: id, Title: "Item " + id, Price: price, Popularity: pop}
}

func TestDiffRuns(t *testing.T) {
	older := types.NewRun("mon", "https://www.amazon.com/gp/bestsellers/pc", []types.ProductRecord{
		rec(1, "B000000001", "$10.00", "1K+ bought in past month"),
		rec(2, "B000000002", "$20.00", ""),
		rec(3, "B000000003", "$30.00", ""),
	})
	newer := types.NewRun("tue", older.ListingURL, []types.ProductRecord{
		rec(1, "B000000002", "$20.00", ""),
		rec(2, "B000000001", "$9.50", "1K+ bought in past month"),
		rec(3, "B000000004", "$40.00", ""),
	})

	changes, sum := DiffRuns(older, newer)

	want := []struct {
		id    string
		typ   ChangeType
		field string
	}{
		{"B000000002", ChangeModified, "rank"},
		{"B000000001", ChangeModified, "rank"},
		{"B000000001", ChangeModified, "price"},
		{"B000000004", ChangeAdded, ""},
		{"B000000003", ChangeRemoved, ""},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d: %v", len(want), len(changes), changes)
	}
	for i, w := range want {
		c := changes[i]
		if c.Identifier != w.id || c.Type != w.typ || c.Field != w.field {
			t.Errorf("change %d = %s/%s/%s, want %s/%s/%s", i, c.Identifier, c.Type, c.Field, w.id, w.typ, w.field)
		}
	}

	if changes[2].OldValue != "$10.00" || changes[2].NewValue != "$9.50" {
		t.Errorf("unexpected price change %+v", changes[2])
	}
	if changes[4].Rank != 3 {
		t.Errorf("removal should carry the old rank, got %d", changes[4].Rank)
	}

	wantSum := Summary{Added: 1, Removed: 1, Moved: 2, Repriced: 1}
	if sum != wantSum {
		t.Errorf("summary = %+v, want %+v", sum, wantSum)
	}
}

func TestDiffRunsIgnoresFormattingAndManualFields(t *testing.T) {
	a := rec(1, "B000000001", "19.99", "")
	b := rec(1, "B000000001", "$19.99", "")
	b.CatalogSKU = "111111"
	b.Notes = "call vendor"

	changes, sum := DiffRuns(
		types.NewRun("a", "", []types.ProductRecord{a}),
		types.NewRun("b", "", []types.ProductRecord{b}),
	)
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %v", changes)
	}
	if sum.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %+v", sum)
	}
}

func TestChangeString(t *testing.T) {
	tests := []struct {
		c    Change
		want string
	}{
		{Change{Identifier: "B1", Title: "Mouse", Type: ChangeAdded, Rank: 4}, "#4 B1 new entry: Mouse"},
		{Change{Identifier: "B2", Title: "Pad", Type: ChangeRemoved, Rank: 9}, "#9 B2 dropped out: Pad"},
		{Change{Identifier: "B3", Type: ChangeModified, Field: "popularity", NewValue: "5K+", Rank: 1}, "#1 B3 popularity: (none) -> 5K+"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
