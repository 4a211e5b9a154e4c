package coding

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestMergeCodebook_NewAndExisting(t *testing.T) {
	t.Parallel()

	var cb Codebook
	MergeCodebook(&cb, "q1", []Theme{
		{ThemeLabel: "Price", Definition: "Cost."},
		{ThemeLabel: "Service"},
	})
	if len(cb.Entries) != 2 {
		t.Fatalf("entries=%v", cb.Entries)
	}

	keys := MergeCodebook(&cb, "q2", []Theme{
		{ThemeLabel: "price", Definition: "Concerns about cost and value."},
	})
	if len(keys) != 1 || keys[0] != "price" {
		t.Fatalf("keys=%v", keys)
	}
	if len(cb.Entries) != 2 {
		t.Fatalf("case-insensitive match should not add an entry: %v", cb.Entries)
	}

	var price *CodebookEntry
	for i := range cb.Entries {
		if strings.EqualFold(cb.Entries[i].Label, "Price") {
			price = &cb.Entries[i]
		}
	}
	if price == nil {
		t.Fatalf("price entry missing")
	}
	if price.Count != 2 {
		t.Fatalf("Count=%d", price.Count)
	}
	if price.Definition != "Concerns about cost and value." {
		t.Fatalf("should prefer the longer definition, got %q", price.Definition)
	}
	if len(price.Questions) != 2 {
		t.Fatalf("Questions=%v", price.Questions)
	}
}

func TestMergeCodebook_DedupesWithinCall(t *testing.T) {
	t.Parallel()

	var cb Codebook
	MergeCodebook(&cb, "q1", []Theme{
		{ThemeLabel: "Price"},
		{ThemeLabel: "PRICE"},
	})
	if len(cb.Entries) != 1 || cb.Entries[0].Count != 1 {
		t.Fatalf("entries=%v", cb.Entries)
	}
}

func TestMergeCodebook_SortsByCountThenLabel(t *testing.T) {
	t.Parallel()

	var cb Codebook
	MergeCodebook(&cb, "q1", []Theme{{ThemeLabel: "Zebra"}, {ThemeLabel: "Apple"}})
	MergeCodebook(&cb, "q2", []Theme{{ThemeLabel: "Zebra"}})

	if cb.Entries[0].Label != "Zebra" {
		t.Fatalf("entries=%v", cb.Entries)
	}
	if cb.Entries[1].Label != "Apple" {
		t.Fatalf("entries=%v", cb.Entries)
	}
}

func TestCullCodebook(t *testing.T) {
	t.Parallel()

	cb := Codebook{Entries: []CodebookEntry{
		{Label: "Keep", Count: 3},
		{Label: "Drop", Count: 1},
	}}
	CullCodebook(&cb, 2)
	if len(cb.Entries) != 1 || cb.Entries[0].Label != "Keep" {
		t.Fatalf("entries=%v", cb.Entries)
	}

	CullCodebook(&cb, 0)
	if len(cb.Entries) != 1 {
		t.Fatalf("minCount 0 should be a no-op")
	}
}

func TestCodebookExcerpt(t *testing.T) {
	t.Parallel()

	cb := Codebook{Entries: []CodebookEntry{
		{Label: "Price", Definition: "Cost concerns."},
		{Label: "Service"},
		{Label: "Extra"},
	}}

	got := CodebookExcerpt(cb, 2)
	if !strings.Contains(got, "- Price: Cost concerns.") {
		t.Fatalf("got=%q", got)
	}
	if !strings.Contains(got, "- Service\n") {
		t.Fatalf("got=%q", got)
	}
	if strings.Contains(got, "Extra") {
		t.Fatalf("maxLabels not applied: %q", got)
	}

	if CodebookExcerpt(cb, 0) != "" {
		t.Fatalf("maxLabels 0 should disable the excerpt")
	}
}

func TestCodebookRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "codebook.json")

	missing, err := LoadCodebook(path)
	if err != nil {
		t.Fatalf("LoadCodebook missing: %v", err)
	}
	if missing.Version != 1 || len(missing.Entries) != 0 {
		t.Fatalf("missing=%+v", missing)
	}

	MergeCodebook(&missing, "q1", []Theme{{ThemeLabel: "Price"}})
	if err := SaveCodebook(path, missing); err != nil {
		t.Fatalf("SaveCodebook: %v", err)
	}

	loaded, err := LoadCodebook(path)
	if err != nil {
		t.Fatalf("LoadCodebook: %v", err)
	}
	if len(loaded.Entries) != 1 || loaded.Entries[0].Label != "Price" {
		t.Fatalf("loaded=%+v", loaded)
	}
}
