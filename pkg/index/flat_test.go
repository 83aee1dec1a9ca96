package index

import (
	"bytes"
	"testing"
)

func TestFlatAddSearchRemove(t *testing.T) {
	f := NewFlat(3, L2)

	if err := f.Add(1, []float32{1, 0, 0}); err != nil {
		t.Fatalf("Add(1): %v", err)
	}
	if err := f.Add(2, []float32{0, 1, 0}); err != nil {
		t.Fatalf("Add(2): %v", err)
	}
	if err := f.Add(3, []float32{0.9, 0.1, 0}); err != nil {
		t.Fatalf("Add(3): %v", err)
	}

	results, err := f.Search([]float32{1, 0, 0}, 2, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].ID != 1 || results[1].ID != 3 {
		t.Fatalf("unexpected search results: %+v", results)
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected exact match distance 0, got %v", results[0].Distance)
	}

	if err := f.Remove(2); err != nil {
		t.Fatalf("Remove(2): %v", err)
	}
	if f.Contains(2) {
		t.Fatalf("expected 2 to be removed")
	}
	if f.Size() != 2 {
		t.Fatalf("expected size 2 after remove, got %d", f.Size())
	}
}

func TestFlatDuplicateAndDimensionMismatch(t *testing.T) {
	f := NewFlat(2, L2)
	if err := f.Add(1, []float32{1, 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.Add(1, []float32{2, 2}); Code(err) != InvalidState {
		t.Fatalf("expected InvalidState on duplicate id, got %v", err)
	}
	if err := f.Add(2, []float32{1, 1, 1}); Code(err) != DimensionMismatch {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestFlatFilter(t *testing.T) {
	f := NewFlat(2, L2)
	for id := uint64(1); id <= 5; id++ {
		if err := f.Add(id, []float32{float32(id), 0}); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	results, err := f.Search([]float32{0, 0}, 5, SearchParams{Filter: func(id uint64) bool { return id%2 == 0 }})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 filtered results, got %d", len(results))
	}
	for _, r := range results {
		if r.ID%2 != 0 {
			t.Fatalf("filter leaked odd id %d into results", r.ID)
		}
	}
}

func TestFlatSerializeRoundTrip(t *testing.T) {
	f := NewFlat(2, Cosine)
	for id := uint64(1); id <= 3; id++ {
		if err := f.Add(id, []float32{float32(id), float32(id) * 2}); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewFlat(2, Cosine)
	if err := restored.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Size() != f.Size() {
		t.Fatalf("size mismatch after round-trip: got %d want %d", restored.Size(), f.Size())
	}
	for id := uint64(1); id <= 3; id++ {
		if !restored.Contains(id) {
			t.Fatalf("id %d missing after round-trip", id)
		}
	}
}

func TestFlatBuildClearsExisting(t *testing.T) {
	f := NewFlat(2, L2)
	if err := f.Add(99, []float32{1, 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.Build([]uint64{1, 2}, [][]float32{{0, 0}, {1, 1}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.Contains(99) {
		t.Fatalf("Build should clear prior contents")
	}
	if f.Size() != 2 {
		t.Fatalf("expected size 2 after Build, got %d", f.Size())
	}
}
