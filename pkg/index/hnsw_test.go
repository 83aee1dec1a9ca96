package index

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

func hnswParams(seed int64) HNSWParams {
	return HNSWParams{M: 16, EfConstruction: 200, EfSearch: 50, Seed: seed}
}

func TestHNSWBasicUnitVectors(t *testing.T) {
	h := NewHNSW(4, L2, hnswParams(1))

	if err := h.Add(1, []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Add(1): %v", err)
	}
	if err := h.Add(2, []float32{0, 1, 0, 0}); err != nil {
		t.Fatalf("Add(2): %v", err)
	}
	if err := h.Add(3, []float32{0.9, 0.1, 0, 0}); err != nil {
		t.Fatalf("Add(3): %v", err)
	}

	results, err := h.Search([]float32{1, 0, 0, 0}, 2, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 || results[0].Distance != 0 {
		t.Fatalf("expected exact hit on id 1 with distance 0, got %+v", results[0])
	}
	if results[1].ID != 3 {
		t.Fatalf("expected second result id 3, got %+v", results[1])
	}
	if math.Abs(float64(results[1].Distance)-0.1414) > 0.01 {
		t.Fatalf("expected distance ~0.1414, got %v", results[1].Distance)
	}
}

func TestHNSWDuplicateInsert(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(1))
	if err := h.Add(1, []float32{0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := h.Add(1, []float32{1, 1}); Code(err) != InvalidState {
		t.Fatalf("expected InvalidState on duplicate id, got %v", err)
	}
}

func TestHNSWEmptyIndexSearch(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(1))
	results, err := h.Search([]float32{0, 0}, 5, SearchParams{})
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results on empty index, got %d", len(results))
	}
}

func TestHNSWRemoveTombstonesAndSize(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(3))
	for id := uint64(1); id <= 10; id++ {
		if err := h.Add(id, []float32{float32(id), float32(id)}); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	for id := uint64(1); id <= 10; id += 2 {
		if err := h.Remove(id); err != nil {
			t.Fatalf("Remove(%d): %v", id, err)
		}
	}
	if h.Size() != 5 {
		t.Fatalf("expected size 5 after removing half, got %d", h.Size())
	}
	if h.Contains(1) {
		t.Fatalf("expected id 1 to be tombstoned")
	}
	if !h.Contains(2) {
		t.Fatalf("expected id 2 to remain live")
	}
}

func recall(t *testing.T, n, dim int, seed int64) float64 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for d := 0; d < dim; d++ {
			v[d] = rng.Float32()
		}
		vectors[i] = v
		ids[i] = uint64(i + 1)
	}

	flat := NewFlat(dim, L2)
	if err := flat.Build(ids, vectors); err != nil {
		t.Fatalf("flat Build: %v", err)
	}
	h := NewHNSW(dim, L2, HNSWParams{M: 16, EfConstruction: 200, EfSearch: 50, Seed: seed})
	if err := h.Build(ids, vectors); err != nil {
		t.Fatalf("hnsw Build: %v", err)
	}

	const k = 10
	const queries = 5
	var hitTotal, wantTotal int
	for q := 0; q < queries; q++ {
		query := make([]float32, dim)
		for d := 0; d < dim; d++ {
			query[d] = rng.Float32()
		}
		want, err := flat.Search(query, k, SearchParams{})
		if err != nil {
			t.Fatalf("flat Search: %v", err)
		}
		got, err := h.Search(query, k, SearchParams{})
		if err != nil {
			t.Fatalf("hnsw Search: %v", err)
		}
		wantIDs := make(map[uint64]struct{}, len(want))
		for _, w := range want {
			wantIDs[w.ID] = struct{}{}
		}
		for _, g := range got {
			if _, ok := wantIDs[g.ID]; ok {
				hitTotal++
			}
		}
		wantTotal += len(want)
	}
	return float64(hitTotal) / float64(wantTotal)
}

func TestHNSWRecallAgainstFlat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall benchmark in short mode")
	}
	r := recall(t, 1000, 128, 42)
	if r < 0.9 {
		t.Fatalf("recall@10 = %.3f, want >= 0.9", r)
	}
}

func TestHNSWSerializeRoundTrip(t *testing.T) {
	h := NewHNSW(3, L2, hnswParams(5))
	for id := uint64(1); id <= 20; id++ {
		v := []float32{float32(id), float32(id % 3), float32(id % 5)}
		if err := h.Add(id, v); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := h.Remove(5); err != nil {
		t.Fatalf("Remove(5): %v", err)
	}

	var buf bytes.Buffer
	if err := h.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewHNSW(3, L2, hnswParams(5))
	if err := restored.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Size() != h.Size() {
		t.Fatalf("size mismatch after round-trip: got %d want %d", restored.Size(), h.Size())
	}
	if restored.Contains(5) {
		t.Fatalf("tombstoned id 5 should stay removed after round-trip")
	}

	query := []float32{10, 1, 0}
	want, err := h.Search(query, 3, SearchParams{})
	if err != nil {
		t.Fatalf("Search on original: %v", err)
	}
	got, err := restored.Search(query, 3, SearchParams{})
	if err != nil {
		t.Fatalf("Search on restored: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("result count mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if want[i].ID != got[i].ID {
			t.Fatalf("result %d id mismatch: got %d want %d", i, got[i].ID, want[i].ID)
		}
	}
}

func TestHNSWCompactPurgesTombstones(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(9))
	for id := uint64(1); id <= 6; id++ {
		if err := h.Add(id, []float32{float32(id), 0}); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := h.Remove(3); err != nil {
		t.Fatalf("Remove(3): %v", err)
	}
	if err := h.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if h.Size() != 5 {
		t.Fatalf("expected size 5 after compact, got %d", h.Size())
	}
	if h.Contains(3) {
		t.Fatalf("id 3 should remain absent after compact")
	}
}

func TestHNSWCloneIsIndependent(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(2))
	if err := h.Add(1, []float32{0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	clone := h.Clone()
	if err := clone.Add(2, []float32{1, 1}); err != nil {
		t.Fatalf("Add to clone: %v", err)
	}
	if h.Contains(2) {
		t.Fatalf("mutating the clone should not affect the original")
	}
}
