package index

import (
	"bytes"
	"math"
	"testing"
)

func TestIVFBuildAndSearch(t *testing.T) {
	v := NewIVF(2, L2, IVFParams{NCentroids: 2, NProbe: 1, Seed: 1})
	ids := []uint64{1, 2, 3, 4}
	vectors := [][]float32{
		{0, 0}, {0, 1}, {10, 10}, {10, 11},
	}
	if err := v.Build(ids, vectors); err != nil {
		t.Fatalf("Build: %v", err)
	}

	results, err := v.Search([]float32{0.1, 0.1}, 2, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	seen := map[uint64]bool{}
	for _, r := range results {
		seen[r.ID] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected ids {1,2} near query, got %+v", results)
	}
}

func TestIVFNProbeEqualsNClustersMatchesFlat(t *testing.T) {
	ids := []uint64{1, 2, 3, 4, 5, 6}
	vectors := [][]float32{
		{0, 0}, {1, 0}, {0, 1}, {10, 10}, {11, 10}, {10, 11},
	}

	flat := NewFlat(2, L2)
	if err := flat.Build(ids, vectors); err != nil {
		t.Fatalf("flat Build: %v", err)
	}

	v := NewIVF(2, L2, IVFParams{NCentroids: 3, NProbe: 3, Seed: 2})
	if err := v.Build(ids, vectors); err != nil {
		t.Fatalf("ivf Build: %v", err)
	}

	query := []float32{0.5, 0.5}
	want, err := flat.Search(query, 3, SearchParams{})
	if err != nil {
		t.Fatalf("flat Search: %v", err)
	}
	got, err := v.Search(query, 3, SearchParams{})
	if err != nil {
		t.Fatalf("ivf Search: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("result count mismatch: got %d want %d", len(got), len(want))
	}
	wantIDs := map[uint64]bool{}
	for _, w := range want {
		wantIDs[w.ID] = true
	}
	for _, g := range got {
		if !wantIDs[g.ID] {
			t.Fatalf("ivf with n_probe=n_clusters returned id %d not in flat's top-k", g.ID)
		}
	}
}

func TestIVFAddBeforeTrainFails(t *testing.T) {
	v := NewIVF(2, L2, IVFParams{NCentroids: 2, NProbe: 1, Seed: 1})
	if err := v.Add(1, []float32{0, 0}); Code(err) != InvalidState {
		t.Fatalf("expected InvalidState adding before train, got %v", err)
	}
}

func TestIVFRemoveSwapPreservesParallelArrays(t *testing.T) {
	v := NewIVF(2, L2, IVFParams{NCentroids: 1, NProbe: 1, Seed: 1})
	if err := v.Train([][]float32{{0, 0}, {1, 1}}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	for id := uint64(1); id <= 5; id++ {
		if err := v.Add(id, []float32{float32(id), float32(id)}); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := v.Remove(2); err != nil {
		t.Fatalf("Remove(2): %v", err)
	}
	if v.Contains(2) {
		t.Fatalf("expected id 2 removed")
	}
	if v.Size() != 4 {
		t.Fatalf("expected size 4, got %d", v.Size())
	}
	cluster := v.idCluster[3]
	list := v.lists[cluster]
	if len(list.ids) != len(list.vectors) {
		t.Fatalf("parallel arrays diverged: %d ids vs %d vectors", len(list.ids), len(list.vectors))
	}
	for i, id := range list.ids {
		if id == 3 {
			if list.vectors[i][0] != 3 {
				t.Fatalf("id/vector misaligned after swap-remove at index %d", i)
			}
		}
	}
}

func TestIVFSerializeRoundTrip(t *testing.T) {
	v := NewIVF(2, L2, IVFParams{NCentroids: 2, NProbe: 2, Seed: 3})
	ids := []uint64{1, 2, 3, 4}
	vectors := [][]float32{{0, 0}, {0, 1}, {9, 9}, {9, 10}}
	if err := v.Build(ids, vectors); err != nil {
		t.Fatalf("Build: %v", err)
	}

	var buf bytes.Buffer
	if err := v.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewIVF(2, L2, IVFParams{})
	if err := restored.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Size() != v.Size() {
		t.Fatalf("size mismatch: got %d want %d", restored.Size(), v.Size())
	}
	for _, id := range ids {
		if !restored.Contains(id) {
			t.Fatalf("id %d missing after round-trip", id)
		}
	}
}

func TestIVFPublicDistanceAppliesSqrt(t *testing.T) {
	v := NewIVF(2, L2, IVFParams{NCentroids: 1, NProbe: 1, Seed: 1})
	if err := v.Train([][]float32{{0, 0}, {3, 4}}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := v.Add(1, []float32{0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := v.Search([]float32{3, 4}, 1, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if math.Abs(float64(results[0].Distance-5)) > 1e-4 {
		t.Fatalf("expected L2 distance 5, got %v", results[0].Distance)
	}
}
