package lynx

import (
	"sync"
	"testing"
)

func TestRunMaintenanceNoOpForFlat(t *testing.T) {
	db, err := Create(Config{Dimension: 2, IndexType: Flat, Metric: L2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.RunMaintenance(); err != nil {
		t.Fatalf("RunMaintenance should no-op for Flat, got %v", err)
	}
}

func TestRunMaintenanceCompactsAndPreservesInserts(t *testing.T) {
	db, err := Create(Config{Dimension: 2, IndexType: HNSWIndex, Metric: L2, HNSW: DefaultHNSWParams(4)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for id := uint64(1); id <= 20; id++ {
		must(t, db.Insert(VectorRecord{ID: id, Vector: []float32{float32(id), float32(id)}}))
	}
	for id := uint64(1); id <= 10; id++ {
		must(t, db.Remove(id))
	}

	if err := db.RunMaintenance(); err != nil {
		t.Fatalf("RunMaintenance: %v", err)
	}

	if db.Size() != 10 {
		t.Fatalf("expected size 10 after maintenance, got %d", db.Size())
	}
	if db.Contains(1) {
		t.Fatalf("expected tombstoned id 1 to stay removed through maintenance")
	}
	if !db.Contains(15) {
		t.Fatalf("expected surviving id 15 to remain after maintenance")
	}

	result, err := db.Search([]float32{15, 15}, 1, SearchParams{})
	if err != nil {
		t.Fatalf("Search after maintenance: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != 15 {
		t.Fatalf("expected to find id 15 after maintenance, got %+v", result.Items)
	}
}

// Testable property 9: during the non-blocking maintenance protocol, an
// insert racing against RunMaintenance is always found by a subsequent
// search, whether the race lands before or after the clone/live swap.
func TestProperty9InsertRacesNonBlockingMaintenance(t *testing.T) {
	db, err := Create(Config{Dimension: 2, IndexType: HNSWIndex, Metric: L2, HNSW: DefaultHNSWParams(9)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for id := uint64(1); id <= 50; id++ {
		must(t, db.Insert(VectorRecord{ID: id, Vector: []float32{float32(id), float32(id)}}))
	}
	for id := uint64(1); id <= 20; id++ {
		must(t, db.Remove(id))
	}

	const racingInserts = 30
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := db.RunMaintenance(); err != nil {
			t.Errorf("RunMaintenance: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		for n := uint64(1); n <= racingInserts; n++ {
			id := 1000 + n
			v := []float32{float32(id), float32(id)}
			if err := db.Insert(VectorRecord{ID: id, Vector: v}); err != nil {
				t.Errorf("racing insert %d: %v", id, err)
			}
		}
	}()
	wg.Wait()

	for n := uint64(1); n <= racingInserts; n++ {
		id := 1000 + n
		if !db.Contains(id) {
			t.Fatalf("expected racing insert %d to survive maintenance", id)
		}
		result, err := db.Search([]float32{float32(id), float32(id)}, 1, SearchParams{})
		if err != nil {
			t.Fatalf("Search for %d: %v", id, err)
		}
		if len(result.Items) != 1 || result.Items[0].ID != id {
			t.Fatalf("expected racing insert %d in its own top-1, got %+v", id, result.Items)
		}
	}
}
