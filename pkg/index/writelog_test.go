package index

import "testing"

func TestWriteLogReplayInsertAndRemove(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(1))
	if err := h.Add(1, []float32{0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	log := NewWriteLog()
	log.Enable()
	if !log.LogInsert(2, []float32{1, 1}) {
		t.Fatalf("LogInsert(2) should have succeeded")
	}
	if !log.LogRemove(1) {
		t.Fatalf("LogRemove(1) should have succeeded")
	}

	log.ReplayTo(h)

	if h.Contains(1) {
		t.Fatalf("expected id 1 removed after replay")
	}
	if !h.Contains(2) {
		t.Fatalf("expected id 2 present after replay")
	}
}

func TestWriteLogReplayInsertIsIdempotent(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(1))
	if err := h.Add(1, []float32{0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	log := NewWriteLog()
	log.Enable()
	log.LogInsert(1, []float32{5, 5})
	log.ReplayTo(h)

	if !h.Contains(1) {
		t.Fatalf("expected id 1 present after idempotent replay")
	}
	results, err := h.Search([]float32{5, 5}, 1, SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 || results[0].Distance != 0 {
		t.Fatalf("expected replayed insert to win, got %+v", results)
	}
}

func TestWriteLogDisableClearsEntries(t *testing.T) {
	log := NewWriteLog()
	log.Enable()
	log.LogInsert(1, []float32{0, 0})
	if log.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", log.Size())
	}
	log.Disable()
	if log.Size() != 0 {
		t.Fatalf("expected Disable to clear entries, got %d", log.Size())
	}
}

func TestWriteLogRemoveOfAbsentIDIsNoOp(t *testing.T) {
	h := NewHNSW(2, L2, hnswParams(1))
	log := NewWriteLog()
	log.Enable()
	if !log.LogRemove(999) {
		t.Fatalf("LogRemove of absent id should still append successfully")
	}
	log.ReplayTo(h)
	if h.Size() != 0 {
		t.Fatalf("expected empty index to remain empty")
	}
}
