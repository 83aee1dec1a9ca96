package index

import (
	"container/heap"
	"io"
	"sort"
	"sync"

	"github.com/Alexk-195/lynx-vector-db-sub000/internal/encoding"
)

// Flat is an exact brute-force index over an id -> vector map (spec §4.C).
// It guarantees finding the true nearest neighbors at O(n) per query.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	dist      DistanceFunc
	vectors   map[uint64][]float32
}

// NewFlat creates an empty flat index for the given dimension and metric.
func NewFlat(dimension int, metric Metric) *Flat {
	return &Flat{
		dimension: dimension,
		metric:    metric,
		dist:      ForMetric(metric),
		vectors:   make(map[uint64][]float32),
	}
}

// Add stores vector under id. Duplicate ids and dimension mismatches are
// rejected per spec invariants 1-2.
func (f *Flat) Add(id uint64, vector []float32) error {
	if len(vector) != f.dimension {
		return newErr(DimensionMismatch, "expected dimension %d, got %d", f.dimension, len(vector))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.vectors[id]; exists {
		return newErr(InvalidState, "id %d already exists", id)
	}
	f.vectors[id] = cloneVector(vector)
	return nil
}

// Remove deletes id from the index.
func (f *Flat) Remove(id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.vectors[id]; !exists {
		return newErr(VectorNotFound, "id %d not found", id)
	}
	delete(f.vectors, id)
	return nil
}

// Contains reports whether id is stored.
func (f *Flat) Contains(id uint64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.vectors[id]
	return exists
}

// Search scans every stored vector, applying filter (if any) before
// computing distance, and keeps the k smallest via a bounded max-heap.
func (f *Flat) Search(query []float32, k int, params SearchParams) ([]SearchResultItem, error) {
	if len(query) != f.dimension {
		return nil, newErr(DimensionMismatch, "expected dimension %d, got %d", f.dimension, len(query))
	}
	if k <= 0 {
		return nil, newErr(InvalidArgument, "k must be positive")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	h := &resultMaxHeap{}
	heap.Init(h)

	for id, vector := range f.vectors {
		if params.Filter != nil && !params.Filter(id) {
			continue
		}
		d := f.dist(query, vector)
		if h.Len() < k {
			heap.Push(h, SearchResultItem{ID: id, Distance: d})
		} else if d < (*h)[0].Distance || (d == (*h)[0].Distance && id < (*h)[0].ID) {
			heap.Pop(h)
			heap.Push(h, SearchResultItem{ID: id, Distance: d})
		}
	}

	results := make([]SearchResultItem, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(SearchResultItem)
	}
	// Break distance ties by ascending id (spec testable property 2).
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// Build clears the index then inserts vectors in bulk.
func (f *Flat) Build(ids []uint64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return newErr(InvalidArgument, "ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = make(map[uint64][]float32, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != f.dimension {
			return newErr(DimensionMismatch, "record %d: expected dimension %d, got %d", i, f.dimension, len(vectors[i]))
		}
		f.vectors[id] = cloneVector(vectors[i])
	}
	return nil
}

// Size returns the number of stored vectors.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimension returns the configured vector dimension.
func (f *Flat) Dimension() int { return f.dimension }

// MemoryUsage approximates resident bytes: an 8-byte id plus 4 bytes per
// float32 component, per vector (spec §4.C).
func (f *Flat) MemoryUsage() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.vectors)) * (8 + 4*int64(f.dimension))
}

// Serialize writes the FLAT blob: `[magic][ver][u64 n]{[u64 id][vector]}^n`.
func (f *Flat) Serialize(w io.Writer) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := encoding.WriteBlobMagic(w, encoding.MagicFlatBlob); err != nil {
		return err
	}
	ids := make([]uint64, 0, len(f.vectors))
	for id := range f.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := encoding.WriteU64(w, uint64(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := encoding.WriteU64(w, id); err != nil {
			return err
		}
		if err := encoding.WriteVector(w, f.vectors[id]); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize replaces the index contents with a previously-serialized FLAT blob.
func (f *Flat) Deserialize(r io.Reader) error {
	if err := encoding.CheckBlobMagic(r, encoding.MagicFlatBlob); err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	n, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = make(map[uint64][]float32, n)
	for i := uint64(0); i < n; i++ {
		id, err := encoding.ReadU64(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		vec, err := encoding.ReadVector(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		f.vectors[id] = vec
	}
	return nil
}

// resultMaxHeap is a max-heap over SearchResultItem used to keep the
// k-smallest distances while scanning; among equal distances the larger id
// sits on top, so it is the one evicted first.
type resultMaxHeap []SearchResultItem

func (h resultMaxHeap) Len() int { return len(h) }
func (h resultMaxHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	return h[i].ID > h[j].ID
}
func (h resultMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultMaxHeap) Push(x interface{}) { *h = append(*h, x.(SearchResultItem)) }
func (h *resultMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
