package index

import (
	"container/heap"
	"io"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/Alexk-195/lynx-vector-db-sub000/internal/encoding"
)

// HNSWParams configures graph construction and search (spec §3/§4.D).
type HNSWParams struct {
	M              int
	EfConstruction int
	EfSearch       int
	Seed           int64
}

// DefaultHNSWParams mirrors the teacher's HNSWConfig defaults (pkg/core/embedding.go).
func DefaultHNSWParams(seed int64) HNSWParams {
	return HNSWParams{M: 16, EfConstruction: 200, EfSearch: 50, Seed: seed}
}

// hnswNode is one graph vertex: its vector and, per level 0..TopLevel, the
// set of neighbor ids at that level.
type hnswNode struct {
	ID        uint64
	Vector    []float32
	TopLevel  int
	Neighbors [][]uint64 // Neighbors[level] for level in [0, TopLevel]
	Deleted   bool
}

// HNSW is a multi-layer proximity graph approximate index (spec §4.D),
// grounded on the teacher's pkg/index/hnsw.go structure but reworked to
// uint64 ids, a log-scaled level assignment, a true diversity-heuristic
// neighbor selector, tombstone deletion, and the lynx wire format.
type HNSW struct {
	mu sync.RWMutex

	dimension int
	metric    Metric
	dist      DistanceFunc

	m              int
	mMax0          int
	efConstruction int
	efSearch       int
	ml             float64

	seed int64
	rng  *rand.Rand

	nodes     map[uint64]*hnswNode
	entryID   uint64
	hasEntry  bool
	liveCount int
}

// NewHNSW creates an empty HNSW index for the given dimension and metric.
func NewHNSW(dimension int, metric Metric, params HNSWParams) *HNSW {
	m := params.M
	if m <= 0 {
		m = 16
	}
	efConstruction := params.EfConstruction
	if efConstruction <= 0 {
		efConstruction = 200
	}
	efSearch := params.EfSearch
	if efSearch <= 0 {
		efSearch = 50
	}
	return &HNSW{
		dimension:      dimension,
		metric:         metric,
		dist:           FastForMetric(metric),
		m:              m,
		mMax0:          2 * m,
		efConstruction: efConstruction,
		efSearch:       efSearch,
		ml:             1.0 / math.Log(float64(m)),
		seed:           params.Seed,
		rng:            rand.New(rand.NewSource(params.Seed)),
		nodes:          make(map[uint64]*hnswNode),
	}
}

// randomLevel draws a level via floor(-ln(u) * ml), the standard HNSW
// geometric level distribution (spec §4.D), replacing the teacher's naive
// repeated-coin-flip loop.
func (h *HNSW) randomLevel() int {
	u := h.rng.Float64()
	for u == 0 {
		u = h.rng.Float64()
	}
	level := int(math.Floor(-math.Log(u) * h.ml))
	if level > 31 {
		level = 31
	}
	return level
}

// Add inserts id/vector into the graph, or revives a tombstoned id as a
// fresh insert at a freshly-drawn level (matching how replay handles
// re-insertion of a removed id).
func (h *HNSW) Add(id uint64, vector []float32) error {
	if len(vector) != h.dimension {
		return newErr(DimensionMismatch, "expected dimension %d, got %d", h.dimension, len(vector))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.nodes[id]; ok && !existing.Deleted {
		return newErr(InvalidState, "id %d already exists", id)
	}

	level := h.randomLevel()
	node := &hnswNode{
		ID:        id,
		Vector:    cloneVector(vector),
		TopLevel:  level,
		Neighbors: make([][]uint64, level+1),
	}

	if !h.hasEntry {
		h.nodes[id] = node
		h.entryID = id
		h.hasEntry = true
		h.liveCount++
		return nil
	}

	entry := h.entryID
	entryLevel := h.nodes[entry].TopLevel
	cur := entry

	for lvl := entryLevel; lvl > level; lvl-- {
		cur = h.greedyDescend(cur, node.Vector, lvl)
	}

	top := entryLevel
	if level < top {
		top = level
	}
	for lvl := top; lvl >= 0; lvl-- {
		candidates := h.searchLayer(node.Vector, []uint64{cur}, h.efConstruction, lvl)
		mMax := h.m
		if lvl == 0 {
			mMax = h.mMax0
		}
		selected := h.selectNeighborsHeuristic(node.Vector, candidates, mMax)
		node.Neighbors[lvl] = selected

		for _, nb := range selected {
			h.addConnection(nb, id, lvl)
		}
		if len(candidates) > 0 {
			cur = candidates[0].ID
		}
	}

	h.nodes[id] = node
	h.liveCount++

	if level > entryLevel {
		h.entryID = id
	}
	return nil
}

// addConnection links neighborID -> id at level, pruning neighborID's
// neighbor set back down to its level cap via the same heuristic selector
// if it overflows.
func (h *HNSW) addConnection(neighborID, id uint64, level int) {
	nb, ok := h.nodes[neighborID]
	if !ok || level > nb.TopLevel {
		return
	}
	for _, existing := range nb.Neighbors[level] {
		if existing == id {
			return
		}
	}
	nb.Neighbors[level] = append(nb.Neighbors[level], id)

	mMax := h.m
	if level == 0 {
		mMax = h.mMax0
	}
	if len(nb.Neighbors[level]) > mMax {
		candidates := make([]SearchResultItem, 0, len(nb.Neighbors[level]))
		for _, cid := range nb.Neighbors[level] {
			if cn, ok := h.nodes[cid]; ok && !cn.Deleted {
				candidates = append(candidates, SearchResultItem{ID: cid, Distance: h.dist(nb.Vector, cn.Vector)})
			}
		}
		nb.Neighbors[level] = h.selectNeighborsHeuristic(nb.Vector, candidates, mMax)
	}
}

// greedyDescend returns the closest node to target reachable from cur by
// single-hop greedy traversal at level.
func (h *HNSW) greedyDescend(cur uint64, target []float32, level int) uint64 {
	best := cur
	bestDist := h.dist(target, h.nodes[cur].Vector)
	improved := true
	for improved {
		improved = false
		node := h.nodes[best]
		if level > node.TopLevel {
			break
		}
		for _, nbID := range node.Neighbors[level] {
			nb, ok := h.nodes[nbID]
			if !ok || nb.Deleted {
				continue
			}
			d := h.dist(target, nb.Vector)
			if d < bestDist {
				bestDist = d
				best = nbID
				improved = true
			}
		}
	}
	return best
}

// candHeapItem is one entry in the candidate/result heaps used by searchLayer.
type candHeapItem struct {
	id   uint64
	dist float32
}

// candMinHeap is the min-heap of unvisited candidates ordered by ascending distance.
type candMinHeap []candHeapItem

func (hh candMinHeap) Len() int            { return len(hh) }
func (hh candMinHeap) Less(i, j int) bool  { return hh[i].dist < hh[j].dist }
func (hh candMinHeap) Swap(i, j int)       { hh[i], hh[j] = hh[j], hh[i] }
func (hh *candMinHeap) Push(x interface{}) { *hh = append(*hh, x.(candHeapItem)) }
func (hh *candMinHeap) Pop() interface{} {
	old := *hh
	n := len(old)
	item := old[n-1]
	*hh = old[:n-1]
	return item
}

// wMaxHeap is the bounded max-heap of the best-so-far candidates (size <= ef).
type wMaxHeap []candHeapItem

func (hh wMaxHeap) Len() int            { return len(hh) }
func (hh wMaxHeap) Less(i, j int) bool  { return hh[i].dist > hh[j].dist }
func (hh wMaxHeap) Swap(i, j int)       { hh[i], hh[j] = hh[j], hh[i] }
func (hh *wMaxHeap) Push(x interface{}) { *hh = append(*hh, x.(candHeapItem)) }
func (hh *wMaxHeap) Pop() interface{} {
	old := *hh
	n := len(old)
	item := old[n-1]
	*hh = old[:n-1]
	return item
}

// searchLayer performs the standard two-heap best-first search of HNSW at a
// single layer, returning up to ef candidates sorted ascending by distance.
// It never filters by tombstone status during traversal (tombstoned nodes
// still act as graph connectors); callers filter the returned ids.
func (h *HNSW) searchLayer(query []float32, entryPoints []uint64, ef int, level int) []SearchResultItem {
	visited := make(map[uint64]struct{}, ef*4)
	candidates := &candMinHeap{}
	w := &wMaxHeap{}
	heap.Init(candidates)
	heap.Init(w)

	for _, ep := range entryPoints {
		node, ok := h.nodes[ep]
		if !ok {
			continue
		}
		d := h.dist(query, node.Vector)
		visited[ep] = struct{}{}
		heap.Push(candidates, candHeapItem{id: ep, dist: d})
		heap.Push(w, candHeapItem{id: ep, dist: d})
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candHeapItem)
		if w.Len() >= ef && c.dist > (*w)[0].dist {
			break
		}

		node, ok := h.nodes[c.id]
		if !ok || level > node.TopLevel {
			continue
		}
		for _, nbID := range node.Neighbors[level] {
			if _, seen := visited[nbID]; seen {
				continue
			}
			visited[nbID] = struct{}{}
			nb, ok := h.nodes[nbID]
			if !ok {
				continue
			}
			d := h.dist(query, nb.Vector)
			if w.Len() < ef || d < (*w)[0].dist {
				heap.Push(candidates, candHeapItem{id: nbID, dist: d})
				heap.Push(w, candHeapItem{id: nbID, dist: d})
				if w.Len() > ef {
					heap.Pop(w)
				}
			}
		}
	}

	results := make([]SearchResultItem, w.Len())
	for i := len(results) - 1; i >= 0; i-- {
		item := heap.Pop(w).(candHeapItem)
		results[i] = SearchResultItem{ID: item.id, Distance: item.dist}
	}
	return results
}

// selectNeighborsHeuristic implements the HNSW diversity heuristic: a
// candidate c is accepted only if it is closer to q than to every neighbor
// already accepted, so the neighbor set spreads across directions rather
// than clustering on the nearest m points (spec §4.D), replacing the
// teacher's plain nearest-M bubble sort.
func (h *HNSW) selectNeighborsHeuristic(query []float32, candidates []SearchResultItem, mMax int) []uint64 {
	sorted := make([]SearchResultItem, len(candidates))
	copy(sorted, candidates)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Distance < sorted[j-1].Distance; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	selected := make([]uint64, 0, mMax)
	var selectedVecs [][]float32
	for _, cand := range sorted {
		if len(selected) >= mMax {
			break
		}
		node, ok := h.nodes[cand.ID]
		if !ok {
			continue
		}
		good := true
		for _, sv := range selectedVecs {
			if h.dist(node.Vector, sv) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, cand.ID)
			selectedVecs = append(selectedVecs, node.Vector)
		}
	}
	return selected
}

// Remove tombstones id so it is excluded from Contains/Search/Size, but
// keeps its graph edges intact as a connector for the rest of the graph
// until the next Compact (spec §4.D "Removal").
func (h *HNSW) Remove(id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	node, ok := h.nodes[id]
	if !ok || node.Deleted {
		return newErr(VectorNotFound, "id %d not found", id)
	}
	node.Deleted = true
	h.liveCount--

	if h.hasEntry && h.entryID == id {
		h.reassignEntry()
	}
	return nil
}

// reassignEntry picks the highest-level remaining live node as the new
// entry point. Called with mu held.
func (h *HNSW) reassignEntry() {
	h.hasEntry = false
	best := -1
	for id, n := range h.nodes {
		if n.Deleted {
			continue
		}
		if n.TopLevel > best {
			best = n.TopLevel
			h.entryID = id
			h.hasEntry = true
		}
	}
}

// Contains reports whether id is live (present and not tombstoned).
func (h *HNSW) Contains(id uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	return ok && !n.Deleted
}

// Search finds the k approximate nearest neighbors of query. EfSearch from
// params overrides the index default; the effective ef is floored at
// max(efSearch, k*8) when a filter is present, so filtering does not
// starve the candidate pool (spec §4.D "Filtering").
func (h *HNSW) Search(query []float32, k int, params SearchParams) ([]SearchResultItem, error) {
	if len(query) != h.dimension {
		return nil, newErr(DimensionMismatch, "expected dimension %d, got %d", h.dimension, len(query))
	}
	if k <= 0 {
		return nil, newErr(InvalidArgument, "k must be positive")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntry {
		return nil, nil
	}

	ef := h.efSearch
	if params.EfSearch != nil {
		ef = int(*params.EfSearch)
	}
	if params.Filter != nil {
		efCap := k * 8
		if efCap > ef {
			ef = efCap
		}
	}
	if ef < k {
		ef = k
	}

	cur := h.entryID
	entryLevel := h.nodes[cur].TopLevel
	for lvl := entryLevel; lvl > 0; lvl-- {
		cur = h.greedyDescend(cur, query, lvl)
	}

	candidates := h.searchLayer(query, []uint64{cur}, ef, 0)

	filtered := candidates[:0:0]
	for _, c := range candidates {
		node, ok := h.nodes[c.ID]
		if !ok || node.Deleted {
			continue
		}
		if params.Filter != nil && !params.Filter(c.ID) {
			continue
		}
		filtered = append(filtered, c)
	}

	for i := 1; i < len(filtered); i++ {
		for j := i; j > 0 && filtered[j].Distance < filtered[j-1].Distance; j-- {
			filtered[j], filtered[j-1] = filtered[j-1], filtered[j]
		}
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	for i := range filtered {
		filtered[i].Distance = h.publicDistance(filtered[i].Distance)
	}
	return filtered, nil
}

// publicDistance converts an internal (possibly squared-L2) distance into
// the metric reported to callers: L2 applies the sqrt so results stay
// comparable across index types (spec §4.A); Cosine and DotProduct already
// use the same kernel internally and externally.
func (h *HNSW) publicDistance(d float32) float32 {
	if h.metric == L2 {
		return float32(math.Sqrt(float64(d)))
	}
	return d
}

// Build clears the graph and inserts every vector in order. HNSW has no
// bulk-construction shortcut analogous to IVF's centroid fit, so this is
// repeated Add.
func (h *HNSW) Build(ids []uint64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return newErr(InvalidArgument, "ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	h.mu.Lock()
	h.nodes = make(map[uint64]*hnswNode)
	h.hasEntry = false
	h.liveCount = 0
	h.mu.Unlock()

	for i, id := range ids {
		if err := h.Add(id, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of live (non-tombstoned) vectors.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.liveCount
}

// Dimension returns the configured vector dimension.
func (h *HNSW) Dimension() int { return h.dimension }

// MemoryUsage approximates resident bytes: per node, the id, the vector,
// and an 8-byte neighbor id per edge across all of its levels.
func (h *HNSW) MemoryUsage() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var total int64
	for _, n := range h.nodes {
		total += 8 + 4*int64(h.dimension)
		for _, lvl := range n.Neighbors {
			total += 8 * int64(len(lvl))
		}
	}
	return total
}

// Clone returns a deep copy of the graph, used by the non-blocking
// maintenance protocol (spec §4.F) as the scratch index that gets
// optimized off the hot path.
func (h *HNSW) Clone() *HNSW {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clone := &HNSW{
		dimension:      h.dimension,
		metric:         h.metric,
		dist:           h.dist,
		m:              h.m,
		mMax0:          h.mMax0,
		efConstruction: h.efConstruction,
		efSearch:       h.efSearch,
		ml:             h.ml,
		seed:           h.seed,
		rng:            rand.New(rand.NewSource(h.rng.Int63())),
		nodes:          make(map[uint64]*hnswNode, len(h.nodes)),
		entryID:        h.entryID,
		hasEntry:       h.hasEntry,
		liveCount:      h.liveCount,
	}
	for id, n := range h.nodes {
		nc := &hnswNode{
			ID:        n.ID,
			Vector:    cloneVector(n.Vector),
			TopLevel:  n.TopLevel,
			Deleted:   n.Deleted,
			Neighbors: make([][]uint64, len(n.Neighbors)),
		}
		for lvl, nbs := range n.Neighbors {
			nc.Neighbors[lvl] = append([]uint64(nil), nbs...)
		}
		clone.nodes[id] = nc
	}
	return clone
}

// Compact rebuilds the graph from its live (non-tombstoned) vectors,
// discarding accumulated tombstones. It is the "optimize" step of the
// maintenance protocol, run against a Clone rather than the live index.
func (h *HNSW) Compact() error {
	h.mu.Lock()
	ids := make([]uint64, 0, h.liveCount)
	vectors := make([][]float32, 0, h.liveCount)
	for id, n := range h.nodes {
		if n.Deleted {
			continue
		}
		ids = append(ids, id)
		vectors = append(vectors, n.Vector)
	}
	h.mu.Unlock()

	return h.Build(ids, vectors)
}

// entryIDNone is the entry_id_or_MAX sentinel spec §6 uses in place of a
// separate has-entry flag: an all-ones u64 that can never collide with a
// real id in practice.
const entryIDNone uint64 = math.MaxUint64

// Serialize writes the HNSW blob exactly per spec §6:
// [magic][ver][HNSWParams fields][u64 n_nodes][u64 entry_id_or_MAX]
// {per node: [u64 id][u32 dim][d×f32][u32 top_level]{per level: [u32 k][k×u64 neighbor_ids]}}
// [u64 tombstone_count][tombstone_count × u64]
func (h *HNSW) Serialize(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := encoding.WriteBlobMagic(w, encoding.MagicHNSWBlob); err != nil {
		return err
	}
	for _, v := range []uint32{uint32(h.m), uint32(h.efConstruction), uint32(h.efSearch)} {
		if err := encoding.WriteU32(w, v); err != nil {
			return err
		}
	}
	if err := encoding.WriteU64(w, uint64(h.seed)); err != nil {
		return err
	}
	if err := encoding.WriteU64(w, uint64(len(h.nodes))); err != nil {
		return err
	}
	entryID := entryIDNone
	if h.hasEntry {
		entryID = h.entryID
	}
	if err := encoding.WriteU64(w, entryID); err != nil {
		return err
	}

	ids := make([]uint64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var tombstones []uint64
	for _, id := range ids {
		n := h.nodes[id]
		if n.Deleted {
			tombstones = append(tombstones, id)
		}
		if err := encoding.WriteU64(w, n.ID); err != nil {
			return err
		}
		if err := encoding.WriteVector(w, n.Vector); err != nil {
			return err
		}
		if err := encoding.WriteU32(w, uint32(n.TopLevel)); err != nil {
			return err
		}
		for _, lvl := range n.Neighbors {
			if err := encoding.WriteU32(w, uint32(len(lvl))); err != nil {
				return err
			}
			for _, nb := range lvl {
				if err := encoding.WriteU64(w, nb); err != nil {
					return err
				}
			}
		}
	}

	if err := encoding.WriteU64(w, uint64(len(tombstones))); err != nil {
		return err
	}
	for _, id := range tombstones {
		if err := encoding.WriteU64(w, id); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize replaces the index contents with a previously-serialized
// HNSW blob.
func (h *HNSW) Deserialize(r io.Reader) error {
	if err := encoding.CheckBlobMagic(r, encoding.MagicHNSWBlob); err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	m, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	efConstruction, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	efSearch, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	seed, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	nNodes, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	entryID, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}

	nodes := make(map[uint64]*hnswNode, nNodes)
	for i := uint64(0); i < nNodes; i++ {
		id, err := encoding.ReadU64(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		vec, err := encoding.ReadVector(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		topLevel, err := encoding.ReadU32(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}

		node := &hnswNode{
			ID:        id,
			Vector:    vec,
			TopLevel:  int(topLevel),
			Neighbors: make([][]uint64, topLevel+1),
		}
		for lvl := uint32(0); lvl <= topLevel; lvl++ {
			k, err := encoding.ReadU32(r)
			if err != nil {
				return newErr(IndexCorrupted, "%v", err)
			}
			nbs := make([]uint64, k)
			for j := uint32(0); j < k; j++ {
				nb, err := encoding.ReadU64(r)
				if err != nil {
					return newErr(IndexCorrupted, "%v", err)
				}
				nbs[j] = nb
			}
			node.Neighbors[lvl] = nbs
		}
		nodes[id] = node
	}

	tombstoneCount, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	for i := uint64(0); i < tombstoneCount; i++ {
		id, err := encoding.ReadU64(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		if n, ok := nodes[id]; ok {
			n.Deleted = true
		}
	}
	liveCount := len(nodes) - int(tombstoneCount)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.m = int(m)
	h.mMax0 = 2 * int(m)
	h.efConstruction = int(efConstruction)
	h.efSearch = int(efSearch)
	h.ml = 1.0 / math.Log(float64(h.m))
	h.seed = int64(seed)
	h.rng = rand.New(rand.NewSource(int64(seed)))
	h.nodes = nodes
	h.hasEntry = entryID != entryIDNone
	h.entryID = entryID
	h.liveCount = liveCount
	return nil
}
