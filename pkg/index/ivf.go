package index

import (
	"io"
	"math"
	"sort"
	"sync"

	"github.com/Alexk-195/lynx-vector-db-sub000/internal/encoding"
)

// IVFParams configures clustering and search (spec §3/§4.E).
type IVFParams struct {
	NCentroids int
	NProbe     int
	Seed       int64
}

// DefaultIVFParams picks NProbe = min(8, nCentroids) per spec §3.
func DefaultIVFParams(nCentroids int, seed int64) IVFParams {
	nProbe := 8
	if nCentroids < nProbe {
		nProbe = nCentroids
	}
	return IVFParams{NCentroids: nCentroids, NProbe: nProbe, Seed: seed}
}

// invertedList is the parallel id/vector storage for one cluster, grounded
// on original_source/src/lib/ivf_index.h's InvertedList.
type invertedList struct {
	ids     []uint64
	vectors [][]float32
}

func (l *invertedList) size() int { return len(l.ids) }

// IVF is a clustered approximate index: vectors are assigned to the
// nearest of NCentroids clusters at insertion time, and a query only scans
// the NProbe clusters nearest its own position (spec §4.E). Grounded on the
// teacher's pkg/index/ivf.go, reworked to uint64 ids, a true swap-remove
// delete (the teacher's Delete instead shifts indices, which does not
// preserve the id<->cluster parallel-array invariant under concurrent
// reads), and an id->cluster map for O(1) cluster lookup on removal as in
// original_source/src/lib/ivf_index.h's id_to_cluster_.
type IVF struct {
	mu sync.RWMutex

	dimension  int
	metric     Metric
	dist       DistanceFunc
	nCentroids int
	nProbe     int
	seed       int64

	trained  bool
	centroids [][]float32
	lists     []invertedList
	idCluster map[uint64]int
}

// NewIVF creates an untrained IVF index. Train or Build must run before Add/Search.
func NewIVF(dimension int, metric Metric, params IVFParams) *IVF {
	nCentroids := params.NCentroids
	if nCentroids <= 0 {
		nCentroids = 1
	}
	nProbe := params.NProbe
	if nProbe <= 0 || nProbe > nCentroids {
		nProbe = nCentroids
	}
	return &IVF{
		dimension:  dimension,
		metric:     metric,
		dist:       FastForMetric(metric),
		nCentroids: nCentroids,
		nProbe:     nProbe,
		seed:       params.Seed,
		idCluster:  make(map[uint64]int),
	}
}

// Train fits NCentroids clusters over the given sample vectors via k-means
// (spec §4.B), replacing any existing clustering and clearing stored data.
func (v *IVF) Train(vectors [][]float32) error {
	if len(vectors) < v.nCentroids {
		return newErr(InvalidArgument, "need at least %d training vectors, got %d", v.nCentroids, len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != v.dimension {
			return newErr(DimensionMismatch, "training vector %d: expected dimension %d, got %d", i, v.dimension, len(vec))
		}
	}

	result, err := KMeans(vectors, v.nCentroids, DefaultKMeansParams(v.seed))
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.centroids = result.Centroids
	v.lists = make([]invertedList, v.nCentroids)
	v.idCluster = make(map[uint64]int)
	v.trained = true
	return nil
}

// Add assigns id/vector to its nearest centroid's inverted list.
func (v *IVF) Add(id uint64, vector []float32) error {
	if len(vector) != v.dimension {
		return newErr(DimensionMismatch, "expected dimension %d, got %d", v.dimension, len(vector))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.trained {
		return newErr(InvalidState, "index not trained")
	}
	if _, exists := v.idCluster[id]; exists {
		return newErr(InvalidState, "id %d already exists", id)
	}

	cluster := v.findNearestCentroid(vector)
	v.lists[cluster].ids = append(v.lists[cluster].ids, id)
	v.lists[cluster].vectors = append(v.lists[cluster].vectors, cloneVector(vector))
	v.idCluster[id] = cluster
	return nil
}

// Remove deletes id via swap-remove within its cluster's parallel id/vector
// slices, so no later element is shifted; the id's position in the list is
// found by a linear scan (spec §4.E invariant: ids and vectors in a list
// stay index-aligned).
func (v *IVF) Remove(id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	cluster, exists := v.idCluster[id]
	if !exists {
		return newErr(VectorNotFound, "id %d not found", id)
	}

	list := &v.lists[cluster]
	idx := -1
	for i, lid := range list.ids {
		if lid == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return newErr(IndexCorrupted, "id %d missing from cluster %d list", id, cluster)
	}

	last := len(list.ids) - 1
	list.ids[idx] = list.ids[last]
	list.vectors[idx] = list.vectors[last]
	list.ids = list.ids[:last]
	list.vectors = list.vectors[:last]

	delete(v.idCluster, id)
	return nil
}

// Contains reports whether id is stored.
func (v *IVF) Contains(id uint64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, exists := v.idCluster[id]
	return exists
}

// Search probes the NProbe clusters nearest the query (or the per-query
// override in params.NProbe), scans their inverted lists, and returns the
// k closest matches (spec §4.E).
func (v *IVF) Search(query []float32, k int, params SearchParams) ([]SearchResultItem, error) {
	if len(query) != v.dimension {
		return nil, newErr(DimensionMismatch, "expected dimension %d, got %d", v.dimension, len(query))
	}
	if k <= 0 {
		return nil, newErr(InvalidArgument, "k must be positive")
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.trained {
		return nil, newErr(InvalidState, "index not trained")
	}

	nProbe := v.nProbe
	if params.NProbe != nil {
		nProbe = int(*params.NProbe)
	}
	if nProbe > len(v.centroids) {
		nProbe = len(v.centroids)
	}

	probes := v.findNearestCentroids(query, nProbe)

	var candidates []SearchResultItem
	for _, cluster := range probes {
		list := v.lists[cluster]
		for i, id := range list.ids {
			if params.Filter != nil && !params.Filter(id) {
				continue
			}
			candidates = append(candidates, SearchResultItem{ID: id, Distance: v.dist(query, list.vectors[i])})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	for i := range candidates {
		candidates[i].Distance = v.publicDistance(candidates[i].Distance)
	}
	return candidates, nil
}

// publicDistance converts an internal (possibly squared-L2) distance into
// the metric reported to callers, mirroring HNSW.publicDistance.
func (v *IVF) publicDistance(d float32) float32 {
	if v.metric == L2 {
		return float32(math.Sqrt(float64(d)))
	}
	return d
}

// Build trains on the given vectors and then inserts every one, a common
// one-shot bulk-load path for IVF (spec §4.E).
func (v *IVF) Build(ids []uint64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return newErr(InvalidArgument, "ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if err := v.Train(vectors); err != nil {
		return err
	}
	for i, id := range ids {
		if err := v.Add(id, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of stored vectors across all clusters.
func (v *IVF) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idCluster)
}

// Dimension returns the configured vector dimension.
func (v *IVF) Dimension() int { return v.dimension }

// MemoryUsage approximates resident bytes: centroids plus every stored
// id/vector pair.
func (v *IVF) MemoryUsage() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	total := int64(len(v.centroids)) * 4 * int64(v.dimension)
	total += int64(len(v.idCluster)) * (8 + 4*int64(v.dimension))
	return total
}

// findNearestCentroid returns the index of the closest centroid to vector.
// Called with mu held.
func (v *IVF) findNearestCentroid(vector []float32) int {
	best := 0
	bestDist := v.dist(vector, v.centroids[0])
	for i := 1; i < len(v.centroids); i++ {
		d := v.dist(vector, v.centroids[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// findNearestCentroids returns the nProbe closest centroid indices to
// query, ascending by distance. Called with mu held.
func (v *IVF) findNearestCentroids(query []float32, nProbe int) []int {
	type scored struct {
		idx  int
		dist float32
	}
	scores := make([]scored, len(v.centroids))
	for i, c := range v.centroids {
		scores[i] = scored{idx: i, dist: v.dist(query, c)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	if nProbe > len(scores) {
		nProbe = len(scores)
	}
	out := make([]int, nProbe)
	for i := 0; i < nProbe; i++ {
		out[i] = scores[i].idx
	}
	return out
}

// Serialize writes the IVF blob exactly per spec §6:
// [magic][ver][u32 n_clusters][IVFParams: u32 nCentroids][u32 nProbe][u64 seed]
// {nCentroids x vector} {per cluster: [u64 count]{count x [u64 id][vector]}}
func (v *IVF) Serialize(w io.Writer) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if err := encoding.WriteBlobMagic(w, encoding.MagicIVFBlob); err != nil {
		return err
	}
	if err := encoding.WriteU32(w, uint32(v.nCentroids)); err != nil {
		return err
	}
	// IVFParams fields: NCentroids, NProbe, Seed (spec §6).
	if err := encoding.WriteU32(w, uint32(v.nCentroids)); err != nil {
		return err
	}
	if err := encoding.WriteU32(w, uint32(v.nProbe)); err != nil {
		return err
	}
	if err := encoding.WriteU64(w, uint64(v.seed)); err != nil {
		return err
	}
	for _, c := range v.centroids {
		if err := encoding.WriteVector(w, c); err != nil {
			return err
		}
	}
	for _, list := range v.lists {
		if err := encoding.WriteU64(w, uint64(list.size())); err != nil {
			return err
		}
		for i, id := range list.ids {
			if err := encoding.WriteU64(w, id); err != nil {
				return err
			}
			if err := encoding.WriteVector(w, list.vectors[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Deserialize replaces the index contents with a previously-serialized IVF blob.
func (v *IVF) Deserialize(r io.Reader) error {
	if err := encoding.CheckBlobMagic(r, encoding.MagicIVFBlob); err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	nClusters, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	nCentroids, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	nProbe, err := encoding.ReadU32(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	seed, err := encoding.ReadU64(r)
	if err != nil {
		return newErr(IndexCorrupted, "%v", err)
	}
	if nClusters != nCentroids {
		return newErr(IndexCorrupted, "n_clusters header (%d) does not match IVFParams.NCentroids (%d)", nClusters, nCentroids)
	}

	centroids := make([][]float32, nCentroids)
	for i := range centroids {
		c, err := encoding.ReadVector(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		centroids[i] = c
	}

	lists := make([]invertedList, nCentroids)
	idCluster := make(map[uint64]int)
	for cluster := range lists {
		count, err := encoding.ReadU64(r)
		if err != nil {
			return newErr(IndexCorrupted, "%v", err)
		}
		list := invertedList{
			ids:     make([]uint64, count),
			vectors: make([][]float32, count),
		}
		for i := uint64(0); i < count; i++ {
			id, err := encoding.ReadU64(r)
			if err != nil {
				return newErr(IndexCorrupted, "%v", err)
			}
			vec, err := encoding.ReadVector(r)
			if err != nil {
				return newErr(IndexCorrupted, "%v", err)
			}
			list.ids[i] = id
			list.vectors[i] = vec
			idCluster[id] = cluster
		}
		lists[cluster] = list
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.nCentroids = int(nCentroids)
	v.nProbe = int(nProbe)
	v.seed = int64(seed)
	v.centroids = centroids
	v.lists = lists
	v.idCluster = idCluster
	v.trained = true
	if v.dimension == 0 && len(centroids) > 0 {
		v.dimension = len(centroids[0])
	}
	return nil
}
