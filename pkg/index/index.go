// Package index implements the three interchangeable nearest-neighbor
// index cores behind lynx: exact brute-force (Flat), graph-based
// approximate search (HNSW), and clustered approximate search (IVF).
// All three satisfy VectorIndex, the capability abstraction the
// database façade (the root lynx package) routes through.
package index

import "io"

// SearchResultItem is one ranked hit, ascending by Distance.
type SearchResultItem struct {
	ID       uint64
	Distance float32
}

// Filter is an optional predicate applied to candidate ids before they are
// accepted into a result set. It never prunes graph or cluster traversal,
// only result membership (spec §4.D "Filtering").
type Filter func(id uint64) bool

// SearchParams carries the optional per-query overrides recognized by the
// public API (spec §6): EfSearch only affects HNSW, NProbe only affects
// IVF, Filter applies to any index.
type SearchParams struct {
	EfSearch *uint32
	NProbe   *uint32
	Filter   Filter
}

// VectorIndex is the polymorphic capability abstraction every index
// implementation satisfies (spec §9 "Polymorphic indices"), generalized
// from the teacher corpus's string-keyed VectorIndex interface
// (pkg/index/multi_index.go) to lynx's uint64 ids and richer surface
// (Build/Serialize/Deserialize/MemoryUsage, metric-aware construction).
type VectorIndex interface {
	Add(id uint64, vector []float32) error
	Remove(id uint64) error
	Contains(id uint64) bool
	Search(query []float32, k int, params SearchParams) ([]SearchResultItem, error)
	Build(ids []uint64, vectors [][]float32) error
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
	Size() int
	Dimension() int
	MemoryUsage() int64
}
