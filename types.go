// Package lynx is an embeddable vector database: it stores high-dimensional
// float32 vectors keyed by uint64 identifiers and serves k-nearest-neighbor
// queries under a configurable distance metric, behind three interchangeable
// index implementations (exact Flat, graph-based HNSW, clustered IVF).
package lynx

import (
	"github.com/Alexk-195/lynx-vector-db-sub000/pkg/index"
)

// IndexType selects which nearest-neighbor index backs a database.
type IndexType int

const (
	Flat IndexType = iota
	HNSWIndex
	IVFIndex
)

func (t IndexType) String() string {
	switch t {
	case Flat:
		return "flat"
	case HNSWIndex:
		return "hnsw"
	case IVFIndex:
		return "ivf"
	default:
		return "unknown"
	}
}

// Metric re-exports pkg/index.Metric so callers only need this package.
type Metric = index.Metric

const (
	L2         = index.L2
	Cosine     = index.Cosine
	DotProduct = index.DotProduct
)

// HNSWParams configures HNSW construction and search (spec §3).
type HNSWParams = index.HNSWParams

// DefaultHNSWParams mirrors the spec defaults: m=16, ef_construction=200, ef_search=50.
func DefaultHNSWParams(seed int64) HNSWParams { return index.DefaultHNSWParams(seed) }

// IVFParams configures IVF clustering and search (spec §3).
type IVFParams = index.IVFParams

// DefaultIVFParams picks n_probe = min(8, n_clusters) per spec §3.
func DefaultIVFParams(nCentroids int, seed int64) IVFParams {
	return index.DefaultIVFParams(nCentroids, seed)
}

// Config is immutable after database creation (spec §3).
type Config struct {
	Dimension int
	IndexType IndexType
	Metric    Metric
	HNSW      HNSWParams
	IVF       IVFParams
	DataPath  string
}

// VectorRecord is the caller-facing unit of storage: an id, its vector, and
// optional opaque metadata. Owned by the database; cloned on retrieval.
type VectorRecord struct {
	ID       uint64
	Vector   []float32
	Metadata string
}

// SearchResultItem is one ranked hit, with metadata joined in by the façade.
type SearchResultItem struct {
	ID       uint64
	Distance float32
	Metadata string
}

// SearchResult is the outcome of a search call (spec §3).
type SearchResult struct {
	Items          []SearchResultItem
	TotalCandidates uint64
	QueryTimeMs     float64
}

// SearchParams carries the optional per-query overrides recognized by the
// public API (spec §6).
type SearchParams struct {
	EfSearch *uint32
	NProbe   *uint32
	Filter   func(id uint64) bool
}

func (p SearchParams) toIndexParams() index.SearchParams {
	var f index.Filter
	if p.Filter != nil {
		f = index.Filter(p.Filter)
	}
	return index.SearchParams{EfSearch: p.EfSearch, NProbe: p.NProbe, Filter: f}
}

// DatabaseStats reports cumulative counters and memory footprints (spec §3).
type DatabaseStats struct {
	VectorCount     int
	Dimension       int
	MemoryUsageBytes int64
	IndexMemoryBytes int64
	TotalQueries    uint64
	TotalInserts    uint64
	AvgQueryTimeMs  float64
}
