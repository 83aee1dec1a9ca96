package index

import "math"

// Metric selects the distance kernel used by an index. Smaller is always
// closer, including for DotProduct where the raw dot product is negated.
type Metric int

const (
	L2 Metric = iota
	Cosine
	DotProduct
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "l2"
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot"
	default:
		return "unknown"
	}
}

// DistanceFunc computes the distance between two equal-length vectors.
type DistanceFunc func(a, b []float32) float32

// ForMetric returns the public distance kernel for m: the one reported in
// SearchResult items, which applies the square root for L2 so distances
// stay comparable across index types (spec §4.A).
func ForMetric(m Metric) DistanceFunc {
	switch m {
	case Cosine:
		return CosineDistance
	case DotProduct:
		return DotDistance
	default:
		return L2Distance
	}
}

// FastForMetric returns the distance kernel used inside the hot loops of
// HNSW and IVF. For L2 this omits the final sqrt since it preserves
// ordering and is cheaper; the other metrics are unaffected.
func FastForMetric(m Metric) DistanceFunc {
	switch m {
	case Cosine:
		return CosineDistance
	case DotProduct:
		return DotDistance
	default:
		return L2SquaredDistance
	}
}

// L2Distance computes the Euclidean distance between a and b.
func L2Distance(a, b []float32) float32 {
	return float32(math.Sqrt(float64(l2SquaredSum(a, b))))
}

// L2SquaredDistance computes the squared Euclidean distance, skipping the
// sqrt. Ordering is identical to L2Distance, so this is used inside HNSW
// and IVF's inner loops.
func L2SquaredDistance(a, b []float32) float32 {
	return l2SquaredSum(a, b)
}

func l2SquaredSum(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CosineDistance computes 1 - cosine similarity. If either vector has zero
// norm, the distance is defined as 1.0 (orthogonal / undefined direction).
func CosineDistance(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	sim := dot / float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
	return 1.0 - sim
}

// DotDistance computes the negated dot product, so that smaller values
// indicate a higher raw dot product (more "similar").
func DotDistance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return -dot
}
