package index

import "testing"

func TestKMeansSeparatesTwoClusters(t *testing.T) {
	vectors := [][]float32{
		{0, 0}, {0, 1}, {1, 0},
		{10, 10}, {10, 11}, {11, 10},
	}
	result, err := KMeans(vectors, 2, DefaultKMeansParams(42))
	if err != nil {
		t.Fatalf("KMeans failed: %v", err)
	}
	if len(result.Centroids) != 2 {
		t.Fatalf("expected 2 centroids, got %d", len(result.Centroids))
	}

	cluster0 := result.Assignments[0]
	for i := 0; i < 3; i++ {
		if result.Assignments[i] != cluster0 {
			t.Fatalf("expected first 3 points in the same cluster, point %d diverged", i)
		}
	}
	for i := 3; i < 6; i++ {
		if result.Assignments[i] == cluster0 {
			t.Fatalf("expected last 3 points in a different cluster than the first 3")
		}
	}
}

func TestKMeansRejectsTooFewPoints(t *testing.T) {
	vectors := [][]float32{{0, 0}, {1, 1}}
	if _, err := KMeans(vectors, 5, DefaultKMeansParams(1)); Code(err) != InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	vectors := [][]float32{
		{0, 0}, {0, 1}, {5, 5}, {5, 6}, {9, 0}, {9, 1},
	}
	r1, err := KMeans(vectors, 3, DefaultKMeansParams(7))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	r2, err := KMeans(vectors, 3, DefaultKMeansParams(7))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	for i := range r1.Centroids {
		for d := range r1.Centroids[i] {
			if r1.Centroids[i][d] != r2.Centroids[i][d] {
				t.Fatalf("same seed produced different centroids at [%d][%d]: %v != %v", i, d, r1.Centroids[i][d], r2.Centroids[i][d])
			}
		}
	}
}
