// Package vectorindex stores chunk vectors and answers top-k cosine
// similarity queries. The index is safe for concurrent readers and writers.
package vectorindex

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	return math.Sqrt(float64(vek32.Dot(v, v)))
}

// CosineSimilarity computes cosine similarity using pre-computed magnitudes.
// Returns 0 if either magnitude is zero.
func CosineSimilarity(a, b []float32, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (magA * magB)
}

// NormalizeScore maps a cosine similarity in [-1, 1] onto [0, 1].
func NormalizeScore(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
