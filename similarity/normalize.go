// Package similarity provides the vector math behind embedding comparison.
package similarity

import (
	"errors"
	"math"
)

// ErrZeroVector is returned when a vector with zero magnitude is normalized.
var ErrZeroVector = errors.New("cannot normalize zero-magnitude vector")

// L2Norm returns the Euclidean length of v.
func L2Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns a copy of v scaled to unit length. The input is not modified.
func Normalize(v []float64) ([]float64, error) {
	norm := L2Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroVector
	}

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, nil
}

// Mean averages equally sized vectors element-wise. Returns nil for no input.
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			out[i] += v[i]
		}
	}

	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
