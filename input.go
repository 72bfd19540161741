package sktree

import (
	"math"

	"github.com/pkg/errors"
)

// flatten copies X into a row-major buffer after checking that it is
// non-empty, rectangular and finite. nFeatures < 0 accepts any width.
func flatten(X [][]float64, nFeatures int) ([]float64, int, int, error) {
	n := len(X)
	if n == 0 {
		return nil, 0, 0, errors.Wrap(ErrInvalidInput, "X has no samples")
	}
	dims := len(X[0])
	if dims == 0 {
		return nil, 0, 0, errors.Wrap(ErrInvalidInput, "X has no features")
	}
	if nFeatures >= 0 && dims != nFeatures {
		return nil, 0, 0, errors.Wrapf(ErrInvalidInput, "X has %d features, but the tree was fitted with %d", dims, nFeatures)
	}

	flat := make([]float64, n*dims)
	for i, row := range X {
		if len(row) != dims {
			return nil, 0, 0, errors.Wrapf(ErrInvalidInput, "row %d has %d features, expected %d", i, len(row), dims)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, 0, errors.Wrapf(ErrInvalidInput, "X[%d][%d] is not finite (%v)", i, j, v)
			}
		}
		copy(flat[i*dims:], row)
	}
	return flat, n, dims, nil
}

// sampleWeights validates w against n samples; nil means unit weights.
func sampleWeights(w []float64, n int) ([]float64, error) {
	if w == nil {
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		return ones, nil
	}
	if len(w) != n {
		return nil, errors.Wrapf(ErrInvalidInput, "sampleWeight has %d entries for %d samples", len(w), n)
	}
	var total float64
	for i, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrInvalidInput, "sampleWeight[%d] = %v must be finite and >= 0", i, v)
		}
		total += v
	}
	if total <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "sampleWeight sums to zero")
	}
	out := make([]float64, n)
	copy(out, w)
	return out, nil
}
