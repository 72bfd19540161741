package sktree

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Clusterer assigns one label per row of a matrix. Estimators call it with
// the affinity matrix, treating each row as the feature vector of a sample.
type Clusterer interface {
	FitPredict(X mat.Matrix) ([]int, error)
}

// ClustererFunc adapts a plain function into a Clusterer.
type ClustererFunc func(X mat.Matrix) ([]int, error)

func (f ClustererFunc) FitPredict(X mat.Matrix) ([]int, error) { return f(X) }

// ComputeAffinityMatrix counts, for every pair of samples, whether they share
// a leaf. leaves[i] is the leaf of sample i. The result is symmetric with a
// unit diagonal. It returns nil for an empty input.
func ComputeAffinityMatrix(leaves []int) *mat.SymDense {
	if len(leaves) == 0 {
		return nil
	}
	aff := mat.NewSymDense(len(leaves), nil)
	addAffinity(aff, leaves, 1)
	return aff
}

// addAffinity adds weight to aff[i][j] for every pair i, j in the same leaf.
func addAffinity(aff *mat.SymDense, leaves []int, weight float64) {
	groups := make(map[int][]int)
	for i, leaf := range leaves {
		groups[leaf] = append(groups[leaf], i)
	}
	for _, members := range groups {
		for a, i := range members {
			for _, j := range members[a:] {
				aff.SetSym(i, j, aff.At(i, j)+weight)
			}
		}
	}
}

// assignLabels runs the clusterer on the affinity matrix.
func assignLabels(c Clusterer, aff *mat.SymDense) ([]int, error) {
	labels, err := c.FitPredict(aff)
	if err != nil {
		return nil, errors.Wrap(err, "clustering the affinity matrix")
	}
	if n := aff.SymmetricDim(); len(labels) != n {
		return nil, errors.Errorf("sktree: clusterer returned %d labels for %d samples", len(labels), n)
	}
	return labels, nil
}
