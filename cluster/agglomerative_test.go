package cluster

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func line(xs ...float64) *mat.Dense {
	return mat.NewDense(len(xs), 1, xs)
}

func TestAgglomerative_WardDendrogram(t *testing.T) {
	// {0,1} and {5,6}: Ward distance between the pairs is
	// sqrt(2*2*2/4) * |0.5-5.5| = 5*sqrt(2).
	dendro, err := NewAgglomerative(2).Dendrogram(line(0, 1, 5, 6))
	require.NoError(t, err)
	require.Len(t, dendro, 3)

	assert.InDelta(t, 1, dendro[0][2], 1e-12)
	assert.InDelta(t, 1, dendro[1][2], 1e-12)
	assert.InDelta(t, 5*math.Sqrt2, dendro[2][2], 1e-9)
	assert.Equal(t, 4.0, dendro[2][3])
}

func TestAgglomerative_Linkages(t *testing.T) {
	X := line(0, 1, 5, 6)

	tests := []struct {
		linkage Linkage
		last    float64
	}{
		{LinkageWard, 5 * math.Sqrt2},
		{LinkageComplete, 6},
		{LinkageAverage, 5},
		{LinkageSingle, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.linkage), func(t *testing.T) {
			agg := &Agglomerative{NClusters: 2, Linkage: tt.linkage}
			dendro, err := agg.Dendrogram(X)
			require.NoError(t, err)
			require.Len(t, dendro, 3)
			assert.InDelta(t, tt.last, dendro[2][2], 1e-9)

			labels, err := agg.FitPredict(X)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 0, 1, 1}, labels)
		})
	}
}

func TestAgglomerative_DendrogramMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, dims := 40, 3
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	X := mat.NewDense(n, dims, data)

	for _, l := range []Linkage{LinkageWard, LinkageComplete, LinkageAverage, LinkageSingle} {
		t.Run(string(l), func(t *testing.T) {
			dendro, err := (&Agglomerative{Linkage: l}).Dendrogram(X)
			require.NoError(t, err)
			require.Len(t, dendro, n-1)
			for i := 1; i < len(dendro); i++ {
				assert.GreaterOrEqual(t, dendro[i][2], dendro[i-1][2])
			}
			assert.Equal(t, float64(n), dendro[n-2][3])
		})
	}
}

func TestAgglomerative_Precomputed(t *testing.T) {
	dist := mat.NewDense(4, 4, []float64{
		0, 1, 9, 9,
		1, 0, 9, 9,
		9, 9, 0, 2,
		9, 9, 2, 0,
	})

	agg := &Agglomerative{NClusters: 2, Linkage: LinkageAverage, Precomputed: true}
	labels, err := agg.FitPredict(dist)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, labels)
}

func TestAgglomerative_Errors(t *testing.T) {
	tests := []struct {
		name string
		agg  *Agglomerative
		X    mat.Matrix
	}{
		{"too many clusters", NewAgglomerative(5), line(1, 2, 3)},
		{"negative clusters", NewAgglomerative(-1), line(1, 2, 3)},
		{"unknown linkage", &Agglomerative{Linkage: "centroid"}, line(1, 2, 3)},
		{"ward precomputed", &Agglomerative{Precomputed: true}, mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
		{"ward manhattan", &Agglomerative{Metric: ManhattanMetric{}}, line(1, 2, 3)},
		{"non-square precomputed", &Agglomerative{Linkage: LinkageSingle, Precomputed: true}, mat.NewDense(2, 3, nil)},
		{"negative precomputed", &Agglomerative{Linkage: LinkageSingle, Precomputed: true}, mat.NewDense(2, 2, []float64{0, -1, -1, 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.agg.FitPredict(tt.X)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestAgglomerative_SinglePoint(t *testing.T) {
	labels, err := (&Agglomerative{NClusters: 1}).FitPredict(line(3))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, labels)
}
