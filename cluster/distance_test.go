package cluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}

	tests := []struct {
		name   string
		metric DistanceMetric
		want   float64
	}{
		{"euclidean", EuclideanMetric{}, 5},
		{"manhattan", ManhattanMetric{}, 7},
		{"chebyshev", ChebyshevMetric{}, 4},
		{"func", DistanceFunc(func(a, b []float64) float64 { return 42 }), 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.metric.Distance(a, b), 1e-12)
		})
	}
}

func TestCosineMetric(t *testing.T) {
	m := CosineMetric{}
	assert.InDelta(t, 0, m.Distance([]float64{1, 1}, []float64{2, 2}), 1e-12)
	assert.InDelta(t, 1, m.Distance([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.True(t, math.IsNaN(m.Distance([]float64{0, 0}, []float64{0, 0})))
}

func TestComputePairwiseDistancesParallel_BitwiseIdentical(t *testing.T) {
	data := []float64{
		0, 0,
		3, 0,
		0, 4,
		1, 1,
		5, 5,
	}
	n, dims := 5, 2

	for _, metric := range []DistanceMetric{EuclideanMetric{}, ManhattanMetric{}} {
		sequential := ComputePairwiseDistances(data, n, dims, metric)
		for _, workers := range []int{1, 2, 3, 8} {
			assert.Equal(t, sequential, ComputePairwiseDistancesParallel(data, n, dims, metric, workers))
		}
	}

	d := ComputePairwiseDistances(data, n, dims, EuclideanMetric{})
	assert.InDelta(t, 5, d[1*n+2], 1e-12)
	assert.InDelta(t, 5, d[2*n+1], 1e-12)
	assert.Equal(t, 0.0, d[3*n+3])
}
