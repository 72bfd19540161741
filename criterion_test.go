package sktree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// directSSE is the two-pass weighted sum of squared deviations.
func directSSE(x, w []float64) (sse, weight float64) {
	var sum float64
	for i := range x {
		sum += w[i] * x[i]
		weight += w[i]
	}
	if weight == 0 {
		return 0, 0
	}
	mean := sum / weight
	for i := range x {
		d := x[i] - mean
		sse += w[i] * d * d
	}
	return sse, weight
}

func TestTwoMeans_IncrementalMatchesDirect(t *testing.T) {
	xf := []float64{1, 2, 3, 10, 11, 12}
	w := []float64{1, 2, 1, 3, 1, 2}
	total := 20.0

	c := &TwoMeans{}
	c.Init(xf, w, total)

	nodeSSE, nodeW := directSSE(xf, w)
	assert.InDelta(t, nodeSSE/nodeW, c.NodeImpurity(), 1e-9)

	// Forward, then backward (which restarts the scan).
	for _, pos := range []int{1, 2, 3, 4, 5, 2, 1} {
		c.Update(pos)
		lSSE, lW := directSSE(xf[:pos], w[:pos])
		rSSE, rW := directSSE(xf[pos:], w[pos:])

		assert.InDelta(t, lW, c.WeightedLeft(), 1e-12, "pos %d", pos)
		assert.InDelta(t, rW, c.WeightedRight(), 1e-12, "pos %d", pos)

		left, right := c.ChildrenImpurity()
		assert.InDelta(t, lSSE/lW, left, 1e-9, "pos %d", pos)
		assert.InDelta(t, rSSE/rW, right, 1e-9, "pos %d", pos)
		assert.InDelta(t, (nodeSSE-lSSE-rSSE)/total, c.Improvement(), 1e-9, "pos %d", pos)
	}
}

func TestCriteria_ShiftInvariant(t *testing.T) {
	xf := []float64{1, 2, 3, 10, 11, 12}
	w := []float64{1, 2, 1, 3, 1, 2}
	shifted := make([]float64, len(xf))
	for i, x := range xf {
		shifted[i] = x + 1e9
	}

	for _, newCrit := range []func() Criterion{
		func() Criterion { return &TwoMeans{} },
		func() Criterion { return &FastBIC{} },
	} {
		plain, moved := newCrit(), newCrit()
		plain.Init(xf, w, 10)
		moved.Init(shifted, w, 10)
		assert.InDelta(t, plain.NodeImpurity(), moved.NodeImpurity(), 1e-6)

		for pos := 1; pos < len(xf); pos++ {
			plain.Update(pos)
			moved.Update(pos)
			assert.InDelta(t, plain.Improvement(), moved.Improvement(), 1e-6, "pos %d", pos)
			pl, pr := plain.ChildrenImpurity()
			ml, mr := moved.ChildrenImpurity()
			assert.InDelta(t, pl, ml, 1e-6, "pos %d", pos)
			assert.InDelta(t, pr, mr, 1e-6, "pos %d", pos)
		}
	}
}

func TestTwoMeans_ImprovementIsWeightedDecrease(t *testing.T) {
	xf := []float64{0, 0.5, 4, 4.5, 9}
	w := []float64{1, 1, 2, 1, 1}
	total := 30.0

	c := &TwoMeans{}
	c.Init(xf, w, total)
	c.Update(2)

	wt := c.WeightedLeft() + c.WeightedRight()
	left, right := c.ChildrenImpurity()
	want := wt / total * (c.NodeImpurity() -
		c.WeightedLeft()/wt*left -
		c.WeightedRight()/wt*right)
	assert.InDelta(t, want, c.Improvement(), 1e-12)
}

func TestTwoMeans_Reset(t *testing.T) {
	c := &TwoMeans{}
	c.Init([]float64{1, 2, 3}, []float64{1, 1, 1}, 3)
	c.Update(2)
	c.Reset()
	assert.Equal(t, 0.0, c.WeightedLeft())
	assert.Equal(t, 3.0, c.WeightedRight())
}

func TestFastBIC_PrefersModeBoundary(t *testing.T) {
	bimodal := []float64{0, 0.1, 0.2, 10, 10.1, 10.2}
	w := []float64{1, 1, 1, 1, 1, 1}

	c := &FastBIC{}
	c.Init(bimodal, w, 6)

	c.Update(3)
	boundary := c.Improvement()
	c.Update(1)
	offBoundary := c.Improvement()

	assert.Greater(t, boundary, 0.0)
	assert.Greater(t, boundary, offBoundary)

	// Splitting evenly spaced values is not worth the extra parameters.
	uniform := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	c.Init(uniform, []float64{1, 1, 1, 1, 1, 1, 1, 1}, 8)
	c.Update(4)
	assert.Less(t, c.Improvement(), 0.0)
}

func TestFastBIC_ImpurityIsVariance(t *testing.T) {
	xf := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	w := make([]float64, len(xf))
	for i := range w {
		w[i] = 1
	}
	c := &FastBIC{}
	c.Init(xf, w, 8)
	assert.InDelta(t, 4.0, c.NodeImpurity(), 1e-12)

	// Constant children hit the variance floor but stay finite.
	c.Init([]float64{1, 1, 5, 5}, []float64{1, 1, 1, 1}, 4)
	c.Update(2)
	assert.False(t, math.IsInf(c.Improvement(), 0))
	assert.False(t, math.IsNaN(c.Improvement()))
}

func TestNewCriterion(t *testing.T) {
	cfg := DefaultConfig()
	assert.IsType(t, &TwoMeans{}, newCriterion(&cfg))

	cfg.Criterion = CriterionFastBIC
	assert.IsType(t, &FastBIC{}, newCriterion(&cfg))

	// A factory builds a fresh value per call.
	cfg.NewCriterion = func() Criterion { return &TwoMeans{} }
	a, b := newCriterion(&cfg), newCriterion(&cfg)
	assert.NotSame(t, a, b)
}
