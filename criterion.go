package sktree

import "math"

// Criterion scores candidate splits of one node along one sorted feature.
//
// Init loads the node: xf holds the feature values of the node's samples in
// the order they will be scanned, w their weights, and totalWeight the weight
// of the whole training set. Update(pos) moves samples [current, pos) to the
// left child in O(pos - current); a pos behind the current one restarts the
// scan. Improvement is the weighted impurity decrease of the current split,
// already scaled by the node's share of totalWeight.
type Criterion interface {
	Init(xf, w []float64, totalWeight float64)
	Reset()
	Update(pos int)
	NodeImpurity() float64
	ChildrenImpurity() (left, right float64)
	Improvement() float64
	WeightedLeft() float64
	WeightedRight() float64
}

// newCriterion returns a fresh criterion for one build.
func newCriterion(cfg *Config) Criterion {
	if cfg.NewCriterion != nil {
		return cfg.NewCriterion()
	}
	if cfg.Criterion == CriterionFastBIC {
		return &FastBIC{}
	}
	return &TwoMeans{}
}

// moments are the weighted count, sum and sum of squares of a sample range.
type moments struct {
	w, s, q float64
}

func (m *moments) add(x, w float64) {
	m.w += w
	m.s += w * x
	m.q += w * x * x
}

func (m moments) sub(o moments) moments {
	return moments{w: m.w - o.w, s: m.s - o.s, q: m.q - o.q}
}

// sse is the weighted sum of squared deviations from the mean.
func (m moments) sse() float64 {
	if m.w <= 0 {
		return 0
	}
	return max(m.q-m.s*m.s/m.w, 0)
}

func (m moments) variance() float64 {
	if m.w <= 0 {
		return 0
	}
	return m.sse() / m.w
}

// runningSplit keeps node and left-child moments for an incremental scan.
// Values are accumulated relative to the node mean, so large offsets in a
// feature do not cancel out the precision of sse.
type runningSplit struct {
	xf, w       []float64
	totalWeight float64
	center      float64
	node, left  moments
	pos         int
}

func (r *runningSplit) Init(xf, w []float64, totalWeight float64) {
	r.xf, r.w, r.totalWeight = xf, w, totalWeight

	var sum, weight float64
	for i, x := range xf {
		sum += w[i] * x
		weight += w[i]
	}
	r.center = 0
	if weight > 0 {
		r.center = sum / weight
	}

	r.node = moments{}
	for i, x := range xf {
		r.node.add(x-r.center, w[i])
	}
	r.Reset()
}

func (r *runningSplit) Reset() {
	r.left = moments{}
	r.pos = 0
}

func (r *runningSplit) Update(pos int) {
	if pos < r.pos {
		r.Reset()
	}
	for i := r.pos; i < pos; i++ {
		r.left.add(r.xf[i]-r.center, r.w[i])
	}
	r.pos = pos
}

func (r *runningSplit) right() moments { return r.node.sub(r.left) }

func (r *runningSplit) NodeImpurity() float64 { return r.node.variance() }

func (r *runningSplit) ChildrenImpurity() (float64, float64) {
	return r.left.variance(), r.right().variance()
}

func (r *runningSplit) WeightedLeft() float64  { return r.left.w }
func (r *runningSplit) WeightedRight() float64 { return r.node.w - r.left.w }

// TwoMeans measures impurity as the weighted variance of a node and scores a
// split by the reduction of the within-child sum of squares, as in a
// two-cluster k-means.
type TwoMeans struct {
	runningSplit
}

func (c *TwoMeans) Improvement() float64 {
	if c.totalWeight <= 0 {
		return 0
	}
	return (c.node.sse() - c.left.sse() - c.right().sse()) / c.totalWeight
}

// varianceFloor keeps the BIC log terms finite on (near) constant children.
const varianceFloor = 1e-12

// FastBIC scores a split by how much a two-component Gaussian mixture with a
// shared variance, split at the threshold, lowers the Bayesian information
// criterion compared to a single Gaussian. Node impurity is the weighted
// variance, as for TwoMeans.
type FastBIC struct {
	runningSplit
}

func (c *FastBIC) Improvement() float64 {
	wt := c.node.w
	wl := c.left.w
	wr := wt - wl
	if wl <= 0 || wr <= 0 || c.totalWeight <= 0 {
		return math.Inf(-1)
	}

	variance := max(c.node.variance(), varianceFloor)
	pooled := max((c.left.sse()+c.right().sse())/wt, varianceFloor)

	// BIC(one) - BIC(two): likelihood gain of the mixture minus the penalty
	// for its two extra parameters.
	gain := wt*math.Log(variance/pooled) +
		2*(wl*math.Log(wl/wt)+wr*math.Log(wr/wt)) -
		2*math.Log(wt)
	return gain / c.totalWeight
}
