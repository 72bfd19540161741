package sktree

import (
	"math"
	"math/rand"
)

// featureThreshold is the smallest gap between two values that can hold a
// threshold; ranges narrower than this are treated as constant.
const featureThreshold = 1e-7

// SplitRecord is the outcome of a split search on one node.
type SplitRecord struct {
	// Feature is the split column, or TreeUndefined for oblique splits.
	Feature int
	// Projection holds the sparse weights of an oblique split.
	Projection Projection
	// Threshold: samples with value <= Threshold go left.
	Threshold     float64
	Improvement   float64
	ImpurityLeft  float64
	ImpurityRight float64
	WeightLeft    float64
	WeightRight   float64
	// Pos is the index in the sample buffer where the right child starts,
	// or -1 when no valid split exists.
	Pos int
}

func noSplit() SplitRecord {
	return SplitRecord{Feature: TreeUndefined, Improvement: math.Inf(-1), Pos: -1}
}

// Found reports whether the record holds a usable split.
func (s *SplitRecord) Found() bool { return s.Pos >= 0 }

// value evaluates the split's feature or projection on one row.
func (s *SplitRecord) value(row []float64) float64 {
	if s.Feature == TreeUndefined {
		return s.Projection.Apply(row)
	}
	return row[s.Feature]
}

// Splitter searches for the best split of a contiguous range of the sample
// index buffer.
//
// Init binds the training data (flat row-major, nFeatures columns), the
// sample buffer owned by the builder, per-sample weights and their total.
// NodeSplit reorders samples[start:end] in place so the left child occupies
// [start, Pos) and the right child [Pos, end). constant marks features known
// to be constant in the node; the returned slice adds the ones discovered
// during the search and is never the caller's slice when it differs.
type Splitter interface {
	Init(data []float64, nFeatures int, samples []int, weights []float64, totalWeight float64)
	NodeImpurity(start, end int) float64
	NodeSplit(start, end int, constant []bool) (SplitRecord, []bool)
}

// SplitterParams carries what every splitter needs from the build.
type SplitterParams struct {
	Criterion           Criterion
	MaxFeatures         int
	MinSamplesLeaf      int
	MinWeightLeaf       float64
	FeatureCombinations float64
	Rand                *rand.Rand
}

func newSplitter(cfg *Config, oblique bool, p SplitterParams) Splitter {
	switch {
	case cfg.NewSplitter != nil:
		return cfg.NewSplitter(p)
	case oblique:
		return NewObliqueSplitter(p)
	case cfg.Splitter == SplitterRandom:
		return NewRandomSplitter(p)
	default:
		return NewBestSplitter(p)
	}
}

// baseSplitter holds the data bindings and scratch buffers shared by the
// splitters.
type baseSplitter struct {
	SplitterParams

	data        []float64
	nFeatures   int
	samples     []int
	weights     []float64
	totalWeight float64

	xf       []float64
	wf       []float64
	features []int
}

func (s *baseSplitter) Init(data []float64, nFeatures int, samples []int, weights []float64, totalWeight float64) {
	s.data = data
	s.nFeatures = nFeatures
	s.samples = samples
	s.weights = weights
	s.totalWeight = totalWeight
	s.xf = make([]float64, len(samples))
	s.wf = make([]float64, len(samples))
	s.features = make([]int, nFeatures)
	for i := range s.features {
		s.features[i] = i
	}
}

func (s *baseSplitter) row(i int) []float64 {
	return s.data[i*s.nFeatures : (i+1)*s.nFeatures]
}

// loadFeature copies column f and the weights of samples[start:end] into the
// scratch buffers.
func (s *baseSplitter) loadFeature(start, end, f int) {
	for i, idx := range s.samples[start:end] {
		s.xf[i] = s.data[idx*s.nFeatures+f]
		s.wf[i] = s.weights[idx]
	}
}

// loadValues is loadFeature for an arbitrary per-row value.
func (s *baseSplitter) loadValues(start, end int, value func([]float64) float64) {
	for i, idx := range s.samples[start:end] {
		s.xf[i] = value(s.row(idx))
		s.wf[i] = s.weights[idx]
	}
}

func (s *baseSplitter) loadWeights(start, end int) {
	for i, idx := range s.samples[start:end] {
		s.wf[i] = s.weights[idx]
	}
}

// NodeImpurity averages the criterion's node impurity over all features.
func (s *baseSplitter) NodeImpurity(start, end int) float64 {
	m := end - start
	if m <= 0 || s.nFeatures == 0 {
		return 0
	}
	var sum float64
	for f := 0; f < s.nFeatures; f++ {
		s.loadFeature(start, end, f)
		s.Criterion.Init(s.xf[:m], s.wf[:m], s.totalWeight)
		sum += s.Criterion.NodeImpurity()
	}
	return sum / float64(s.nFeatures)
}

// drawFeature performs step j of a partial Fisher-Yates shuffle and returns
// the feature it selected.
func (s *baseSplitter) drawFeature(j int) int {
	k := j + s.Rand.Intn(s.nFeatures-j)
	s.features[j], s.features[k] = s.features[k], s.features[j]
	return s.features[j]
}

// scanSorted co-sorts the values loaded in xf with samples[start:end] and
// evaluates a threshold between every pair of distinct neighbors, replacing
// best when a candidate scores strictly higher. It returns false when the
// values are constant.
func (s *baseSplitter) scanSorted(start, end int, cand SplitRecord, best *SplitRecord) bool {
	m := end - start
	xf := s.xf[:m]
	sortSamples(xf, s.samples[start:end])
	if xf[m-1] <= xf[0]+featureThreshold {
		return false
	}
	s.loadWeights(start, end)

	crit := s.Criterion
	crit.Init(xf, s.wf[:m], s.totalWeight)

	minLeaf := max(s.MinSamplesLeaf, 1)
	for p := minLeaf; p <= m-minLeaf; p++ {
		if xf[p] <= xf[p-1]+featureThreshold {
			continue
		}
		crit.Update(p)
		if crit.WeightedLeft() < s.MinWeightLeaf || crit.WeightedRight() < s.MinWeightLeaf {
			continue
		}
		improvement := crit.Improvement()
		if improvement <= best.Improvement {
			continue
		}

		threshold := xf[p-1]/2 + xf[p]/2
		if threshold == xf[p] || math.IsInf(threshold, 0) {
			threshold = xf[p-1]
		}
		left, right := crit.ChildrenImpurity()

		*best = cand
		best.Threshold = threshold
		best.Improvement = improvement
		best.ImpurityLeft = left
		best.ImpurityRight = right
		best.WeightLeft = crit.WeightedLeft()
		best.WeightRight = crit.WeightedRight()
		best.Pos = start + p
	}
	return true
}

// evaluateAt scores the split of samples[start:end] at pos, which must
// already be partitioned, and replaces best when it scores strictly higher.
func (s *baseSplitter) evaluateAt(start, end, pos int, cand SplitRecord, best *SplitRecord) {
	m := end - start
	p := pos - start
	if p < s.MinSamplesLeaf || m-p < s.MinSamplesLeaf {
		return
	}
	crit := s.Criterion
	crit.Init(s.xf[:m], s.wf[:m], s.totalWeight)
	crit.Update(p)
	if crit.WeightedLeft() < s.MinWeightLeaf || crit.WeightedRight() < s.MinWeightLeaf {
		return
	}
	improvement := crit.Improvement()
	if improvement <= best.Improvement {
		return
	}
	left, right := crit.ChildrenImpurity()
	*best = cand
	best.Improvement = improvement
	best.ImpurityLeft = left
	best.ImpurityRight = right
	best.WeightLeft = crit.WeightedLeft()
	best.WeightRight = crit.WeightedRight()
	best.Pos = pos
}

// partition moves samples[start:end] with value <= threshold to the front and
// returns the index of the first sample on the right.
func (s *baseSplitter) partition(start, end int, value func([]float64) float64, threshold float64) int {
	i, j := start, end
	for i < j {
		if value(s.row(s.samples[i])) <= threshold {
			i++
		} else {
			j--
			s.samples[i], s.samples[j] = s.samples[j], s.samples[i]
		}
	}
	return i
}

// apply reorders the node range by the winning rule.
func (s *baseSplitter) apply(start, end int, best *SplitRecord) {
	if best.Found() {
		best.Pos = s.partition(start, end, best.value, best.Threshold)
	}
}

// markConstant records f as constant without touching the caller's slice.
func markConstant(constant []bool, owned bool, nFeatures, f int) ([]bool, bool) {
	if !owned {
		fresh := make([]bool, nFeatures)
		copy(fresh, constant)
		constant = fresh
	}
	constant[f] = true
	return constant, true
}

// BestSplitter evaluates every midpoint threshold of up to MaxFeatures
// randomly drawn non-constant features.
type BestSplitter struct {
	baseSplitter
}

// NewBestSplitter returns an axis-aligned exhaustive splitter.
func NewBestSplitter(p SplitterParams) *BestSplitter {
	return &BestSplitter{baseSplitter{SplitterParams: p}}
}

func (s *BestSplitter) NodeSplit(start, end int, constant []bool) (SplitRecord, []bool) {
	best := noSplit()
	if end-start < 2 {
		return best, constant
	}

	owned := false
	found := 0
	for j := 0; j < s.nFeatures && found < s.MaxFeatures; j++ {
		f := s.drawFeature(j)
		if constant != nil && constant[f] {
			continue
		}
		s.loadFeature(start, end, f)
		if !s.scanSorted(start, end, SplitRecord{Feature: f}, &best) {
			constant, owned = markConstant(constant, owned, s.nFeatures, f)
			continue
		}
		found++
	}

	s.apply(start, end, &best)
	return best, constant
}

// RandomSplitter draws one uniform threshold per candidate feature instead of
// scanning all of them.
type RandomSplitter struct {
	baseSplitter
}

// NewRandomSplitter returns an axis-aligned randomized splitter.
func NewRandomSplitter(p SplitterParams) *RandomSplitter {
	return &RandomSplitter{baseSplitter{SplitterParams: p}}
}

func (s *RandomSplitter) NodeSplit(start, end int, constant []bool) (SplitRecord, []bool) {
	best := noSplit()
	if end-start < 2 {
		return best, constant
	}

	owned := false
	found := 0
	for j := 0; j < s.nFeatures && found < s.MaxFeatures; j++ {
		f := s.drawFeature(j)
		if constant != nil && constant[f] {
			continue
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, idx := range s.samples[start:end] {
			x := s.data[idx*s.nFeatures+f]
			lo = min(lo, x)
			hi = max(hi, x)
		}
		if hi <= lo+featureThreshold {
			constant, owned = markConstant(constant, owned, s.nFeatures, f)
			continue
		}
		found++

		threshold := lo + s.Rand.Float64()*(hi-lo)
		if threshold >= hi {
			threshold = lo
		}
		cand := SplitRecord{Feature: f, Threshold: threshold}
		pos := s.partition(start, end, cand.value, threshold)
		s.loadFeature(start, end, f)
		s.evaluateAt(start, end, pos, cand, &best)
	}

	s.apply(start, end, &best)
	return best, constant
}
