package sktree

// Projection is a sparse linear combination of features. An oblique split
// compares Apply(row) with its threshold.
type Projection struct {
	Features []int     `json:"features,omitempty"`
	Weights  []float64 `json:"weights,omitempty"`
}

// Apply returns the weighted sum of the projection's features in row.
func (p Projection) Apply(row []float64) float64 {
	var sum float64
	for i, f := range p.Features {
		sum += p.Weights[i] * row[f]
	}
	return sum
}

// Empty reports whether the projection has no non-zero weights.
func (p Projection) Empty() bool { return len(p.Features) == 0 }

// ObliqueSplitter searches splits over MaxFeatures sparse random projections
// with ±1 weights. About FeatureCombinations features are combined per
// projection on average.
type ObliqueSplitter struct {
	baseSplitter
}

// NewObliqueSplitter returns a splitter over random sparse projections.
func NewObliqueSplitter(p SplitterParams) *ObliqueSplitter {
	return &ObliqueSplitter{baseSplitter{SplitterParams: p}}
}

// sampleProjections draws MaxFeatures*FeatureCombinations (feature,
// projection, sign) triples. Projections that received no draw stay empty.
func (s *ObliqueSplitter) sampleProjections() []Projection {
	nProj := s.MaxFeatures
	nonZeros := max(int(float64(nProj)*s.FeatureCombinations), 1)

	projections := make([]Projection, nProj)
	for i := 0; i < nonZeros; i++ {
		p := s.Rand.Intn(nProj)
		f := s.Rand.Intn(s.nFeatures)
		w := 1.0
		if s.Rand.Intn(2) == 0 {
			w = -1
		}
		projections[p].Features = append(projections[p].Features, f)
		projections[p].Weights = append(projections[p].Weights, w)
	}
	return projections
}

// NodeSplit ignores constant; an oblique candidate is only skipped when its
// projected values are constant in the node.
func (s *ObliqueSplitter) NodeSplit(start, end int, constant []bool) (SplitRecord, []bool) {
	best := noSplit()
	if end-start < 2 || s.MaxFeatures < 1 {
		return best, constant
	}

	for _, proj := range s.sampleProjections() {
		if proj.Empty() {
			continue
		}
		s.loadValues(start, end, proj.Apply)
		s.scanSorted(start, end, SplitRecord{Feature: TreeUndefined, Projection: proj}, &best)
	}

	s.apply(start, end, &best)
	return best, constant
}
