package sktree

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// UnsupervisedDecisionTree clusters data with one axis-aligned tree: samples
// that end in the same leaf are similar, and the leaf co-membership
// (affinity) matrix is handed to a Clusterer for labels.
//
//	est, err := sktree.NewUnsupervisedDecisionTree(sktree.DefaultConfig())
//	err = est.Fit(X, nil)
//	// est.Labels[i] is the cluster of sample i
type UnsupervisedDecisionTree struct {
	cfg     Config
	oblique bool

	// Tree is the fitted tree; nil before Fit.
	Tree *Tree
	// Affinity[i][j] is 1 when training samples i and j share a leaf.
	Affinity *mat.SymDense
	// Labels of the training samples; nil when fewer than 2 samples.
	Labels []int
	// NFeaturesIn is the feature count seen by Fit.
	NFeaturesIn int
}

// NewUnsupervisedDecisionTree validates cfg and returns an unfitted
// estimator.
func NewUnsupervisedDecisionTree(cfg Config) (*UnsupervisedDecisionTree, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &UnsupervisedDecisionTree{cfg: cfg}, nil
}

// UnsupervisedObliqueDecisionTree is UnsupervisedDecisionTree with splits on
// sparse random projections of the features.
type UnsupervisedObliqueDecisionTree struct {
	UnsupervisedDecisionTree
}

// NewUnsupervisedObliqueDecisionTree validates cfg and returns an unfitted
// oblique estimator. MaxFeatures counts projections.
func NewUnsupervisedObliqueDecisionTree(cfg Config) (*UnsupervisedObliqueDecisionTree, error) {
	est, err := NewUnsupervisedDecisionTree(cfg)
	if err != nil {
		return nil, err
	}
	if err := validateOblique(&est.cfg); err != nil {
		return nil, err
	}
	est.oblique = true
	return &UnsupervisedObliqueDecisionTree{*est}, nil
}

// Config returns the effective configuration, defaults applied.
func (e *UnsupervisedDecisionTree) Config() Config { return e.cfg }

// Fit grows the tree on X (one row per sample), computes the training
// affinity matrix and, with at least 2 samples, the training labels.
// sampleWeight may be nil; samples with zero weight are left out of the
// build but still receive a leaf and a label. The estimator is only updated
// when every step succeeds.
func (e *UnsupervisedDecisionTree) Fit(X [][]float64, sampleWeight []float64) error {
	data, n, dims, err := flatten(X, -1)
	if err != nil {
		return err
	}
	weights, err := sampleWeights(sampleWeight, n)
	if err != nil {
		return err
	}

	tree, err := fitTree(&e.cfg, e.oblique, data, n, dims, weights, e.cfg.RandomState)
	if err != nil {
		return err
	}

	affinity := ComputeAffinityMatrix(tree.applyFlat(data, n, e.cfg.Workers))
	var labels []int
	if n >= 2 {
		if labels, err = assignLabels(e.cfg.Clustering, affinity); err != nil {
			return err
		}
	}

	e.Tree = tree
	e.Affinity = affinity
	e.Labels = labels
	e.NFeaturesIn = dims

	log.WithFields(logrus.Fields{
		"samples":  n,
		"features": dims,
		"oblique":  e.oblique,
		"leaves":   tree.LeafCount(),
	}).Debug("unsupervised tree fitted")
	return nil
}

// Apply returns the leaf ID reached by each row of X.
func (e *UnsupervisedDecisionTree) Apply(X [][]float64) ([]int, error) {
	if e.Tree == nil {
		return nil, ErrNotFitted
	}
	return e.Tree.ApplyParallel(X, e.cfg.Workers)
}

// Transform returns the leaf co-membership matrix of the rows of X.
func (e *UnsupervisedDecisionTree) Transform(X [][]float64) (*mat.SymDense, error) {
	leaves, err := e.Apply(X)
	if err != nil {
		return nil, err
	}
	return ComputeAffinityMatrix(leaves), nil
}

// Predict clusters the rows of X by their affinity under the fitted tree.
func (e *UnsupervisedDecisionTree) Predict(X [][]float64) ([]int, error) {
	affinity, err := e.Transform(X)
	if err != nil {
		return nil, err
	}
	return assignLabels(e.cfg.Clustering, affinity)
}

// fitTree builds one tree over n rows of flat data with the given seed.
// Every call gets its own criterion, splitter and sample buffer.
func fitTree(cfg *Config, oblique bool, data []float64, n, dims int, weights []float64, seed int64) (*Tree, error) {
	maxFeatures, err := resolveMaxFeatures(cfg, dims, oblique)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	minWeightLeaf := cfg.MinWeightFractionLeaf * total

	splitter := newSplitter(cfg, oblique, SplitterParams{
		Criterion:           newCriterion(cfg),
		MaxFeatures:         maxFeatures,
		MinSamplesLeaf:      cfg.MinSamplesLeaf,
		MinWeightLeaf:       minWeightLeaf,
		FeatureCombinations: cfg.FeatureCombinations,
		Rand:                rand.New(rand.NewSource(seed)),
	})
	params := builderParams{
		splitter:            splitter,
		minSamplesSplit:     max(cfg.MinSamplesSplit, 2*cfg.MinSamplesLeaf),
		minSamplesLeaf:      cfg.MinSamplesLeaf,
		minWeightLeaf:       minWeightLeaf,
		maxDepth:            cfg.MaxDepth,
		minImpurityDecrease: cfg.MinImpurityDecrease,
		metrics:             cfg.Metrics,
	}

	var builder treeBuilder
	if maxLeaves := cfg.maxLeafNodes(); maxLeaves < 0 {
		builder = &depthFirstBuilder{builderParams: params}
	} else {
		builder = &bestFirstBuilder{builderParams: params, maxLeafNodes: maxLeaves}
	}

	tree := NewTree(dims)
	if err := builder.Build(tree, data, n, weights); err != nil {
		return nil, errors.WithMessage(err, "building tree")
	}
	return tree, nil
}
