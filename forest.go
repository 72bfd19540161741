package sktree

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// ForestConfig extends Config with ensemble settings. Start with
// [DefaultForestConfig].
type ForestConfig struct {
	Config

	// NEstimators is the number of trees. Default: 100.
	NEstimators int

	// Bootstrap fits each tree on a resample (with replacement) of the
	// training set, expressed as integer sample weights. The zero value
	// disables it; DefaultForestConfig enables it.
	Bootstrap bool
}

// DefaultForestConfig returns a forest of 100 bootstrapped trees that each
// consider sqrt(n_features) candidates per node.
func DefaultForestConfig() ForestConfig {
	cfg := DefaultConfig()
	cfg.MaxFeaturesRule = MaxFeaturesSqrt
	return ForestConfig{
		Config:      cfg,
		NEstimators: 100,
		Bootstrap:   true,
	}
}

// UnsupervisedRandomForest averages the leaf co-membership of many randomized
// unsupervised trees. Affinity[i][j] is the fraction of trees in which
// samples i and j share a leaf.
type UnsupervisedRandomForest struct {
	cfg     ForestConfig
	oblique bool

	// Estimators are the fitted trees in seed order.
	Estimators []*Tree
	// Affinity of the training samples, averaged over trees.
	Affinity *mat.SymDense
	// Labels of the training samples; nil when fewer than 2 samples.
	Labels      []int
	NFeaturesIn int
}

// NewUnsupervisedRandomForest validates cfg and returns an unfitted forest.
func NewUnsupervisedRandomForest(cfg ForestConfig) (*UnsupervisedRandomForest, error) {
	applyDefaults(&cfg.Config)
	if cfg.NEstimators == 0 {
		cfg.NEstimators = 100
	}
	if err := validateConfig(&cfg.Config); err != nil {
		return nil, err
	}
	if cfg.NEstimators < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "NEstimators must be >= 1, got %d", cfg.NEstimators)
	}
	return &UnsupervisedRandomForest{cfg: cfg}, nil
}

// UnsupervisedObliqueRandomForest is a forest of oblique trees.
type UnsupervisedObliqueRandomForest struct {
	UnsupervisedRandomForest
}

// NewUnsupervisedObliqueRandomForest validates cfg and returns an unfitted
// oblique forest.
func NewUnsupervisedObliqueRandomForest(cfg ForestConfig) (*UnsupervisedObliqueRandomForest, error) {
	f, err := NewUnsupervisedRandomForest(cfg)
	if err != nil {
		return nil, err
	}
	if err := validateOblique(&f.cfg.Config); err != nil {
		return nil, err
	}
	f.oblique = true
	return &UnsupervisedObliqueRandomForest{*f}, nil
}

// Config returns the effective configuration, defaults applied.
func (f *UnsupervisedRandomForest) Config() ForestConfig { return f.cfg }

// treeResult is what a worker hands back for one tree.
type treeResult struct {
	tree   *Tree
	leaves []int
	err    error
}

// Fit grows NEstimators trees in parallel. Tree seeds are drawn from
// RandomState before any worker starts, so the result does not depend on
// Workers.
func (f *UnsupervisedRandomForest) Fit(X [][]float64, sampleWeight []float64) error {
	data, n, dims, err := flatten(X, -1)
	if err != nil {
		return err
	}
	weights, err := sampleWeights(sampleWeight, n)
	if err != nil {
		return err
	}

	master := rand.New(rand.NewSource(f.cfg.RandomState))
	seeds := make([]int64, f.cfg.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	results := make([]treeResult, len(seeds))
	f.runWorkers(len(seeds), func(i int) {
		rng := rand.New(rand.NewSource(seeds[i]))
		w := weights
		if f.cfg.Bootstrap {
			w = bootstrapWeights(weights, rng)
		}
		tree, err := fitTree(&f.cfg.Config, f.oblique, data, n, dims, w, rng.Int63())
		if err != nil {
			results[i].err = errors.WithMessagef(err, "tree %d", i)
			return
		}
		results[i] = treeResult{tree: tree, leaves: tree.applyFlat(data, n, 1)}
	})

	trees := make([]*Tree, len(results))
	leaves := make([][]int, len(results))
	for i, r := range results {
		if r.err != nil {
			return r.err
		}
		trees[i] = r.tree
		leaves[i] = r.leaves
	}

	affinity := averageAffinity(leaves, n)
	var labels []int
	if n >= 2 {
		if labels, err = assignLabels(f.cfg.Clustering, affinity); err != nil {
			return err
		}
	}

	f.Estimators = trees
	f.Affinity = affinity
	f.Labels = labels
	f.NFeaturesIn = dims

	log.WithFields(logrus.Fields{
		"trees":    len(trees),
		"samples":  n,
		"features": dims,
		"oblique":  f.oblique,
	}).Debug("unsupervised forest fitted")
	return nil
}

// Apply returns, for each row of X, the leaf reached in every tree.
func (f *UnsupervisedRandomForest) Apply(X [][]float64) ([][]int, error) {
	perTree, n, err := f.applyTrees(X)
	if err != nil {
		return nil, err
	}
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, len(perTree))
		for t, leaves := range perTree {
			out[i][t] = leaves[i]
		}
	}
	return out, nil
}

// Transform returns the tree-averaged leaf co-membership of the rows of X.
func (f *UnsupervisedRandomForest) Transform(X [][]float64) (*mat.SymDense, error) {
	perTree, n, err := f.applyTrees(X)
	if err != nil {
		return nil, err
	}
	return averageAffinity(perTree, n), nil
}

// Predict clusters the rows of X by their forest affinity.
func (f *UnsupervisedRandomForest) Predict(X [][]float64) ([]int, error) {
	affinity, err := f.Transform(X)
	if err != nil {
		return nil, err
	}
	return assignLabels(f.cfg.Clustering, affinity)
}

func (f *UnsupervisedRandomForest) applyTrees(X [][]float64) ([][]int, int, error) {
	if len(f.Estimators) == 0 {
		return nil, 0, ErrNotFitted
	}
	data, n, _, err := flatten(X, f.NFeaturesIn)
	if err != nil {
		return nil, 0, err
	}
	perTree := make([][]int, len(f.Estimators))
	f.runWorkers(len(f.Estimators), func(i int) {
		perTree[i] = f.Estimators[i].applyFlat(data, n, 1)
	})
	return perTree, n, nil
}

// runWorkers calls job(i) for i in [0, count) on up to Workers goroutines.
func (f *UnsupervisedRandomForest) runWorkers(count int, job func(i int)) {
	numWorkers := min(max(f.cfg.Workers, 1), count)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				job(i)
			}
		}()
	}
	for i := 0; i < count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// bootstrapWeights draws len(weights) samples with replacement and scales
// each weight by how often its sample was drawn.
func bootstrapWeights(weights []float64, rng *rand.Rand) []float64 {
	n := len(weights)
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		counts[rng.Intn(n)]++
	}
	out := make([]float64, n)
	for i, c := range counts {
		out[i] = weights[i] * float64(c)
	}
	return out
}

// averageAffinity counts per-tree co-membership and divides by the number of
// trees, so pairs that always share a leaf get exactly 1.
func averageAffinity(perTree [][]int, n int) *mat.SymDense {
	aff := mat.NewSymDense(n, nil)
	for _, leaves := range perTree {
		addAffinity(aff, leaves, 1)
	}
	trees := float64(len(perTree))
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			aff.SetSym(i, j, aff.At(i, j)/trees)
		}
	}
	return aff
}
