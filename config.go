package sktree

import (
	"math"
	"runtime"

	"github.com/pkg/errors"

	"github.com/TrevorS/sktree/cluster"
)

// CriterionName selects a built-in split criterion.
type CriterionName string

const (
	CriterionTwoMeans CriterionName = "twomeans"
	CriterionFastBIC  CriterionName = "fastbic"
)

// SplitterName selects the threshold search strategy.
type SplitterName string

const (
	// SplitterBest scans every midpoint of the sorted values.
	SplitterBest SplitterName = "best"
	// SplitterRandom draws one uniform threshold per candidate feature.
	SplitterRandom SplitterName = "random"
)

// MaxFeaturesRule derives the number of candidate features (or projections)
// per node from the feature count.
type MaxFeaturesRule string

const (
	MaxFeaturesAll  MaxFeaturesRule = ""
	MaxFeaturesSqrt MaxFeaturesRule = "sqrt"
	MaxFeaturesLog2 MaxFeaturesRule = "log2"
)

// Config controls how unsupervised trees are grown and how their leaves are
// turned into cluster labels. Start with [DefaultConfig] and override the
// fields you need.
type Config struct {
	// Criterion is the built-in impurity used to score splits.
	// Default: "twomeans".
	Criterion CriterionName

	// NewCriterion overrides Criterion with a user-supplied implementation.
	// It is called once per build so concurrent builds never share state.
	NewCriterion func() Criterion

	// Splitter is the threshold search strategy. Default: "best".
	Splitter SplitterName

	// NewSplitter overrides Splitter with a user-supplied implementation.
	NewSplitter func(SplitterParams) Splitter

	// MaxDepth bounds the depth of the tree. 0 means unlimited.
	MaxDepth int

	// MinSamplesSplit is the smallest node that may be split. Must be >= 2.
	// Default: 2.
	MinSamplesSplit int

	// MinSamplesLeaf is the smallest number of samples in each child of a
	// split. Must be >= 1. Default: 1.
	MinSamplesLeaf int

	// MinWeightFractionLeaf is the smallest fraction of the total sample
	// weight in each child of a split, in [0, 0.5]. Default: 0.
	MinWeightFractionLeaf float64

	// MaxFeatures is the number of features (projections for oblique trees)
	// considered per node. 0 defers to MaxFeaturesRule.
	MaxFeatures int

	// MaxFeaturesRule derives MaxFeatures from the feature count when
	// MaxFeatures is 0. Default: all features.
	MaxFeaturesRule MaxFeaturesRule

	// MaxLeafNodes switches to best-first growth with at most this many
	// leaves. 0 means unlimited (depth-first growth). Must not be 1.
	MaxLeafNodes int

	// RandomState seeds feature sampling and thresholds. Equal seeds on equal
	// data give identical trees.
	RandomState int64

	// MinImpurityDecrease is the smallest weighted improvement a split must
	// reach. Default: 0.
	MinImpurityDecrease float64

	// FeatureCombinations is the average number of features combined in each
	// oblique projection. Ignored by axis-aligned trees. Default: 1.5.
	FeatureCombinations float64

	// Clustering assigns labels from the affinity matrix. Default: Ward
	// agglomerative clustering into 2 clusters.
	Clustering Clusterer

	// Metrics receives build counters. nil disables instrumentation.
	Metrics *Metrics

	// Workers bounds the goroutines used by Apply/Transform on large inputs
	// and by forests. 0 means runtime.NumCPU().
	Workers int
}

// DefaultConfig returns a Config with the defaults of a fully grown
// two-means tree.
func DefaultConfig() Config {
	return Config{
		Criterion:           CriterionTwoMeans,
		Splitter:            SplitterBest,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		FeatureCombinations: 1.5,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Criterion == "" {
		cfg.Criterion = CriterionTwoMeans
	}
	if cfg.Splitter == "" {
		cfg.Splitter = SplitterBest
	}
	if cfg.MinSamplesSplit == 0 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MinSamplesLeaf == 0 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.FeatureCombinations == 0 {
		cfg.FeatureCombinations = 1.5
	}
	if cfg.Clustering == nil {
		cfg.Clustering = cluster.NewAgglomerative(2)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks that cfg fields are valid.
func validateConfig(cfg *Config) error {
	switch cfg.Criterion {
	case CriterionTwoMeans, CriterionFastBIC:
	default:
		if cfg.NewCriterion == nil {
			return errors.Wrapf(ErrInvalidConfig, "unknown criterion %q", cfg.Criterion)
		}
	}
	switch cfg.Splitter {
	case SplitterBest, SplitterRandom:
	default:
		if cfg.NewSplitter == nil {
			return errors.Wrapf(ErrInvalidConfig, "unknown splitter %q", cfg.Splitter)
		}
	}
	if cfg.MaxDepth < 0 {
		return errors.Wrapf(ErrInvalidConfig, "MaxDepth must be >= 0 (0 means unlimited), got %d", cfg.MaxDepth)
	}
	if cfg.MinSamplesSplit < 2 {
		return errors.Wrapf(ErrInvalidConfig, "MinSamplesSplit must be >= 2, got %d", cfg.MinSamplesSplit)
	}
	if cfg.MinSamplesLeaf < 1 {
		return errors.Wrapf(ErrInvalidConfig, "MinSamplesLeaf must be >= 1, got %d", cfg.MinSamplesLeaf)
	}
	if cfg.MinWeightFractionLeaf < 0 || cfg.MinWeightFractionLeaf > 0.5 || math.IsNaN(cfg.MinWeightFractionLeaf) {
		return errors.Wrapf(ErrInvalidConfig, "MinWeightFractionLeaf must be in [0, 0.5], got %v", cfg.MinWeightFractionLeaf)
	}
	if cfg.MaxFeatures < 0 {
		return errors.Wrapf(ErrInvalidConfig, "MaxFeatures must be >= 0, got %d", cfg.MaxFeatures)
	}
	switch cfg.MaxFeaturesRule {
	case MaxFeaturesAll, MaxFeaturesSqrt, MaxFeaturesLog2:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown MaxFeaturesRule %q", cfg.MaxFeaturesRule)
	}
	if cfg.MaxLeafNodes < 0 || cfg.MaxLeafNodes == 1 {
		return errors.Wrapf(ErrInvalidConfig, "MaxLeafNodes must be 0 (unlimited) or >= 2, got %d", cfg.MaxLeafNodes)
	}
	if cfg.MinImpurityDecrease < 0 || math.IsNaN(cfg.MinImpurityDecrease) {
		return errors.Wrapf(ErrInvalidConfig, "MinImpurityDecrease must be >= 0, got %v", cfg.MinImpurityDecrease)
	}
	if cfg.FeatureCombinations <= 0 || math.IsNaN(cfg.FeatureCombinations) {
		return errors.Wrapf(ErrInvalidConfig, "FeatureCombinations must be > 0, got %v", cfg.FeatureCombinations)
	}
	if cfg.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// validateOblique rejects splitter names that only exist for axis-aligned
// trees. Oblique trees always search the best threshold per projection.
func validateOblique(cfg *Config) error {
	if cfg.NewSplitter == nil && cfg.Splitter != SplitterBest {
		return errors.Wrapf(ErrInvalidConfig, "splitter %q is not available for oblique trees", cfg.Splitter)
	}
	return nil
}

// resolveMaxFeatures returns the number of candidates per node for a data
// set with nFeatures columns. Oblique trees count projections, which may
// outnumber the features.
func resolveMaxFeatures(cfg *Config, nFeatures int, oblique bool) (int, error) {
	if cfg.MaxFeatures > 0 {
		if !oblique && cfg.MaxFeatures > nFeatures {
			return 0, errors.Wrapf(ErrInvalidConfig, "MaxFeatures=%d exceeds the number of features %d", cfg.MaxFeatures, nFeatures)
		}
		return cfg.MaxFeatures, nil
	}
	var k int
	switch cfg.MaxFeaturesRule {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	return max(k, 1), nil
}

// maxLeafNodes returns the builder sentinel: -1 for unlimited.
func (cfg *Config) maxLeafNodes() int {
	if cfg.MaxLeafNodes == 0 {
		return -1
	}
	return cfg.MaxLeafNodes
}
