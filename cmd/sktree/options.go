package main

import (
	"github.com/TrevorS/sktree"
	"github.com/TrevorS/sktree/cluster"
)

// Options holds everything the CLI reads from flags, the config file and
// SKTREE_* environment variables.
type Options struct {
	Input       string        `yaml:"input" mapstructure:"input"`
	Header      bool          `yaml:"header" mapstructure:"header"`
	Output      string        `yaml:"output" mapstructure:"output"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MetricsFile string        `yaml:"metricsFile" mapstructure:"metricsFile"`
	DumpConfig  bool          `yaml:"dumpConfig" mapstructure:"dumpConfig"`
	Tree        TreeOptions   `yaml:"tree" mapstructure:"tree"`
	Forest      ForestOptions `yaml:"forest" mapstructure:"forest"`
}

type TreeOptions struct {
	Criterion             string  `yaml:"criterion" mapstructure:"criterion"`
	Splitter              string  `yaml:"splitter" mapstructure:"splitter"`
	Oblique               bool    `yaml:"oblique" mapstructure:"oblique"`
	MaxDepth              int     `yaml:"maxDepth" mapstructure:"maxDepth"`
	MinSamplesSplit       int     `yaml:"minSamplesSplit" mapstructure:"minSamplesSplit"`
	MinSamplesLeaf        int     `yaml:"minSamplesLeaf" mapstructure:"minSamplesLeaf"`
	MinWeightFractionLeaf float64 `yaml:"minWeightFractionLeaf" mapstructure:"minWeightFractionLeaf"`
	MaxFeatures           int     `yaml:"maxFeatures" mapstructure:"maxFeatures"`
	MaxFeaturesRule       string  `yaml:"maxFeaturesRule" mapstructure:"maxFeaturesRule"`
	MaxLeafNodes          int     `yaml:"maxLeafNodes" mapstructure:"maxLeafNodes"`
	MinImpurityDecrease   float64 `yaml:"minImpurityDecrease" mapstructure:"minImpurityDecrease"`
	FeatureCombinations   float64 `yaml:"featureCombinations" mapstructure:"featureCombinations"`
	RandomState           int64   `yaml:"randomState" mapstructure:"randomState"`
	Clusters              int     `yaml:"clusters" mapstructure:"clusters"`
	Linkage               string  `yaml:"linkage" mapstructure:"linkage"`
	Workers               int     `yaml:"workers" mapstructure:"workers"`
}

type ForestOptions struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	NEstimators int  `yaml:"nEstimators" mapstructure:"nEstimators"`
	Bootstrap   bool `yaml:"bootstrap" mapstructure:"bootstrap"`
}

// toConfig maps the tree options onto a library Config. Validation is left
// to the estimator constructors.
func (o *TreeOptions) toConfig() sktree.Config {
	return sktree.Config{
		Criterion:             sktree.CriterionName(o.Criterion),
		Splitter:              sktree.SplitterName(o.Splitter),
		MaxDepth:              o.MaxDepth,
		MinSamplesSplit:       o.MinSamplesSplit,
		MinSamplesLeaf:        o.MinSamplesLeaf,
		MinWeightFractionLeaf: o.MinWeightFractionLeaf,
		MaxFeatures:           o.MaxFeatures,
		MaxFeaturesRule:       maxFeaturesRule(o.MaxFeaturesRule),
		MaxLeafNodes:          o.MaxLeafNodes,
		MinImpurityDecrease:   o.MinImpurityDecrease,
		FeatureCombinations:   o.FeatureCombinations,
		RandomState:           o.RandomState,
		Workers:               o.Workers,
		Clustering: &cluster.Agglomerative{
			NClusters: o.Clusters,
			Linkage:   cluster.Linkage(o.Linkage),
		},
	}
}

// toForestConfig is toConfig plus the ensemble settings. An unset
// maxFeaturesRule means sqrt for forests, as in sktree.DefaultForestConfig.
func (o *Options) toForestConfig() sktree.ForestConfig {
	cfg := sktree.ForestConfig{
		Config:      o.Tree.toConfig(),
		NEstimators: o.Forest.NEstimators,
		Bootstrap:   o.Forest.Bootstrap,
	}
	if o.Tree.MaxFeaturesRule == "" {
		cfg.MaxFeaturesRule = sktree.MaxFeaturesSqrt
	}
	return cfg
}

// maxFeaturesRule maps the CLI spelling onto the library rule; "all" is the
// explicit form of the library's empty rule.
func maxFeaturesRule(name string) sktree.MaxFeaturesRule {
	if name == "all" {
		return sktree.MaxFeaturesAll
	}
	return sktree.MaxFeaturesRule(name)
}
