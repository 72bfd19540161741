// Package sktree implements unsupervised decision trees and forests: trees
// grown without labels that cluster data by recursive partitioning.
//
// Each node is split to make its children as internally homogeneous as
// possible, scored by a two-means variance criterion or a fast Bayesian
// information criterion. Samples that end in the same leaf are similar; the
// leaf co-membership (affinity) matrix is then clustered into labels,
// by default with Ward agglomerative clustering.
//
// Basic usage:
//
//	cfg := sktree.DefaultConfig()
//	cfg.MaxLeafNodes = 8
//	est, err := sktree.NewUnsupervisedDecisionTree(cfg)
//	err = est.Fit(X, nil)
//	// est.Labels[i] is the cluster of sample i
//	// est.Affinity.At(i, j) is 1 when i and j share a leaf
//
// Forests average the affinity of many randomized trees and usually give
// far better clusters than a single tree:
//
//	forest, err := sktree.NewUnsupervisedRandomForest(sktree.DefaultForestConfig())
//	err = forest.Fit(X, nil)
//
// # Tree growth
//
// With MaxLeafNodes unset, trees grow depth-first until every node is pure or
// a stopping rule applies (MaxDepth, MinSamplesSplit, MinSamplesLeaf,
// MinWeightFractionLeaf, MinImpurityDecrease). With MaxLeafNodes set, the
// frontier node with the largest improvement is split first until the leaf
// budget is spent.
//
// The oblique variants split on sparse random projections with ±1 weights
// instead of single features, which helps when clusters are not aligned with
// the axes.
package sktree
