// Package cluster groups the rows of a matrix with agglomerative
// (hierarchical) clustering.
//
// It is the default label assigner for the sktree estimators, which feed it
// the leaf co-membership affinity matrix, but it works on any feature matrix:
//
//	agg := cluster.NewAgglomerative(3)
//	labels, err := agg.FitPredict(X) // X is a gonum mat.Matrix
//
// Ward, complete and average linkage are computed with the nearest-neighbor
// chain algorithm; single linkage uses Prim's minimum spanning tree. Both
// paths produce a dendrogram in the scipy linkage format
// ([left, right, distance, size] rows, merged cluster IDs starting at n),
// which [CutTree] turns into flat labels.
package cluster
