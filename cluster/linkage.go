package cluster

import "sort"

// Label converts merge edges into a dendrogram in scipy format. Each edge is
// [a, b, distance] where a and b are any two points of the clusters being
// merged; edges are replayed in ascending distance order (stable for ties).
// Returns rows [left, right, distance, mergedSize]; merged cluster IDs start
// at n.
func Label(edges [][3]float64, n int) [][4]float64 {
	if len(edges) == 0 {
		return nil
	}

	sorted := make([][3]float64, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i][2] < sorted[j][2]
	})

	uf := NewUnionFind(n)
	result := make([][4]float64, 0, len(sorted))

	for _, edge := range sorted {
		aa := uf.Find(int(edge[0]))
		bb := uf.Find(int(edge[1]))
		if aa > bb {
			aa, bb = bb, aa
		}
		id := uf.Merge(aa, bb)
		result = append(result, [4]float64{float64(aa), float64(bb), edge[2], float64(uf.Size(id))})
	}

	return result
}

// CutTree applies the first n-k merges of a dendrogram and returns one flat
// label per point. Labels are numbered 0..k-1 in order of first appearance
// when scanning points 0..n-1.
func CutTree(dendrogram [][4]float64, n, k int) []int {
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	k = max(k, 1)

	merges := min(max(n-k, 0), len(dendrogram))
	uf := NewUnionFind(n)
	for _, row := range dendrogram[:merges] {
		uf.Merge(uf.Find(int(row[0])), uf.Find(int(row[1])))
	}

	ids := make(map[int]int)
	for i := range labels {
		root := uf.Find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}
