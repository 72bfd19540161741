package cluster

// UnionFind is a disjoint-set forest over 2*n - 1 elements: the n original
// points followed by the n - 1 clusters created while replaying a dendrogram.
type UnionFind struct {
	parent []int
	size   []int
	// nextLabel is the ID given to the next merged cluster, starting at n.
	nextLabel int
}

// NewUnionFind creates a UnionFind where each of the n points is its own root.
func NewUnionFind(n int) *UnionFind {
	total := 2*n - 1
	if total < 1 {
		total = 1
	}
	parent := make([]int, total)
	size := make([]int, total)
	for i := range parent {
		parent[i] = -1
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	return &UnionFind{
		parent:    parent,
		size:      size,
		nextLabel: n,
	}
}

// Find returns the root of the set containing x, compressing the path.
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Merge joins two roots under a fresh cluster ID and returns it. a and b must
// be roots (results of Find).
func (uf *UnionFind) Merge(a, b int) int {
	id := uf.nextLabel
	uf.size[id] = uf.size[a] + uf.size[b]
	uf.parent[a] = id
	uf.parent[b] = id
	uf.nextLabel++
	return id
}

// Size returns the number of points under root.
func (uf *UnionFind) Size(root int) int {
	return uf.size[root]
}
