package sktree

import (
	"sync"

	"github.com/pkg/errors"
)

const (
	// TreeLeaf is the child ID stored in leaves.
	TreeLeaf = -1
	// TreeUndefined marks an unused feature or threshold.
	TreeUndefined = -2
)

// Node is one record of the tree arena. Children are referenced by index.
type Node struct {
	ID     int  `json:"id"`
	Parent int  `json:"parent"`
	Left   int  `json:"left"`
	Right  int  `json:"right"`
	IsLeaf bool `json:"is_leaf"`
	// Feature is the split column, or TreeUndefined for leaves and oblique
	// nodes.
	Feature    int        `json:"feature"`
	Projection Projection `json:"projection"`
	Threshold  float64    `json:"threshold"`
	Impurity   float64    `json:"impurity"`
	NSamples   int        `json:"n_samples"`
	// WeightedNSamples is the total sample weight reaching the node.
	WeightedNSamples float64 `json:"weighted_n_samples"`
	Depth            int     `json:"depth"`
}

// goesLeft reports whether row is routed to the left child.
func (n *Node) goesLeft(row []float64) bool {
	if n.Feature == TreeUndefined {
		return n.Projection.Apply(row) <= n.Threshold
	}
	return row[n.Feature] <= n.Threshold
}

// Tree is an array-backed binary tree. Node IDs are indices into Nodes and
// never change once assigned; node 0 is the root. A built tree is read-only
// and safe for concurrent Apply calls.
type Tree struct {
	NFeatures int    `json:"n_features"`
	Nodes     []Node `json:"nodes"`
}

// NewTree returns an empty tree for inputs with nFeatures columns.
func NewTree(nFeatures int) *Tree {
	return &Tree{NFeatures: nFeatures}
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int { return len(t.Nodes) }

// resize grows the arena to capacity, or doubles it when capacity is 0.
func (t *Tree) resize(capacity int) {
	if capacity == 0 {
		capacity = max(2*cap(t.Nodes), 3)
	}
	if capacity <= cap(t.Nodes) {
		return
	}
	nodes := make([]Node, len(t.Nodes), capacity)
	copy(nodes, t.Nodes)
	t.Nodes = nodes
}

// AddNode appends a node and links it to its parent. parent is -1 for the
// root. split is ignored for leaves. It returns the new node's ID.
func (t *Tree) AddNode(parent int, isLeft, isLeaf bool, split *SplitRecord,
	impurity float64, nSamples int, weightedNSamples float64) int {
	if len(t.Nodes) == cap(t.Nodes) {
		t.resize(0)
	}

	id := len(t.Nodes)
	node := Node{
		ID:               id,
		Parent:           parent,
		Left:             TreeLeaf,
		Right:            TreeLeaf,
		IsLeaf:           isLeaf,
		Feature:          TreeUndefined,
		Threshold:        TreeUndefined,
		Impurity:         impurity,
		NSamples:         nSamples,
		WeightedNSamples: weightedNSamples,
	}
	if parent >= 0 {
		node.Depth = t.Nodes[parent].Depth + 1
		if isLeft {
			t.Nodes[parent].Left = id
		} else {
			t.Nodes[parent].Right = id
		}
	}
	if !isLeaf {
		node.Feature = split.Feature
		node.Projection = split.Projection
		node.Threshold = split.Threshold
	}

	t.Nodes = append(t.Nodes, node)
	return id
}

// applyRow returns the leaf reached by row.
func (t *Tree) applyRow(row []float64) int {
	id := 0
	for !t.Nodes[id].IsLeaf {
		node := &t.Nodes[id]
		if node.goesLeft(row) {
			id = node.Left
		} else {
			id = node.Right
		}
	}
	return id
}

// Apply returns, for each row of X, the ID of the leaf it reaches.
func (t *Tree) Apply(X [][]float64) ([]int, error) {
	return t.ApplyParallel(X, 1)
}

// ApplyParallel is Apply with rows split across numWorkers goroutines.
func (t *Tree) ApplyParallel(X [][]float64, numWorkers int) ([]int, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.Wrap(ErrNotFitted, "tree has no nodes")
	}
	data, n, _, err := flatten(X, t.NFeatures)
	if err != nil {
		return nil, err
	}
	return t.applyFlat(data, n, numWorkers), nil
}

// applyFlat routes n rows of flat row-major data. Workers write disjoint
// ranges of the result, so the output does not depend on numWorkers.
func (t *Tree) applyFlat(data []float64, n, numWorkers int) []int {
	d := t.NFeatures
	out := make([]int, n)
	if numWorkers <= 1 || n <= 1 {
		for i := range out {
			out[i] = t.applyRow(data[i*d : (i+1)*d])
		}
		return out
	}

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		if startRow >= n {
			break
		}
		endRow := min(startRow+rowsPerWorker, n)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = t.applyRow(data[i*d : (i+1)*d])
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return out
}

// Leaves returns the IDs of all leaves in ID order.
func (t *Tree) Leaves() []int {
	var leaves []int
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf {
			count++
		}
	}
	return count
}

// MaxDepth returns the depth of the deepest node (0 for a single leaf).
func (t *Tree) MaxDepth() int {
	depth := 0
	for i := range t.Nodes {
		depth = max(depth, t.Nodes[i].Depth)
	}
	return depth
}
