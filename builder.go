package sktree

import (
	"container/heap"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sktree")

const (
	// impurityEpsilon: nodes at or below this impurity are pure.
	impurityEpsilon = 1e-7
	// machineEpsilon is the slack on MinImpurityDecrease comparisons.
	machineEpsilon = 2.220446049250313e-16
	// maxInitialCapacity bounds the arena preallocation for deep trees.
	maxInitialCapacity = 2047
)

// treeBuilder grows a tree over n rows of flat row-major data.
type treeBuilder interface {
	Build(tree *Tree, data []float64, n int, weights []float64) error
}

// builderParams holds the stopping rules shared by both builders.
type builderParams struct {
	splitter            Splitter
	minSamplesSplit     int
	minSamplesLeaf      int
	minWeightLeaf       float64
	maxDepth            int // 0 is unlimited
	minImpurityDecrease float64
	metrics             *Metrics
}

// workItem is a pending node: a range of the sample buffer and its place in
// the tree.
type workItem struct {
	start, end int
	depth      int
	parent     int
	isLeft     bool
	// constant marks features known to be constant in the range.
	constant []bool
}

// candidate is a work item whose split has been searched but whose node has
// not been added yet.
type candidate struct {
	workItem
	nSamples int
	weighted float64
	impurity float64
	leaf     bool
	split    SplitRecord
	// childConstant is passed to both children.
	childConstant []bool
	seq           int
}

// buildState is the sample buffer of one build. The builder owns it; the
// splitter reorders ranges of it in place.
type buildState struct {
	samples []int
	weights []float64
}

// prepare collects the samples with non-zero weight and binds the splitter.
func (b *builderParams) prepare(tree *Tree, data []float64, n int, weights []float64) *buildState {
	st := &buildState{samples: make([]int, 0, n), weights: weights}
	var total float64
	for i := 0; i < n; i++ {
		if weights[i] > 0 {
			st.samples = append(st.samples, i)
			total += weights[i]
		}
	}
	b.splitter.Init(data, tree.NFeatures, st.samples, weights, total)
	return st
}

// evaluate computes the node statistics of item and, unless a stopping rule
// applies, searches its split.
func (b *builderParams) evaluate(st *buildState, item workItem) (candidate, error) {
	c := candidate{workItem: item, nSamples: item.end - item.start}
	for _, idx := range st.samples[item.start:item.end] {
		c.weighted += st.weights[idx]
	}

	c.impurity = b.splitter.NodeImpurity(item.start, item.end)
	if math.IsNaN(c.impurity) || math.IsInf(c.impurity, 0) {
		return c, errors.Wrapf(ErrNumerical, "node impurity %v at depth %d (%d samples)", c.impurity, item.depth, c.nSamples)
	}

	c.leaf = (b.maxDepth > 0 && item.depth >= b.maxDepth) ||
		c.nSamples < b.minSamplesSplit ||
		c.nSamples < 2*b.minSamplesLeaf ||
		c.weighted < 2*b.minWeightLeaf ||
		c.impurity <= impurityEpsilon
	if c.leaf {
		return c, nil
	}

	c.split, c.childConstant = b.splitter.NodeSplit(item.start, item.end, item.constant)
	if math.IsNaN(c.split.Improvement) {
		return c, errors.Wrapf(ErrNumerical, "split improvement is NaN at depth %d", item.depth)
	}
	c.leaf = !c.split.Found() || c.split.Improvement+machineEpsilon < b.minImpurityDecrease
	return c, nil
}

// expand adds the node for c, as a leaf when leaf is set, and returns the
// work items of its children (left first).
func (b *builderParams) expand(tree *Tree, c *candidate, leaf bool) (int, []workItem) {
	id := tree.AddNode(c.parent, c.isLeft, leaf, &c.split, c.impurity, c.nSamples, c.weighted)
	b.metrics.nodeAdded(leaf)
	if leaf {
		return id, nil
	}

	pos := c.split.Pos
	return id, []workItem{
		{start: c.start, end: pos, depth: c.depth + 1, parent: id, isLeft: true, constant: c.childConstant},
		{start: pos, end: c.end, depth: c.depth + 1, parent: id, isLeft: false, constant: c.childConstant},
	}
}

func (b *builderParams) finish(tree *Tree, name string, started time.Time) {
	elapsed := time.Since(started)
	b.metrics.treeBuilt(name, elapsed)
	log.WithFields(logrus.Fields{
		"builder":  name,
		"nodes":    tree.NodeCount(),
		"leaves":   tree.LeafCount(),
		"depth":    tree.MaxDepth(),
		"duration": elapsed,
	}).Debug("tree built")
}

// depthFirstBuilder grows the tree with an explicit LIFO stack.
type depthFirstBuilder struct {
	builderParams
}

func (b *depthFirstBuilder) Build(tree *Tree, data []float64, n int, weights []float64) error {
	started := time.Now()
	capacity := maxInitialCapacity
	if b.maxDepth > 0 && b.maxDepth <= 10 {
		capacity = 1<<(b.maxDepth+1) - 1
	}
	tree.resize(capacity)

	st := b.prepare(tree, data, n, weights)
	stack := []workItem{{start: 0, end: len(st.samples), parent: -1}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c, err := b.evaluate(st, item)
		if err != nil {
			return err
		}
		_, children := b.expand(tree, &c, c.leaf)
		// Right first so the left child is expanded next.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	b.finish(tree, "depth_first", started)
	return nil
}

// bestFirstBuilder always expands the frontier node with the largest
// improvement, stopping after maxLeafNodes-1 splits.
type bestFirstBuilder struct {
	builderParams
	maxLeafNodes int
}

func (b *bestFirstBuilder) Build(tree *Tree, data []float64, n int, weights []float64) error {
	started := time.Now()
	tree.resize(2*b.maxLeafNodes - 1)

	st := b.prepare(tree, data, n, weights)
	splitsLeft := b.maxLeafNodes - 1

	var front frontier
	seq := 0
	push := func(item workItem) error {
		c, err := b.evaluate(st, item)
		if err != nil {
			return err
		}
		c.seq = seq
		seq++
		heap.Push(&front, &c)
		return nil
	}

	if err := push(workItem{start: 0, end: len(st.samples), parent: -1}); err != nil {
		return err
	}

	for front.Len() > 0 {
		c := heap.Pop(&front).(*candidate)
		leaf := c.leaf || splitsLeft <= 0
		_, children := b.expand(tree, c, leaf)
		if leaf {
			continue
		}
		splitsLeft--
		for _, child := range children {
			if err := push(child); err != nil {
				return err
			}
		}
	}

	b.finish(tree, "best_first", started)
	return nil
}

// frontier is a max-heap of candidates by improvement. Leaves sort last;
// ties go to the earlier candidate.
type frontier []*candidate

func (f frontier) priority(i int) float64 {
	if f[i].leaf {
		return math.Inf(-1)
	}
	return f[i].split.Improvement
}

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	pi, pj := f.priority(i), f.priority(j)
	if pi != pj {
		return pi > pj
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*candidate)) }

func (f *frontier) Pop() any {
	old := *f
	c := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return c
}
