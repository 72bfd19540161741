package sktree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TrevorS/sktree/datasets"
)

func uniformData(n, dims int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, dims)
		for j := range data[i] {
			data[i][j] = rng.Float64() * 100
		}
	}
	return data
}

// twoBlobs returns 100 points around (0,0) and (60,20). Every feature, and
// every sparse ±1 projection of up to three draws, separates the blobs with
// a wide gap.
func twoBlobs(t testing.TB) ([][]float64, []int) {
	t.Helper()
	X, y, err := datasets.MakeBlobs(datasets.BlobsConfig{
		NSamples:    100,
		Centers:     [][]float64{{0, 0}, {60, 20}},
		Shuffle:     true,
		RandomState: 12345,
	})
	require.NoError(t, err)
	return X, y
}

// checkStructure verifies the arena invariants of a built tree.
func checkStructure(t *testing.T, tree *Tree) {
	t.Helper()
	require.NotEmpty(t, tree.Nodes)
	require.Equal(t, -1, tree.Nodes[0].Parent)
	require.Equal(t, 0, tree.Nodes[0].Depth)

	for id, n := range tree.Nodes {
		require.Equal(t, id, n.ID)
		if n.IsLeaf {
			require.Equal(t, TreeLeaf, n.Left)
			require.Equal(t, TreeLeaf, n.Right)
			continue
		}
		require.NotEqual(t, TreeLeaf, n.Left, "node %d", id)
		require.NotEqual(t, TreeLeaf, n.Right, "node %d", id)
		left, right := tree.Nodes[n.Left], tree.Nodes[n.Right]
		require.Equal(t, id, left.Parent)
		require.Equal(t, id, right.Parent)
		require.Equal(t, n.Depth+1, left.Depth)
		require.Equal(t, n.Depth+1, right.Depth)
		require.Equal(t, n.NSamples, left.NSamples+right.NSamples)
		require.InDelta(t, n.WeightedNSamples, left.WeightedNSamples+right.WeightedNSamples, 1e-9)
	}
}
