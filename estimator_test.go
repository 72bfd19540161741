package sktree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/TrevorS/sktree/cluster"
)

func checkAffinity(t *testing.T, aff *mat.SymDense, n int) {
	t.Helper()
	require.NotNil(t, aff)
	require.Equal(t, n, aff.SymmetricDim())
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, aff.At(i, i), "diagonal %d", i)
		for j := 0; j < n; j++ {
			v := aff.At(i, j)
			assert.Equal(t, v, aff.At(j, i))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestUnsupervisedDecisionTree_AffinityDiagonal(t *testing.T) {
	X := uniformData(100, 5, 12345)

	for _, cfg := range []Config{{}, {Criterion: CriterionFastBIC}, {MaxDepth: 3}} {
		est := fitConfig(t, cfg, X)
		checkAffinity(t, est.Affinity, 100)
		assert.Len(t, est.Labels, 100)
		assert.Equal(t, 5, est.NFeaturesIn)
	}
}

func TestUnsupervisedDecisionTree_AffinityMatchesLeaves(t *testing.T) {
	X := uniformData(60, 3, 2)
	est := fitConfig(t, Config{MaxLeafNodes: 5}, X)

	leaves, err := est.Apply(X)
	require.NoError(t, err)
	for i := range leaves {
		for j := range leaves {
			want := 0.0
			if leaves[i] == leaves[j] {
				want = 1
			}
			assert.Equal(t, want, est.Affinity.At(i, j))
		}
	}

	transformed, err := est.Transform(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(est.Affinity, transformed))

	predicted, err := est.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, est.Labels, predicted)
}

func TestUnsupervisedDecisionTree_TwoBlobs(t *testing.T) {
	X, y := twoBlobs(t)

	for _, criterion := range []CriterionName{CriterionTwoMeans, CriterionFastBIC} {
		t.Run(string(criterion), func(t *testing.T) {
			est := fitConfig(t, Config{Criterion: criterion, MaxLeafNodes: 2}, X)
			assert.Equal(t, 2, est.Tree.LeafCount())

			ari, err := cluster.AdjustedRandScore(y, est.Labels)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, ari, 1e-12)
		})
	}
}

func TestUnsupervisedObliqueDecisionTree_TwoBlobs(t *testing.T) {
	X, y := twoBlobs(t)

	est, err := NewUnsupervisedObliqueDecisionTree(Config{MaxLeafNodes: 2, RandomState: 7})
	require.NoError(t, err)
	require.NoError(t, est.Fit(X, nil))

	root := est.Tree.Nodes[0]
	assert.Equal(t, TreeUndefined, root.Feature)
	assert.False(t, root.Projection.Empty())

	ari, err := cluster.AdjustedRandScore(y, est.Labels)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ari, 1e-12)
	assert.Equal(t, 1.5, est.Config().FeatureCombinations)
}

func TestUnsupervisedDecisionTree_SingleSample(t *testing.T) {
	est := fitConfig(t, Config{}, [][]float64{{1, 2, 3}})
	assert.Nil(t, est.Labels)
	assert.Equal(t, 1, est.Tree.NodeCount())
	require.NotNil(t, est.Affinity)
	assert.Equal(t, 1.0, est.Affinity.At(0, 0))
}

func TestUnsupervisedDecisionTree_CustomClusterer(t *testing.T) {
	X := uniformData(30, 2, 1)
	calls := 0
	cfg := Config{
		MaxLeafNodes: 4,
		Clustering: ClustererFunc(func(m mat.Matrix) ([]int, error) {
			calls++
			n, _ := m.Dims()
			return make([]int, n), nil
		}),
	}
	est := fitConfig(t, cfg, X)
	assert.Equal(t, 1, calls)
	assert.Equal(t, make([]int, 30), est.Labels)

	// Clusterer parameters travel on the clusterer value itself.
	cfg.Clustering = &cluster.Agglomerative{NClusters: 4, Linkage: cluster.LinkageAverage}
	est = fitConfig(t, cfg, X)
	distinct := map[int]bool{}
	for _, l := range est.Labels {
		distinct[l] = true
	}
	assert.Len(t, distinct, 4)
}

func TestUnsupervisedDecisionTree_ClustererMismatch(t *testing.T) {
	est, err := NewUnsupervisedDecisionTree(Config{
		Clustering: ClustererFunc(func(mat.Matrix) ([]int, error) { return []int{0}, nil }),
	})
	require.NoError(t, err)
	assert.Error(t, est.Fit(uniformData(5, 2, 1), nil))
	assert.Nil(t, est.Tree)
}

func TestUnsupervisedDecisionTree_NotFitted(t *testing.T) {
	est, err := NewUnsupervisedDecisionTree(DefaultConfig())
	require.NoError(t, err)

	X := [][]float64{{1, 2}}
	_, err = est.Predict(X)
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = est.Transform(X)
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = est.Apply(X)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestUnsupervisedDecisionTree_FeatureMismatch(t *testing.T) {
	est := fitConfig(t, Config{MaxDepth: 2}, uniformData(20, 3, 1))
	_, err := est.Transform([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = est.Predict([][]float64{{1, 2, 3, 4}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnsupervisedDecisionTree_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		w    []float64
	}{
		{"empty", nil, nil},
		{"no features", [][]float64{{}, {}}, nil},
		{"ragged", [][]float64{{1, 2}, {3}}, nil},
		{"nan", [][]float64{{1, math.NaN()}}, nil},
		{"inf", [][]float64{{math.Inf(1), 0}}, nil},
		{"weight length", [][]float64{{1}, {2}}, []float64{1}},
		{"negative weight", [][]float64{{1}, {2}}, []float64{1, -1}},
		{"nan weight", [][]float64{{1}, {2}}, []float64{1, math.NaN()}},
		{"zero weights", [][]float64{{1}, {2}}, []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := NewUnsupervisedDecisionTree(DefaultConfig())
			require.NoError(t, err)
			err = est.Fit(tt.X, tt.w)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, est.Tree)
		})
	}
}

func TestNewUnsupervisedDecisionTree_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"criterion", Config{Criterion: "gini"}},
		{"splitter", Config{Splitter: "worst"}},
		{"max depth", Config{MaxDepth: -1}},
		{"min samples split", Config{MinSamplesSplit: 1}},
		{"min samples leaf", Config{MinSamplesLeaf: -1}},
		{"min weight fraction", Config{MinWeightFractionLeaf: 0.6}},
		{"negative weight fraction", Config{MinWeightFractionLeaf: -0.1}},
		{"max features", Config{MaxFeatures: -1}},
		{"max features rule", Config{MaxFeaturesRule: "cube"}},
		{"max leaf nodes one", Config{MaxLeafNodes: 1}},
		{"max leaf nodes negative", Config{MaxLeafNodes: -3}},
		{"min impurity decrease", Config{MinImpurityDecrease: -0.1}},
		{"feature combinations", Config{FeatureCombinations: -1}},
		{"workers", Config{Workers: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUnsupervisedDecisionTree(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			_, err = NewUnsupervisedObliqueDecisionTree(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewUnsupervisedObliqueDecisionTree_RandomSplitter(t *testing.T) {
	cfg := Config{Splitter: SplitterRandom}

	_, err := NewUnsupervisedObliqueDecisionTree(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewUnsupervisedObliqueRandomForest(ForestConfig{Config: cfg})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Axis-aligned trees accept it.
	_, err = NewUnsupervisedDecisionTree(cfg)
	assert.NoError(t, err)

	// A custom splitter factory takes precedence over the name.
	cfg.NewSplitter = func(p SplitterParams) Splitter { return NewObliqueSplitter(p) }
	_, err = NewUnsupervisedObliqueDecisionTree(cfg)
	assert.NoError(t, err)
}

func TestUnsupervisedDecisionTree_MaxFeaturesTooLarge(t *testing.T) {
	est, err := NewUnsupervisedDecisionTree(Config{MaxFeatures: 4})
	require.NoError(t, err)
	assert.ErrorIs(t, est.Fit(uniformData(10, 3, 1), nil), ErrInvalidConfig)

	// Oblique trees may draw more projections than there are features.
	oblique, err := NewUnsupervisedObliqueDecisionTree(Config{MaxFeatures: 4})
	require.NoError(t, err)
	assert.NoError(t, oblique.Fit(uniformData(10, 3, 1), nil))
}

func TestResolveMaxFeatures(t *testing.T) {
	tests := []struct {
		cfg  Config
		want int
	}{
		{Config{}, 16},
		{Config{MaxFeatures: 5}, 5},
		{Config{MaxFeaturesRule: MaxFeaturesSqrt}, 4},
		{Config{MaxFeaturesRule: MaxFeaturesLog2}, 4},
	}
	for _, tt := range tests {
		got, err := resolveMaxFeatures(&tt.cfg, 16, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	got, err := resolveMaxFeatures(&Config{MaxFeaturesRule: MaxFeaturesLog2}, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, validateConfig(&cfg))

	applyDefaults(&cfg)
	assert.NotNil(t, cfg.Clustering)
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, -1, cfg.maxLeafNodes())
}

func TestComputeAffinityMatrix(t *testing.T) {
	aff := ComputeAffinityMatrix([]int{3, 5, 3, 7})
	want := mat.NewSymDense(4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 0,
		1, 0, 1, 0,
		0, 0, 0, 1,
	})
	assert.True(t, mat.Equal(want, aff))
	assert.Nil(t, ComputeAffinityMatrix(nil))
}
