package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableData builds a two-cluster dataset: class 0 around the origin,
// class 1 shifted well away from it.
func separableData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, 0, 2*n)
	y := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		X = append(X, []float64{rng.Float64(), rng.Float64(), rng.Float64()})
		y = append(y, 0)
		X = append(X, []float64{10 + rng.Float64(), 10 + rng.Float64(), rng.Float64()})
		y = append(y, 1)
	}
	return X, y
}

func TestForestSeparatesClasses(t *testing.T) {
	X, y := separableData(100, 3)
	f, err := TrainForest(X, y, DefaultForestConfig(42))
	require.NoError(t, err)

	p0, err := f.PredictProba([]float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	p1, err := f.PredictProba([]float64{10.5, 10.5, 0.5})
	require.NoError(t, err)

	assert.Greater(t, p0[0], 0.9, "origin cluster should score class 0")
	assert.Greater(t, p1[1], 0.9, "shifted cluster should score class 1")

	assert.InDelta(t, 1.0, p0[0]+p0[1], 1e-9)
	assert.InDelta(t, 1.0, p1[0]+p1[1], 1e-9)
}

func TestForestDeterministicForFixedSeed(t *testing.T) {
	X, y := separableData(50, 7)

	a, err := TrainForest(X, y, DefaultForestConfig(42))
	require.NoError(t, err)
	b, err := TrainForest(X, y, DefaultForestConfig(42))
	require.NoError(t, err)

	probe := []float64{5, 5, 0.5}
	pa, err := a.PredictProba(probe)
	require.NoError(t, err)
	pb, err := b.PredictProba(probe)
	require.NoError(t, err)

	assert.InDelta(t, pa[1], pb[1], 1e-9)
}

func TestForestDifferentSeedsDiffer(t *testing.T) {
	X, y := separableData(50, 7)

	a, err := TrainForest(X, y, DefaultForestConfig(1))
	require.NoError(t, err)
	b, err := TrainForest(X, y, DefaultForestConfig(2))
	require.NoError(t, err)

	// Different seeds draw different bootstraps; trees differ even if
	// aggregate predictions land close.
	assert.NotEqual(t, a.Trees[0], b.Trees[0])
}

func TestForestInputValidation(t *testing.T) {
	_, err := TrainForest(nil, nil, DefaultForestConfig(1))
	assert.Error(t, err)

	_, err = TrainForest([][]float64{{1}}, []int{0, 1}, DefaultForestConfig(1))
	assert.Error(t, err)

	_, err = TrainForest([][]float64{{1}, {2}}, []int{0, 2}, DefaultForestConfig(1))
	assert.Error(t, err)

	// Single-class data cannot be balanced.
	_, err = TrainForest([][]float64{{1}, {2}}, []int{1, 1}, DefaultForestConfig(1))
	assert.Error(t, err)

	cfg := DefaultForestConfig(1)
	cfg.NumTrees = 0
	_, err = TrainForest([][]float64{{1}, {2}}, []int{0, 1}, cfg)
	assert.Error(t, err)
}

func TestForestPredictBeforeTrain(t *testing.T) {
	var f Forest
	_, err := f.PredictProba([]float64{1})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestForestClassWeightsBalanceImbalance(t *testing.T) {
	// 10:1 imbalance. With balanced weights the minority cluster must still
	// be recognized on its own turf.
	rng := rand.New(rand.NewSource(11))
	var X [][]float64
	var y []int
	for i := 0; i < 200; i++ {
		X = append(X, []float64{rng.Float64()})
		y = append(y, 0)
	}
	for i := 0; i < 20; i++ {
		X = append(X, []float64{10 + rng.Float64()})
		y = append(y, 1)
	}

	f, err := TrainForest(X, y, DefaultForestConfig(42))
	require.NoError(t, err)

	p, err := f.PredictProba([]float64{10.5})
	require.NoError(t, err)
	assert.Greater(t, p[1], 0.9)
}
