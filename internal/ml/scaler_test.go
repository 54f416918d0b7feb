package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerFitTransform(t *testing.T) {
	s := NewScaler()
	require.NoError(t, s.Fit([][]float64{
		{1, 10},
		{3, 10},
	}))

	out, err := s.Transform([]float64{1, 10})
	require.NoError(t, err)

	// First column: mean 2, std 1 -> (1-2)/1 = -1.
	assert.InDelta(t, -1.0, out[0], 1e-9)
	// Constant column centers to zero.
	assert.InDelta(t, 0.0, out[1], 1e-9)
}

func TestScalerZeroMeanUnitVariance(t *testing.T) {
	rows := [][]float64{{2}, {4}, {6}, {8}}
	s := NewScaler()
	require.NoError(t, s.Fit(rows))

	var sum, sumSq float64
	for _, row := range rows {
		out, err := s.Transform(row)
		require.NoError(t, err)
		sum += out[0]
		sumSq += out[0] * out[0]
	}
	n := float64(len(rows))
	assert.InDelta(t, 0.0, sum/n, 1e-9)
	assert.InDelta(t, 1.0, sumSq/n, 1e-9)
}

func TestScalerFitOnce(t *testing.T) {
	s := NewScaler()
	require.NoError(t, s.Fit([][]float64{{1}, {2}}))
	assert.ErrorIs(t, s.Fit([][]float64{{1, 2}}), ErrAlreadyFitted)
}

func TestScalerTransformBeforeFit(t *testing.T) {
	s := NewScaler()
	_, err := s.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestScalerRejectsEmptyAndRagged(t *testing.T) {
	s := NewScaler()
	assert.Error(t, s.Fit(nil))

	s = NewScaler()
	assert.Error(t, s.Fit([][]float64{{1, 2}, {3}}))
}

func TestScalerRejectsWrongWidth(t *testing.T) {
	s := NewScaler()
	require.NoError(t, s.Fit([][]float64{{1, 2}, {3, 4}}))

	_, err := s.Transform([]float64{1})
	assert.Error(t, err)
}
