package agreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdenticalSeries(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}

	s, err := Compare(vals, vals)
	require.NoError(t, err)

	assert.Equal(t, 5, s.N)
	assert.Zero(t, s.MAE)
	assert.Zero(t, s.RMSE)
	assert.Zero(t, s.MeanDiff)
	assert.Zero(t, s.LoALower)
	assert.Zero(t, s.LoAUpper)
	assert.InDelta(t, 1.0, s.Correlation, 1e-12)
}

func TestCompareConstantOffset(t *testing.T) {
	test := []float64{110, 120, 130, 140}
	ref := []float64{100, 110, 120, 130}

	s, err := Compare(test, ref)
	require.NoError(t, err)

	assert.InDelta(t, 10, s.MAE, 1e-12)
	assert.InDelta(t, 10, s.RMSE, 1e-12)
	assert.InDelta(t, 10, s.MeanDiff, 1e-12)
	// A constant offset has zero spread, so the limits collapse onto it.
	assert.InDelta(t, 10, s.LoALower, 1e-12)
	assert.InDelta(t, 10, s.LoAUpper, 1e-12)
	assert.InDelta(t, 1.0, s.Correlation, 1e-12)
}

func TestCompareMixedErrors(t *testing.T) {
	test := []float64{102, 98, 103, 97}
	ref := []float64{100, 100, 100, 100}

	s, err := Compare(test, ref)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.MAE, 1e-12)
	assert.InDelta(t, 0, s.MeanDiff, 1e-12)
	assert.True(t, s.LoALower < 0 && s.LoAUpper > 0)
}

func TestCompareInputErrors(t *testing.T) {
	_, err := Compare([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = Compare([]float64{1}, []float64{1})
	assert.Error(t, err)
}
