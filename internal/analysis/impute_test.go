package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpute_FillsAbsentCellsWithColumnMean(t *testing.T) {
	m := NewVotingMatrix(3, 2)
	m.Set(0, 0, 1.0)
	m.Set(1, 0, 3.0)
	// (2,0) absent -> column mean 2.0
	m.Set(2, 1, -0.5)
	// (0,1) and (1,1) absent -> column mean -0.5

	dense := m.Impute()
	require.NotNil(t, dense)

	rows, cols := dense.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	assert.InDelta(t, 1.0, dense.At(0, 0), 1e-12)
	assert.InDelta(t, 3.0, dense.At(1, 0), 1e-12)
	assert.InDelta(t, 2.0, dense.At(2, 0), 1e-12)
	assert.InDelta(t, -0.5, dense.At(0, 1), 1e-12)
	assert.InDelta(t, -0.5, dense.At(1, 1), 1e-12)
	assert.InDelta(t, -0.5, dense.At(2, 1), 1e-12)
}

func TestImpute_AllMissingColumnFallsBackToZero(t *testing.T) {
	m := NewVotingMatrix(2, 2)
	m.Set(0, 0, 0.7)
	m.Set(1, 0, 0.3)
	// Column 1 has no observed values at all.

	dense := m.Impute()
	require.NotNil(t, dense)

	assert.InDelta(t, 0.0, dense.At(0, 1), 1e-12)
	assert.InDelta(t, 0.0, dense.At(1, 1), 1e-12)
}

func TestImpute_DoesNotMutateInput(t *testing.T) {
	m := NewVotingMatrix(2, 1)
	m.Set(0, 0, 4.0)

	_ = m.Impute()

	_, ok := m.At(1, 0)
	assert.False(t, ok, "absent cell must stay absent in the source matrix")
	v, ok := m.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestImpute_EmptyMatrix(t *testing.T) {
	assert.Nil(t, NewVotingMatrix(0, 0).Impute())
}
