package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/polimap/vote-latent/internal/types"
)

func repDetails(n int) []types.BillInfo {
	details := make([]types.BillInfo, n)
	for i := range details {
		details[i] = types.BillInfo{ID: 100 + i, Title: "bill", Passed: i%2 == 0}
	}
	return details
}

func TestRepresentativeBills_RanksByAbsoluteLoading(t *testing.T) {
	// One dimension, four bills.
	loadings := mat.NewDense(4, 1, []float64{0.2, -0.9, 0.5, -0.1})

	reps := RepresentativeBills(loadings, repDetails(4), 3)

	require.Len(t, reps, 1)
	require.Len(t, reps[0], 3)

	assert.Equal(t, 101, reps[0][0].BillID)
	assert.InDelta(t, -0.9, reps[0][0].Loading, 1e-12)
	assert.InDelta(t, 0.9, reps[0][0].AbsLoading, 1e-12)

	assert.Equal(t, 102, reps[0][1].BillID)
	assert.Equal(t, 100, reps[0][2].BillID)

	for i := 1; i < len(reps[0]); i++ {
		assert.LessOrEqual(t, reps[0][i].AbsLoading, reps[0][i-1].AbsLoading)
	}
}

func TestRepresentativeBills_TieBreakPrefersLaterBill(t *testing.T) {
	// Bills 100 and 101 tie on absolute loading; the later one in
	// bill-id order must come first.
	loadings := mat.NewDense(3, 1, []float64{0.5, -0.5, 0.3})

	reps := RepresentativeBills(loadings, repDetails(3), 2)

	require.Len(t, reps, 1)
	require.Len(t, reps[0], 2)
	assert.Equal(t, 101, reps[0][0].BillID)
	assert.Equal(t, 100, reps[0][1].BillID)
}

func TestRepresentativeBills_PerDimension(t *testing.T) {
	loadings := mat.NewDense(3, 2, []float64{
		0.9, 0.1,
		0.2, -0.8,
		-0.4, 0.3,
	})

	reps := RepresentativeBills(loadings, repDetails(3), 1)

	require.Len(t, reps, 2)
	require.Len(t, reps[0], 1)
	require.Len(t, reps[1], 1)
	assert.Equal(t, 100, reps[0][0].BillID)
	assert.Equal(t, 101, reps[1][0].BillID)
	assert.InDelta(t, -0.8, reps[1][0].Loading, 1e-12)
}

func TestRepresentativeBills_FewerBillsThanTopN(t *testing.T) {
	loadings := mat.NewDense(2, 1, []float64{0.3, 0.7})

	reps := RepresentativeBills(loadings, repDetails(2), 5)

	require.Len(t, reps, 1)
	assert.Len(t, reps[0], 2)
}

func TestRepresentativeBills_EmptyLoadings(t *testing.T) {
	reps := RepresentativeBills(nil, nil, 3)

	assert.NotNil(t, reps)
	assert.Empty(t, reps)
}
