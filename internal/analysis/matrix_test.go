package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/polimap/vote-latent/internal/errors"
	"github.com/polimap/vote-latent/internal/types"
)

func testBillInfo() map[int]types.BillInfo {
	return map[int]types.BillInfo{
		10: {ID: 10, Passed: true, DeliberationCompleted: true, Title: "Bill Ten"},
		20: {ID: 20, Passed: false, DeliberationCompleted: true, Title: "Bill Twenty"},
		30: {ID: 30, Passed: false, DeliberationCompleted: false, Title: "Bill Thirty"},
	}
}

func TestBuildVotingMatrix(t *testing.T) {
	scores := []types.LegislationScore{
		{BillID: 20, MemberScores: []types.MemberScore{
			{MemberID: 2, MemberName: "B", Score: 4},
		}},
		{BillID: 10, MemberScores: []types.MemberScore{
			{MemberID: 2, MemberName: "B", Score: -2},
			{MemberID: 1, MemberName: "A", Score: 6},
		}},
		// Bill outside the cluster must be ignored entirely.
		{BillID: 99, MemberScores: []types.MemberScore{
			{MemberID: 7, MemberName: "G", Score: 1},
		}},
	}

	data, err := BuildVotingMatrix(scores, []int{20, 10}, testBillInfo(), DefaultMinScore, DefaultMaxScore)
	require.NoError(t, err)

	// Rows and columns sorted by id, regardless of input order.
	assert.Equal(t, []int{1, 2}, data.MemberIDs)
	assert.Equal(t, []int{10, 20}, data.BillIDs)
	assert.Equal(t, 2, data.Matrix.Rows)
	assert.Equal(t, 2, data.Matrix.Cols)

	v, ok := data.Matrix.At(0, 0) // member 1, bill 10, raw 6
	require.True(t, ok)
	assert.InDelta(t, 2.0*16.0/22.0-1.0, v, 1e-12)

	_, ok = data.Matrix.At(0, 1) // member 1 never voted on bill 20
	assert.False(t, ok)

	v, ok = data.Matrix.At(1, 1) // member 2, bill 20, raw 4
	require.True(t, ok)
	assert.InDelta(t, 2.0*14.0/22.0-1.0, v, 1e-12)

	assert.Equal(t, []float64{1.0, 0.6}, data.Weights)
	assert.Equal(t, "Bill Ten", data.BillDetails[0].Title)
	assert.Equal(t, 20, data.BillDetails[1].ID)
	assert.Equal(t, "A", data.MemberNames[1])
}

func TestBuildVotingMatrix_DuplicateVoteLastWins(t *testing.T) {
	scores := []types.LegislationScore{
		{BillID: 10, MemberScores: []types.MemberScore{
			{MemberID: 1, MemberName: "A", Score: -10},
			{MemberID: 1, MemberName: "A", Score: 12},
		}},
	}

	data, err := BuildVotingMatrix(scores, []int{10}, testBillInfo(), DefaultMinScore, DefaultMaxScore)
	require.NoError(t, err)

	v, ok := data.Matrix.At(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-12, "later record overwrites the earlier one")
}

func TestBuildVotingMatrix_EmptyOutcomes(t *testing.T) {
	scores := []types.LegislationScore{
		{BillID: 10, MemberScores: []types.MemberScore{
			{MemberID: 1, MemberName: "A", Score: 6},
		}},
	}

	tests := []struct {
		name           string
		scores         []types.LegislationScore
		clusterBillIDs []int
	}{
		{
			name:           "no cluster bills",
			scores:         scores,
			clusterBillIDs: []int{},
		},
		{
			name:           "no votes on cluster bills",
			scores:         scores,
			clusterBillIDs: []int{20, 30},
		},
		{
			name:           "no vote records at all",
			scores:         nil,
			clusterBillIDs: []int{10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := BuildVotingMatrix(tt.scores, tt.clusterBillIDs, testBillInfo(), DefaultMinScore, DefaultMaxScore)

			require.NoError(t, err, "an empty universe is a normal outcome, not an error")
			assert.True(t, data.Matrix.IsEmpty())
			assert.Empty(t, data.MemberIDs)
			assert.Empty(t, data.BillIDs)
			assert.Empty(t, data.Weights)
			assert.Empty(t, data.BillDetails)
		})
	}
}

func TestBuildVotingMatrix_MalformedRecords(t *testing.T) {
	tests := []struct {
		name   string
		scores []types.LegislationScore
	}{
		{
			name: "missing member id",
			scores: []types.LegislationScore{
				{BillID: 10, MemberScores: []types.MemberScore{
					{MemberID: 0, MemberName: "A", Score: 6},
				}},
			},
		},
		{
			name: "NaN score",
			scores: []types.LegislationScore{
				{BillID: 10, MemberScores: []types.MemberScore{
					{MemberID: 1, MemberName: "A", Score: math.NaN()},
				}},
			},
		},
		{
			name: "infinite score",
			scores: []types.LegislationScore{
				{BillID: 10, MemberScores: []types.MemberScore{
					{MemberID: 1, MemberName: "A", Score: math.Inf(1)},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildVotingMatrix(tt.scores, []int{10}, testBillInfo(), DefaultMinScore, DefaultMaxScore)

			require.Error(t, err, "malformed records must not be silently skipped")
			appErr := apperrors.ToAppError(err)
			assert.Equal(t, apperrors.CategoryValidation, appErr.Category)
		})
	}
}

func TestBuildVotingMatrix_UnknownBillDefaults(t *testing.T) {
	scores := []types.LegislationScore{
		{BillID: 55, MemberScores: []types.MemberScore{
			{MemberID: 1, MemberName: "A", Score: 6},
		}},
	}

	// Bill 55 has no metadata: treated as in progress with empty title.
	data, err := BuildVotingMatrix(scores, []int{55}, testBillInfo(), DefaultMinScore, DefaultMaxScore)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.8}, data.Weights)
	assert.Equal(t, 55, data.BillDetails[0].ID)
	assert.Equal(t, "", data.BillDetails[0].Title)
}
