package analysis

import (
	"fmt"
	"sort"

	"github.com/polimap/vote-latent/internal/errors"
	"github.com/polimap/vote-latent/internal/types"
)

// VotingMatrix is a dense member x bill matrix of normalized scores
// paired with a presence mask. Normalized scores are unclamped, so no
// float sentinel is safe to mark absent cells; the mask keeps absence
// explicit.
type VotingMatrix struct {
	Rows, Cols int
	values     []float64
	present    []bool
}

// NewVotingMatrix creates an all-absent matrix of the given shape.
func NewVotingMatrix(rows, cols int) *VotingMatrix {
	return &VotingMatrix{
		Rows:    rows,
		Cols:    cols,
		values:  make([]float64, rows*cols),
		present: make([]bool, rows*cols),
	}
}

// Set records an observed value at (i, j).
func (m *VotingMatrix) Set(i, j int, v float64) {
	m.values[i*m.Cols+j] = v
	m.present[i*m.Cols+j] = true
}

// At returns the value at (i, j) and whether it is observed.
func (m *VotingMatrix) At(i, j int) (float64, bool) {
	return m.values[i*m.Cols+j], m.present[i*m.Cols+j]
}

// IsEmpty reports whether the matrix has no rows or no columns.
func (m *VotingMatrix) IsEmpty() bool {
	return m.Rows == 0 || m.Cols == 0
}

// VotingData bundles the matrix with everything derived alongside it:
// row and column orderings, per-bill weights and detail records.
type VotingData struct {
	Matrix      *VotingMatrix
	MemberIDs   []int
	MemberNames map[int]string
	BillIDs     []int
	Weights     []float64
	BillDetails []types.BillInfo
}

// BuildVotingMatrix assembles the member x bill matrix for one cluster.
//
// Vote records for bills outside clusterBillIDs are ignored. Rows are
// member ids sorted ascending, columns are the distinct cluster bill
// ids sorted ascending; both orderings depend only on identity. When a
// member voted twice on the same bill, the later record in input order
// wins. An empty member or bill universe yields an empty VotingData
// with a nil error: nothing to compute is a normal outcome.
func BuildVotingMatrix(scores []types.LegislationScore, clusterBillIDs []int, billInfo map[int]types.BillInfo, minScore, maxScore float64) (*VotingData, error) {
	inCluster := make(map[int]bool, len(clusterBillIDs))
	for _, id := range clusterBillIDs {
		inCluster[id] = true
	}

	memberScores := make(map[int]map[int]float64)
	memberNames := make(map[int]string)

	for _, leg := range scores {
		if !inCluster[leg.BillID] {
			continue
		}

		for _, ms := range leg.MemberScores {
			if ms.MemberID == 0 {
				return nil, errors.NewValidationError(
					"vote record missing member id",
					fmt.Sprintf("billId=%d memberName=%q", leg.BillID, ms.MemberName))
			}
			if !validScore(ms.Score) {
				return nil, errors.NewValidationError(
					"vote record has non-numeric score",
					fmt.Sprintf("billId=%d memberId=%d score=%v", leg.BillID, ms.MemberID, ms.Score))
			}

			normalized, err := NormalizeScore(ms.Score, minScore, maxScore)
			if err != nil {
				return nil, err
			}

			if memberScores[ms.MemberID] == nil {
				memberScores[ms.MemberID] = make(map[int]float64)
			}
			memberScores[ms.MemberID][leg.BillID] = normalized
			memberNames[ms.MemberID] = ms.MemberName
		}
	}

	memberIDs := make([]int, 0, len(memberScores))
	for id := range memberScores {
		memberIDs = append(memberIDs, id)
	}
	sort.Ints(memberIDs)

	billIDs := make([]int, 0, len(inCluster))
	for id := range inCluster {
		billIDs = append(billIDs, id)
	}
	sort.Ints(billIDs)

	if len(memberIDs) == 0 || len(billIDs) == 0 {
		return &VotingData{
			Matrix:      NewVotingMatrix(0, 0),
			MemberIDs:   []int{},
			MemberNames: memberNames,
			BillIDs:     []int{},
			Weights:     []float64{},
			BillDetails: []types.BillInfo{},
		}, nil
	}

	matrix := NewVotingMatrix(len(memberIDs), len(billIDs))
	for i, memberID := range memberIDs {
		votes := memberScores[memberID]
		for j, billID := range billIDs {
			if v, ok := votes[billID]; ok {
				matrix.Set(i, j, v)
			}
		}
	}

	weights := make([]float64, len(billIDs))
	details := make([]types.BillInfo, len(billIDs))
	for j, billID := range billIDs {
		info := billInfo[billID] // zero value when the bill has no metadata
		info.ID = billID
		weights[j] = BillWeight(info)
		details[j] = info
	}

	return &VotingData{
		Matrix:      matrix,
		MemberIDs:   memberIDs,
		MemberNames: memberNames,
		BillIDs:     billIDs,
		Weights:     weights,
		BillDetails: details,
	}, nil
}
