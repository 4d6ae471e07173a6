package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/polimap/vote-latent/internal/types"
)

// DefaultTopN is the number of representative bills reported per
// latent dimension.
const DefaultTopN = 3

// RepresentativeBills returns, for each latent dimension, the topN
// bills ranked by descending absolute loading. Bills with equal
// absolute loading resolve in favor of the one later in bill-id order:
// the ranking is a stable ascending sort read back from the tail, and
// that ordering is part of the output contract.
func RepresentativeBills(loadings *mat.Dense, details []types.BillInfo, topN int) [][]RepresentativeBill {
	result := [][]RepresentativeBill{}
	if loadings == nil {
		return result
	}

	bills, dims := loadings.Dims()
	if bills == 0 || dims == 0 {
		return result
	}

	for dim := 0; dim < dims; dim++ {
		absLoadings := make([]float64, bills)
		for j := 0; j < bills; j++ {
			absLoadings[j] = math.Abs(loadings.At(j, dim))
		}

		order := make([]int, bills)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return absLoadings[order[a]] < absLoadings[order[b]]
		})

		take := topN
		if bills < take {
			take = bills
		}

		top := make([]RepresentativeBill, 0, take)
		for t := bills - 1; t >= bills-take; t-- {
			j := order[t]
			top = append(top, RepresentativeBill{
				BillID:                details[j].ID,
				Title:                 details[j].Title,
				Passed:                details[j].Passed,
				DeliberationCompleted: details[j].DeliberationCompleted,
				Loading:               loadings.At(j, dim),
				AbsLoading:            absLoadings[j],
			})
		}

		result = append(result, top)
	}

	return result
}
