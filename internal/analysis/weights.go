package analysis

import "github.com/polimap/vote-latent/internal/types"

// Bill importance weights by deliberation status.
var (
	weightPassed     = 1.0
	weightInProgress = 0.8
	weightFailed     = 0.6
)

// BillWeight returns the importance weight for a bill: 1.0 for passed
// bills, 0.8 for bills still in deliberation, and 0.6 for bills whose
// deliberation completed without passage (failed or discarded). These
// three values are the only outputs.
//
// TODO: wire up the 1.5-2.0 boost for landmark bills once the bill
// importance flag lands in the store schema.
func BillWeight(info types.BillInfo) float64 {
	if info.Passed {
		return weightPassed
	}
	if !info.DeliberationCompleted {
		return weightInProgress
	}
	return weightFailed
}
