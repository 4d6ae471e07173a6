package analysis

// RepresentativeBill is one bill selected as defining a latent
// dimension, with its signed loading on that dimension.
type RepresentativeBill struct {
	BillID                int     `json:"billId"`
	Title                 string  `json:"title"`
	Passed                bool    `json:"passed"`
	DeliberationCompleted bool    `json:"deliberationCompleted"`
	Loading               float64 `json:"loading"`
	AbsLoading            float64 `json:"absLoading"`
}

// ClusterResult is the full output for one cluster label. Member
// vectors are keyed by the decimal member id; bill loadings follow
// bill-id sorted order, one row per bill.
type ClusterResult struct {
	MemberVectors       map[string][]float64   `json:"memberVectors"`
	BillLoadings        [][]float64            `json:"billLoadings"`
	RepresentativeBills [][]RepresentativeBill `json:"representativeBills"`
	ExplainedVariance   []float64              `json:"explainedVariance"`
	Dimensions          int                    `json:"dimensions"`
	MemberCount         int                    `json:"memberCount"`
	BillCount           int                    `json:"billCount"`
	BillIDs             []int                  `json:"billIds"`
}

func emptyClusterResult(memberCount, billCount int, billIDs []int) *ClusterResult {
	if billIDs == nil {
		billIDs = []int{}
	}
	return &ClusterResult{
		MemberVectors:       map[string][]float64{},
		BillLoadings:        [][]float64{},
		RepresentativeBills: [][]RepresentativeBill{},
		ExplainedVariance:   []float64{},
		Dimensions:          0,
		MemberCount:         memberCount,
		BillCount:           billCount,
		BillIDs:             billIDs,
	}
}
