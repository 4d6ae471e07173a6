package analysis

import (
	"strconv"

	"github.com/polimap/vote-latent/internal/types"
)

// Options configure one cluster computation.
type Options struct {
	NComponents int     // latent dimensions requested
	TopN        int     // representative bills per dimension
	MinScore    float64 // raw score range for normalization
	MaxScore    float64
}

// DefaultOptions returns the options matching the reference pipeline.
func DefaultOptions() Options {
	return Options{
		NComponents: 3,
		TopN:        DefaultTopN,
		MinScore:    DefaultMinScore,
		MaxScore:    DefaultMaxScore,
	}
}

// Calculator runs the full latent-vector pipeline for cluster labels.
type Calculator struct {
	opts Options
}

// NewCalculator creates a calculator with the given options. Zero
// values fall back to defaults, so Options{} behaves like
// DefaultOptions().
func NewCalculator(opts Options) *Calculator {
	def := DefaultOptions()
	if opts.NComponents == 0 {
		opts.NComponents = def.NComponents
	}
	if opts.TopN == 0 {
		opts.TopN = def.TopN
	}
	if opts.MinScore == 0 && opts.MaxScore == 0 {
		opts.MinScore = def.MinScore
		opts.MaxScore = def.MaxScore
	}
	return &Calculator{opts: opts}
}

// ComputeCluster builds the voting matrix for one cluster's bills,
// imputes missing votes, factorizes, and extracts representative
// bills.
//
// Degenerate inputs (no members, no bills, zero effective dimensions)
// produce an empty result with accurate memberCount/billCount and
// Dimensions == 0; they never produce an error. Only configuration
// errors and malformed vote records fail the computation.
func (c *Calculator) ComputeCluster(scores []types.LegislationScore, clusterBillIDs []int, billInfo map[int]types.BillInfo) (*ClusterResult, error) {
	data, err := BuildVotingMatrix(scores, clusterBillIDs, billInfo, c.opts.MinScore, c.opts.MaxScore)
	if err != nil {
		return nil, err
	}

	if data.Matrix.IsEmpty() {
		return emptyClusterResult(0, 0, nil), nil
	}

	fact, err := Factorize(data.Matrix.Impute(), data.Weights, c.opts.NComponents)
	if err != nil {
		return nil, err
	}

	if fact.Dimensions() == 0 {
		return emptyClusterResult(len(data.MemberIDs), len(data.BillIDs), data.BillIDs), nil
	}

	kEff := fact.Dimensions()

	memberVectors := make(map[string][]float64, len(data.MemberIDs))
	for i, memberID := range data.MemberIDs {
		vec := make([]float64, kEff)
		for d := 0; d < kEff; d++ {
			vec[d] = fact.MemberVectors.At(i, d)
		}
		memberVectors[strconv.Itoa(memberID)] = vec
	}

	billLoadings := make([][]float64, len(data.BillIDs))
	for j := range data.BillIDs {
		row := make([]float64, kEff)
		for d := 0; d < kEff; d++ {
			row[d] = fact.BillLoadings.At(j, d)
		}
		billLoadings[j] = row
	}

	return &ClusterResult{
		MemberVectors:       memberVectors,
		BillLoadings:        billLoadings,
		RepresentativeBills: RepresentativeBills(fact.BillLoadings, data.BillDetails, c.opts.TopN),
		ExplainedVariance:   fact.ExplainedVariance,
		Dimensions:          kEff,
		MemberCount:         len(data.MemberIDs),
		BillCount:           len(data.BillIDs),
		BillIDs:             data.BillIDs,
	}, nil
}
