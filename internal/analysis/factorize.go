package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/polimap/vote-latent/internal/errors"
)

// Factorization holds the outputs of the weighted SVD: member latent
// vectors (U_k scaled by the singular values), bill loadings (V_k, one
// row per bill), the retained singular values, and the fraction of
// total variance each retained dimension explains.
type Factorization struct {
	MemberVectors     *mat.Dense
	BillLoadings      *mat.Dense
	SingularValues    []float64
	ExplainedVariance []float64
}

// Dimensions returns the number of retained latent dimensions.
func (f *Factorization) Dimensions() int {
	if f.MemberVectors == nil {
		return 0
	}
	_, k := f.MemberVectors.Dims()
	return k
}

func emptyFactorization() *Factorization {
	return &Factorization{
		SingularValues:    []float64{},
		ExplainedVariance: []float64{},
	}
}

// Factorize scales each column of the imputed matrix by its bill
// weight, centers each row on its mean, and decomposes the result with
// an SVD. The decomposition is deterministic for a fixed input; the
// sign of any individual singular vector is not.
//
// At most min(nComponents, rows, cols) dimensions are retained. The
// explained variance ratio divides by the variance of ALL singular
// values, so the retained ratios sum to 1 only at full rank. A nil or
// degenerate matrix yields an empty Factorization, not an error.
func Factorize(m *mat.Dense, weights []float64, nComponents int) (*Factorization, error) {
	if m == nil {
		return emptyFactorization(), nil
	}

	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return emptyFactorization(), nil
	}
	if len(weights) != cols {
		return nil, errors.NewValidationError(
			"weight vector does not match matrix",
			fmt.Sprintf("weights=%d cols=%d", len(weights), cols))
	}

	// Column weighting as direct elementwise scaling; no diagonal
	// matrix is materialized.
	weighted := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			weighted.Set(i, j, m.At(i, j)*weights[j])
		}
	}

	// Row centering removes each member's overall tendency, leaving
	// relative position.
	for i := 0; i < rows; i++ {
		rowSum := 0.0
		for j := 0; j < cols; j++ {
			rowSum += weighted.At(i, j)
		}
		rowMean := rowSum / float64(cols)
		for j := 0; j < cols; j++ {
			weighted.Set(i, j, weighted.At(i, j)-rowMean)
		}
	}

	kEff := nComponents
	if rows < kEff {
		kEff = rows
	}
	if cols < kEff {
		kEff = cols
	}
	if kEff <= 0 {
		return emptyFactorization(), nil
	}

	var svd mat.SVD
	if ok := svd.Factorize(weighted, mat.SVDThin); !ok {
		return nil, errors.NewInternalError("SVD failed to converge", nil)
	}

	s := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	memberVectors := mat.NewDense(rows, kEff, nil)
	for i := 0; i < rows; i++ {
		for d := 0; d < kEff; d++ {
			memberVectors.Set(i, d, u.At(i, d)*s[d])
		}
	}

	loadings := mat.NewDense(cols, kEff, nil)
	for j := 0; j < cols; j++ {
		for d := 0; d < kEff; d++ {
			loadings.Set(j, d, v.At(j, d))
		}
	}

	totalVariance := 0.0
	for _, sv := range s {
		totalVariance += sv * sv
	}

	explained := []float64{}
	if totalVariance > 0 {
		explained = make([]float64, kEff)
		for d := 0; d < kEff; d++ {
			explained[d] = s[d] * s[d] / totalVariance
		}
	}

	return &Factorization{
		MemberVectors:     memberVectors,
		BillLoadings:      loadings,
		SingularValues:    s[:kEff],
		ExplainedVariance: explained,
	}, nil
}
