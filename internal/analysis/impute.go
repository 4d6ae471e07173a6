package analysis

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Impute returns a fully dense copy of the matrix with every absent
// cell replaced by the mean of that column's observed values. Columns
// with no observed votes fall back to 0.0. The receiver is not
// modified.
func (m *VotingMatrix) Impute() *mat.Dense {
	if m.IsEmpty() {
		return nil
	}

	out := mat.NewDense(m.Rows, m.Cols, nil)

	colValues := make([]float64, 0, m.Rows)
	for j := 0; j < m.Cols; j++ {
		colValues = colValues[:0]
		for i := 0; i < m.Rows; i++ {
			if v, ok := m.At(i, j); ok {
				colValues = append(colValues, v)
			}
		}

		colMean := 0.0
		if len(colValues) > 0 {
			colMean = stat.Mean(colValues, nil)
		}

		for i := 0; i < m.Rows; i++ {
			if v, ok := m.At(i, j); ok {
				out.Set(i, j, v)
			} else {
				out.Set(i, j, colMean)
			}
		}
	}

	return out
}
