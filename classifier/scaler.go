package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// near-zero spreads are treated as constant columns
const minScale = 10 * 2.220446049250313e-16

// StandardScaler centres every column on its training mean and divides by
// its population standard deviation. Constant columns get scale 1, so they
// map to 0 instead of NaN.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns per-column statistics from x
func FitScaler(x mat.Matrix) *StandardScaler {
	rows, cols := x.Dims()
	s := &StandardScaler{
		Mean:  make([]float64, cols),
		Scale: make([]float64, cols),
	}

	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std < minScale {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}

	return s
}

// Transform returns a scaled copy of x
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrSchemaMismatch, len(s.Mean), cols)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out, nil
}

// TransformVec scales one feature vector
func (s *StandardScaler) TransformVec(vec []float64) ([]float64, error) {
	if len(vec) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrSchemaMismatch, len(s.Mean), len(vec))
	}

	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// rowsOf views a dense matrix as row slices without copying
func rowsOf(x *mat.Dense) [][]float64 {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range n {
		rows[i] = x.RawRowView(i)
	}
	return rows
}
