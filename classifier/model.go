package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ModelKind names a classifier family
type ModelKind string

const (
	KindRandomForest     ModelKind = "random_forest"
	KindGradientBoosting ModelKind = "gradient_boosting"
)

// Model is a fitted binary classifier over scaled feature vectors
type Model interface {
	// PredictProba returns P(label = 1)
	PredictProba(x []float64) float64
	Kind() ModelKind
}

// Params is a hyperparameter configuration that can fit a Model
type Params interface {
	Kind() ModelKind
	Fit(x *mat.Dense, y []int) (Model, error)
	String() string
}

// labelFor turns a probability into a hard label; ties go to 0
func labelFor(proba float64) int {
	if proba > 0.5 {
		return 1
	}
	return 0
}

func checkTrainingSet(x *mat.Dense, y []int) error {
	if x == nil {
		return fmt.Errorf("%w: no training matrix", ErrInsufficientData)
	}
	rows, cols := x.Dims()
	if rows < 2 || cols == 0 {
		return fmt.Errorf("%w: %d rows, %d columns", ErrInsufficientData, rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("%w: %d labels for %d rows", ErrMissingLabel, len(y), rows)
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: row %d has label %d", ErrMissingLabel, i, label)
		}
	}
	return nil
}

func targets(y []int) []float64 {
	out := make([]float64, len(y))
	for i, label := range y {
		out[i] = float64(label)
	}
	return out
}
