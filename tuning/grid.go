package tuning

import "github.com/RyanBlaney/sonido-gusto/classifier"

// Grids holds the candidate configurations of each model family, in the
// order ties are broken
type Grids struct {
	Forest   []classifier.Params
	Boosting []classifier.Params
}

// DefaultGrids is the 64 + 64 configuration search of the offline
// optimization run
func DefaultGrids() Grids {
	return Grids{
		Forest:   ForestGrid([]int{100, 200, 250, 300}, []int{0, 3, 6, 10}, []int{5, 10, 15, 20}),
		Boosting: BoostingGrid([]int{25, 50, 100, 200}, []float64{0.01, 0.1, 0.2, 0.5}, []int{0, 3, 6, 10}),
	}
}

// ForestGrid expands the cartesian product of the given values. Depth 0
// is unlimited. Keys vary in alphabetical order with the last key
// (n_estimators) fastest.
func ForestGrid(estimators, depths, minSplits []int) []classifier.Params {
	var grid []classifier.Params
	for _, depth := range depths {
		for _, minSplit := range minSplits {
			for _, n := range estimators {
				p := classifier.DefaultForestParams()
				p.NEstimators = n
				p.MaxDepth = depth
				p.MinSamplesSplit = minSplit
				grid = append(grid, p)
			}
		}
	}
	return grid
}

// BoostingGrid expands learning_rate, then max_depth, then n_estimators
// (fastest)
func BoostingGrid(estimators []int, rates []float64, depths []int) []classifier.Params {
	var grid []classifier.Params
	for _, rate := range rates {
		for _, depth := range depths {
			for _, n := range estimators {
				p := classifier.DefaultBoostingParams()
				p.NEstimators = n
				p.LearningRate = rate
				p.MaxDepth = depth
				grid = append(grid, p)
			}
		}
	}
	return grid
}
