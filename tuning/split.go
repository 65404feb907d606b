package tuning

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// trainTestSplit shuffles 0..n-1 with seed and returns the first
// ceil(testFraction*n) indices as the test partition
func trainTestSplit(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	numTest := int(math.Ceil(testFraction * float64(n)))
	if numTest < 1 || numTest >= n {
		return nil, nil, fmt.Errorf("%w: cannot hold out %.0f%% of %d rows", ErrInsufficientData, testFraction*100, n)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[numTest:], perm[:numTest], nil
}

// stratifiedFolds assigns every row to one of k folds so each fold keeps
// roughly the overall class balance. Rows are not shuffled: within a class
// earlier rows land in earlier folds.
func stratifiedFolds(y []int, k int) ([]int, error) {
	if len(y) < k {
		return nil, fmt.Errorf("%w: %d rows for %d folds", ErrInsufficientData, len(y), k)
	}

	var counts [2]int
	for _, label := range y {
		counts[label]++
	}

	// deal the class-sorted label sequence round robin to get how many of
	// each class every fold receives
	allocation := make([][2]int, k)
	position := 0
	for class, count := range counts {
		for range count {
			allocation[position%k][class]++
			position++
		}
	}

	folds := make([]int, len(y))
	for class := range counts {
		fold, used := 0, 0
		for i, label := range y {
			if label != class {
				continue
			}
			for used >= allocation[fold][class] {
				fold++
				used = 0
			}
			folds[i] = fold
			used++
		}
	}

	return folds, nil
}

// foldIndices splits positions 0..len(folds)-1 into the training and
// validation rows of fold f
func foldIndices(folds []int, f int) (train, validate []int) {
	for i, fold := range folds {
		if fold == f {
			validate = append(validate, i)
		} else {
			train = append(train, i)
		}
	}
	return train, validate
}

func selectRows(x *mat.Dense, indices []int) *mat.Dense {
	_, cols := x.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		out.SetRow(i, x.RawRowView(idx))
	}
	return out
}

func selectLabels(y []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}
