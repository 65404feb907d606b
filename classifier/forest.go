package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// ForestParams configures a random forest. MaxDepth 0 means unlimited.
type ForestParams struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	Seed            uint64 `json:"seed"`
}

// DefaultForestParams is the configuration the offline grid search picked
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     200,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		Seed:            42,
	}
}

func (p ForestParams) Kind() ModelKind { return KindRandomForest }

func (p ForestParams) String() string {
	depth := "none"
	if p.MaxDepth > 0 {
		depth = fmt.Sprint(p.MaxDepth)
	}
	return fmt.Sprintf("n_estimators=%d max_depth=%s min_samples_split=%d", p.NEstimators, depth, p.MinSamplesSplit)
}

// Fit grows NEstimators trees, each on a bootstrap sample and considering
// sqrt(features) candidates per split. Tree t draws from its own PCG
// stream (Seed, t), so results do not depend on fitting order.
func (p ForestParams) Fit(x *mat.Dense, y []int) (Model, error) {
	return FitForest(x, y, p)
}

// RandomForest averages the class-1 leaf fractions of its trees
type RandomForest struct {
	Params ForestParams `json:"params"`
	Trees  []*Tree      `json:"trees"`
}

// FitForest trains a random forest on x (one row per sample)
func FitForest(x *mat.Dense, y []int, params ForestParams) (*RandomForest, error) {
	if err := checkTrainingSet(x, y); err != nil {
		return nil, err
	}
	if params.NEstimators <= 0 {
		return nil, fmt.Errorf("n_estimators must be positive: %d", params.NEstimators)
	}

	rows := rowsOf(x)
	n, numFeatures := x.Dims()
	cfg := treeConfig{
		maxDepth:        params.MaxDepth,
		minSamplesSplit: max(params.MinSamplesSplit, 2),
		maxFeatures:     max(1, int(math.Sqrt(float64(numFeatures)))),
	}
	yf := targets(y)

	forest := &RandomForest{Params: params, Trees: make([]*Tree, params.NEstimators)}
	for t := range forest.Trees {
		rng := rand.New(rand.NewPCG(params.Seed, uint64(t)))

		bootstrap := make([]int, n)
		for i := range bootstrap {
			bootstrap[i] = rng.IntN(n)
		}

		forest.Trees[t] = growTree(cfg, rows, yf, bootstrap, rng)
	}

	return forest, nil
}

func (f *RandomForest) Kind() ModelKind { return KindRandomForest }

// MaxTreeDepth is the depth of the deepest tree in the ensemble
func (f *RandomForest) MaxTreeDepth() int {
	depth := 0
	for _, tree := range f.Trees {
		depth = max(depth, tree.Depth())
	}
	return depth
}

func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, tree := range f.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(f.Trees))
}
