package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// BoostingParams configures gradient boosting on the log-loss. MaxDepth 0
// means unlimited.
type BoostingParams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	Seed            uint64  `json:"seed"`
}

// DefaultBoostingParams: 100 depth-3 trees at learning rate 0.1
func DefaultBoostingParams() BoostingParams {
	return BoostingParams{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

func (p BoostingParams) Kind() ModelKind { return KindGradientBoosting }

func (p BoostingParams) String() string {
	depth := "none"
	if p.MaxDepth > 0 {
		depth = fmt.Sprint(p.MaxDepth)
	}
	return fmt.Sprintf("n_estimators=%d learning_rate=%g max_depth=%s", p.NEstimators, p.LearningRate, depth)
}

func (p BoostingParams) Fit(x *mat.Dense, y []int) (Model, error) {
	return FitBoosting(x, y, p)
}

// GradientBoosting is an additive model of regression trees in log-odds
// space
type GradientBoosting struct {
	Params BoostingParams `json:"params"`
	Init   float64        `json:"init"` // log-odds of the class prior
	Trees  []*Tree        `json:"trees"`
}

const probaClip = 1e-15

// FitBoosting fits each tree to the negative gradient of the log-loss and
// sets every leaf to one Newton step, sum(residual) / sum(p(1-p)).
func FitBoosting(x *mat.Dense, y []int, params BoostingParams) (*GradientBoosting, error) {
	if err := checkTrainingSet(x, y); err != nil {
		return nil, err
	}
	if params.NEstimators <= 0 || params.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid boosting parameters: %s", params)
	}

	rows := rowsOf(x)
	n := len(rows)
	yf := targets(y)

	prior := math.Min(math.Max(stat.Mean(yf, nil), probaClip), 1-probaClip)
	model := &GradientBoosting{
		Params: params,
		Init:   math.Log(prior / (1 - prior)),
		Trees:  make([]*Tree, params.NEstimators),
	}

	cfg := treeConfig{
		maxDepth:        params.MaxDepth,
		minSamplesSplit: max(params.MinSamplesSplit, 2),
	}

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = model.Init
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	residual := make([]float64, n)
	proba := make([]float64, n)
	rng := rand.New(rand.NewPCG(params.Seed, 0))

	for m := range model.Trees {
		for i := range raw {
			proba[i] = sigmoid(raw[i])
			residual[i] = yf[i] - proba[i]
		}

		tree := growTree(cfg, rows, residual, all, rng)

		numerators := make(map[int]float64)
		denominators := make(map[int]float64)
		leaves := make([]int, n)
		for i, row := range rows {
			leaf := tree.leaf(row)
			leaves[i] = leaf
			numerators[leaf] += residual[i]
			denominators[leaf] += proba[i] * (1 - proba[i])
		}
		for leaf, num := range numerators {
			value := 0.0
			if den := denominators[leaf]; den >= 1e-150 {
				value = num / den
			}
			tree.Nodes[leaf].Value = value
		}

		for i, leaf := range leaves {
			raw[i] += params.LearningRate * tree.Nodes[leaf].Value
		}
		model.Trees[m] = tree
	}

	return model, nil
}

func (g *GradientBoosting) Kind() ModelKind { return KindGradientBoosting }

func (g *GradientBoosting) PredictProba(x []float64) float64 {
	raw := g.Init
	for _, tree := range g.Trees {
		raw += g.Params.LearningRate * tree.Predict(x)
	}
	return sigmoid(raw)
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
