package tuning

import (
	"context"
	"fmt"
	"runtime"

	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrInsufficientData = classifier.ErrInsufficientData

// Config controls the held-out split and cross-validation
type Config struct {
	TestFraction float64 `json:"test_fraction"`
	Folds        int     `json:"folds"`
	Seed         uint64  `json:"seed"`
	Workers      int     `json:"workers"` // concurrent fits, 0 = NumCPU
}

func DefaultConfig() *Config {
	return &Config{
		TestFraction: 0.2,
		Folds:        5,
		Seed:         42,
		Workers:      runtime.NumCPU(),
	}
}

// CandidateResult is the cross-validation outcome of one configuration
type CandidateResult struct {
	Params     classifier.Params `json:"params"`
	FoldScores []float64         `json:"fold_scores"`
	MeanScore  float64           `json:"mean_score"`
}

// FamilyResult is the grid search of one model family
type FamilyResult struct {
	Kind         classifier.ModelKind  `json:"kind"`
	Candidates   []CandidateResult     `json:"candidates"`
	Best         CandidateResult       `json:"best"`
	TestAccuracy float64               `json:"test_accuracy"`
	TestReport   classifier.Evaluation `json:"test_report"`
	model        classifier.Model
}

// Report summarizes a search. Winner is the pair (held-out scaler plus
// best model) of the family with the higher held-out accuracy.
type Report struct {
	TrainRows  int                  `json:"train_rows"`
	TestRows   int                  `json:"test_rows"`
	Forest     FamilyResult         `json:"random_forest"`
	Boosting   FamilyResult         `json:"gradient_boosting"`
	WinnerKind classifier.ModelKind `json:"winner"`
	Winner     *classifier.Pair     `json:"-"`
}

// Tuner runs grid searches
type Tuner struct {
	config *Config
	schema *features.Schema
	logger logging.Logger
}

func NewTuner(config *Config, schema *features.Schema) *Tuner {
	if config == nil {
		config = DefaultConfig()
	}
	if schema == nil {
		schema = features.DefaultSchema()
	}
	return &Tuner{
		config: config,
		schema: schema,
		logger: logging.WithFields(logging.Fields{
			"component": "tuning",
		}),
	}
}

// Search runs the default tuner
func Search(ctx context.Context, ds *dataset.Dataset, grids Grids) (*Report, error) {
	return NewTuner(nil, nil).Search(ctx, ds, grids)
}

// Search holds out a test partition, cross-validates every configuration
// of both families on the rest, refits each family's best configuration
// on the whole training partition and compares them once on the held-out
// rows. Random forest wins only with strictly higher held-out accuracy.
func (t *Tuner) Search(ctx context.Context, ds *dataset.Dataset, grids Grids) (*Report, error) {
	logger := t.logger.WithFields(logging.Fields{"function": "Search"})

	if len(grids.Forest) == 0 || len(grids.Boosting) == 0 {
		return nil, fmt.Errorf("both model families need at least one configuration")
	}
	if err := ds.Validate(2); err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := trainTestSplit(ds.Len(), t.config.TestFraction, t.config.Seed)
	if err != nil {
		return nil, err
	}

	trainSet, testSet := ds.Subset(trainIdx), ds.Subset(testIdx)
	trainX, trainY, err := trainSet.Matrix(t.schema)
	if err != nil {
		return nil, err
	}
	testX, testY, err := testSet.Matrix(t.schema)
	if err != nil {
		return nil, err
	}

	scaler := classifier.FitScaler(trainX)
	if trainX, err = scaler.Transform(trainX); err != nil {
		return nil, err
	}
	if testX, err = scaler.Transform(testX); err != nil {
		return nil, err
	}

	folds, err := stratifiedFolds(trainY, t.config.Folds)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting grid search", logging.Fields{
		"train_rows":       trainSet.Len(),
		"test_rows":        testSet.Len(),
		"forest_configs":   len(grids.Forest),
		"boosting_configs": len(grids.Boosting),
		"folds":            t.config.Folds,
	})

	report := &Report{TrainRows: trainSet.Len(), TestRows: testSet.Len()}

	families := []struct {
		kind   classifier.ModelKind
		grid   []classifier.Params
		result *FamilyResult
	}{
		{classifier.KindRandomForest, grids.Forest, &report.Forest},
		{classifier.KindGradientBoosting, grids.Boosting, &report.Boosting},
	}

	for _, family := range families {
		result, err := t.searchFamily(ctx, family.kind, family.grid, trainX, trainY, folds)
		if err != nil {
			return nil, err
		}

		model, err := result.Best.Params.Fit(trainX, trainY)
		if err != nil {
			return nil, fmt.Errorf("failed to refit best %s: %w", family.kind, err)
		}
		result.model = model
		result.TestReport = classifier.Score(model, testX, testY)
		result.TestAccuracy = result.TestReport.Accuracy

		logger.Info("Family searched", logging.Fields{
			"model":         family.kind,
			"best_params":   result.Best.Params.String(),
			"cv_accuracy":   result.Best.MeanScore,
			"test_accuracy": result.TestAccuracy,
		})

		*family.result = *result
	}

	winner := report.Boosting
	if report.Forest.TestAccuracy > report.Boosting.TestAccuracy {
		winner = report.Forest
	}
	report.WinnerKind = winner.Kind
	report.Winner = classifier.NewPair(t.schema, scaler, winner.model)

	logger.Info("Grid search complete", logging.Fields{"winner": report.WinnerKind})

	return report, nil
}

// searchFamily scores every configuration on every fold. Fits run on a
// bounded errgroup; each writes only its own slot, so the outcome does not
// depend on scheduling.
func (t *Tuner) searchFamily(ctx context.Context, kind classifier.ModelKind, grid []classifier.Params, x *mat.Dense, y []int, folds []int) (*FamilyResult, error) {
	scores := make([][]float64, len(grid))
	for i := range scores {
		scores[i] = make([]float64, t.config.Folds)
	}

	workers := t.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for c, params := range grid {
		for f := range t.config.Folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				trainIdx, validateIdx := foldIndices(folds, f)
				model, err := params.Fit(selectRows(x, trainIdx), selectLabels(y, trainIdx))
				if err != nil {
					return fmt.Errorf("%s %s fold %d: %w", kind, params, f, err)
				}

				scores[c][f] = classifier.Score(model, selectRows(x, validateIdx), selectLabels(y, validateIdx)).Accuracy
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FamilyResult{Kind: kind, Candidates: make([]CandidateResult, len(grid))}
	for c, params := range grid {
		candidate := CandidateResult{
			Params:     params,
			FoldScores: scores[c],
			MeanScore:  stat.Mean(scores[c], nil),
		}
		result.Candidates[c] = candidate

		// strict comparison keeps the first configuration on ties
		if c == 0 || candidate.MeanScore > result.Best.MeanScore {
			result.Best = candidate
		}
	}

	return result, nil
}
