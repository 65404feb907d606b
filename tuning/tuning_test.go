package tuning

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

func separable(n int) *dataset.Dataset {
	schema := features.DefaultSchema()
	rng := rand.New(rand.NewPCG(7, 7))
	ds := dataset.New()
	for i := range n {
		label := i % 2
		record := make(features.Record, schema.Len())
		for _, name := range schema.Names() {
			record[name] = 10*float64(label) + rng.Float64()
		}
		ds.Add(dataset.Row{
			Track:    catalog.Track{ID: fmt.Sprintf("track-%d", i)},
			Features: record,
			Label:    label,
		})
	}
	return ds
}

func tinyGrids() Grids {
	return Grids{
		Forest:   ForestGrid([]int{5, 10}, []int{0, 3}, []int{2}),
		Boosting: BoostingGrid([]int{10}, []float64{0.1, 0.5}, []int{2}),
	}
}

func TestDefaultGridsOrder(t *testing.T) {
	grids := DefaultGrids()
	require.Len(t, grids.Forest, 64)
	require.Len(t, grids.Boosting, 64)

	first := grids.Forest[0].(classifier.ForestParams)
	second := grids.Forest[1].(classifier.ForestParams)
	assert.Equal(t, 100, first.NEstimators)
	assert.Equal(t, 0, first.MaxDepth)
	assert.Equal(t, 5, first.MinSamplesSplit)
	assert.Equal(t, 200, second.NEstimators)
	assert.Equal(t, 5, second.MinSamplesSplit)

	last := grids.Boosting[63].(classifier.BoostingParams)
	assert.Equal(t, 200, last.NEstimators)
	assert.Equal(t, 0.5, last.LearningRate)
	assert.Equal(t, 10, last.MaxDepth)
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := trainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 2)
	assert.Len(t, train, 8)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, append(append([]int{}, train...), test...))

	again, _, err := trainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, again)

	_, _, err = trainTestSplit(1, 0.2, 42)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestStratifiedFoldsKeepBalance(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	folds, err := stratifiedFolds(y, 5)
	require.NoError(t, err)

	for f := range 5 {
		_, validate := foldIndices(folds, f)
		var zeros, ones int
		for _, i := range validate {
			if y[i] == 0 {
				zeros++
			} else {
				ones++
			}
		}
		assert.Equal(t, 1, zeros, "fold %d", f)
		assert.Equal(t, 2, ones, "fold %d", f)
	}

	// no shuffling: the first rows of a class go to the first fold
	assert.Equal(t, 0, folds[0])
	assert.Equal(t, 0, folds[5])
	assert.Equal(t, 0, folds[6])
	assert.Equal(t, 4, folds[14])
}

func TestStratifiedFoldsNeedsRows(t *testing.T) {
	_, err := stratifiedFolds([]int{0, 1, 0}, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSearchSeparable(t *testing.T) {
	ds := separable(30)

	report, err := Search(context.Background(), ds, tinyGrids())
	require.NoError(t, err)

	assert.Equal(t, 24, report.TrainRows)
	assert.Equal(t, 6, report.TestRows)
	assert.Len(t, report.Forest.Candidates, 4)
	assert.Len(t, report.Boosting.Candidates, 2)
	assert.Len(t, report.Forest.Best.FoldScores, 5)

	assert.Equal(t, 1.0, report.Forest.Best.MeanScore)
	assert.Equal(t, 1.0, report.Forest.TestAccuracy)
	assert.Equal(t, 1.0, report.Boosting.TestAccuracy)

	// equal held-out accuracy goes to gradient boosting
	assert.Equal(t, classifier.KindGradientBoosting, report.WinnerKind)
	require.NotNil(t, report.Winner)
	assert.Equal(t, classifier.KindGradientBoosting, report.Winner.Model.Kind())

	// ties keep the first configuration in grid order
	assert.Equal(t, tinyGrids().Forest[0], report.Forest.Best.Params)

	eval, err := classifier.Evaluate(report.Winner, ds)
	require.NoError(t, err)
	assert.Equal(t, 1.0, eval.Accuracy)
}

func TestSearchIsIndependentOfWorkers(t *testing.T) {
	ds := separable(30)

	scores := func(workers int) [][]float64 {
		config := DefaultConfig()
		config.Workers = workers
		report, err := NewTuner(config, nil).Search(context.Background(), ds, tinyGrids())
		require.NoError(t, err)

		var out [][]float64
		for _, c := range append(report.Forest.Candidates, report.Boosting.Candidates...) {
			out = append(out, c.FoldScores)
		}
		return out
	}

	assert.Equal(t, scores(1), scores(8))
}

func TestSearchInsufficientData(t *testing.T) {
	_, err := Search(context.Background(), separable(4), tinyGrids())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Search(context.Background(), separable(1), tinyGrids())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSearchRejectsNonFiniteRows(t *testing.T) {
	ds := separable(30)
	ds.Rows[17].Features["zcr_mean"] = math.Inf(-1)

	_, err := Search(context.Background(), ds, tinyGrids())
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, separable(30), tinyGrids())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchNeedsBothFamilies(t *testing.T) {
	_, err := Search(context.Background(), separable(30), Grids{Forest: tinyGrids().Forest})
	assert.Error(t, err)
}
