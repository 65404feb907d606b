package classifier

import (
	"math"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

// taste builds a record whose every feature sits near 10*label, so any
// single feature separates the classes
func taste(schema *features.Schema, label int, rng *rand.Rand) features.Record {
	record := make(features.Record, schema.Len())
	for _, name := range schema.Names() {
		record[name] = 10*float64(label) + rng.Float64()
	}
	return record
}

func separable(schema *features.Schema, n int) *dataset.Dataset {
	rng := rand.New(rand.NewPCG(1, 2))
	ds := dataset.New()
	for i := range n {
		label := i % 2
		ds.Add(dataset.Row{
			Track:    catalog.Track{ID: string(rune('a' + i))},
			Features: taste(schema, label, rng),
			Label:    label,
		})
	}
	return ds
}

func smallForest() ForestParams {
	p := DefaultForestParams()
	p.NEstimators = 25
	return p
}

func TestTrainSeparableForest(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 20)

	pair, err := Train(ds, DefaultForestParams())
	require.NoError(t, err)
	assert.NotEmpty(t, pair.ID)
	assert.Equal(t, KindRandomForest, pair.Model.Kind())

	eval, err := Evaluate(pair, ds)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, eval.TP+eval.TN, 18)
	assert.Equal(t, 20, eval.TP+eval.TN+eval.FP+eval.FN)

	rng := rand.New(rand.NewPCG(9, 9))
	liked, err := pair.Predict(taste(schema, 1, rng))
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Label)
	assert.Greater(t, liked.Confidence, 0.5)

	skipped, err := pair.Predict(taste(schema, 0, rng))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped.Label)
	assert.Less(t, skipped.Confidence, 0.5)
}

func TestTrainSeparableBoosting(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 20)

	pair, err := TrainWith(ds, schema, DefaultBoostingParams())
	require.NoError(t, err)
	assert.Equal(t, KindGradientBoosting, pair.Model.Kind())

	eval, err := Evaluate(pair, ds)
	require.NoError(t, err)
	assert.Equal(t, 1.0, eval.Accuracy)
}

func TestTrainInsufficientData(t *testing.T) {
	schema := features.DefaultSchema()
	_, err := Train(separable(schema, 1), smallForest())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Train(dataset.New(), smallForest())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrainMissingLabel(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 4)
	ds.Rows[2].Label = dataset.Unlabeled

	_, err := Train(ds, smallForest())
	assert.ErrorIs(t, err, ErrMissingLabel)
}

func TestTrainSchemaMismatch(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 4)
	delete(ds.Rows[3].Features, "rms_max")

	_, err := Train(ds, smallForest())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestPredictSchemaMismatch(t *testing.T) {
	schema := features.DefaultSchema()
	pair, err := Train(separable(schema, 10), smallForest())
	require.NoError(t, err)

	record := taste(schema, 1, rand.New(rand.NewPCG(3, 3)))
	delete(record, "chroma_5_mean")

	_, err = pair.Predict(record)
	require.ErrorIs(t, err, ErrSchemaMismatch)

	var mismatch *features.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"chroma_5_mean"}, mismatch.Missing)
}

func TestTrainRejectsNonFinite(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 6)
	ds.Rows[4].Features["tempo"] = math.NaN()

	_, err := Train(ds, smallForest())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestPredictRejectsNonFinite(t *testing.T) {
	schema := features.DefaultSchema()
	pair, err := Train(separable(schema, 10), smallForest())
	require.NoError(t, err)

	record := taste(schema, 1, rand.New(rand.NewPCG(4, 4)))
	record["beat_interval_mean"] = math.Inf(1)

	_, err = pair.Predict(record)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

// oneInformative builds n rows where only column 0 tracks the label; the
// other columns are noise spread over the same range
func oneInformative(n, cols int, seed uint64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	x := mat.NewDense(n, cols, nil)
	y := make([]int, n)
	for i := range n {
		y[i] = i % 2
		x.Set(i, 0, 2*float64(y[i])+rng.Float64())
		for j := 1; j < cols; j++ {
			x.Set(i, j, 3*rng.Float64())
		}
	}
	return x, y
}

func TestSingleInformativeColumnAmongNoise(t *testing.T) {
	trainX, trainY := oneInformative(40, 8, 11)
	testX, testY := oneInformative(20, 8, 12)

	forest, err := FitForest(trainX, trainY, DefaultForestParams())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, Score(forest, testX, testY).Accuracy, 0.9)
	assert.LessOrEqual(t, forest.MaxTreeDepth(), 10)
	assert.Positive(t, forest.MaxTreeDepth())

	boosting, err := FitBoosting(trainX, trainY, DefaultBoostingParams())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, Score(boosting, testX, testY).Accuracy, 0.9)
}

func TestForestIsDeterministic(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 12)

	a, err := Train(ds, smallForest())
	require.NoError(t, err)
	b, err := Train(ds, smallForest())
	require.NoError(t, err)

	assert.Equal(t, a.Model, b.Model)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 12)
	record := taste(schema, 1, rand.New(rand.NewPCG(5, 5)))

	for _, params := range []Params{smallForest(), DefaultBoostingParams()} {
		t.Run(string(params.Kind()), func(t *testing.T) {
			pair, err := TrainWith(ds, schema, params)
			require.NoError(t, err)

			dir := t.TempDir()
			require.NoError(t, SaveDir(dir, pair))

			loaded, err := LoadDir(dir, schema)
			require.NoError(t, err)
			assert.Equal(t, pair.ID, loaded.ID)

			want, err := pair.Predict(record)
			require.NoError(t, err)
			got, err := loaded.Predict(record)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestUnmarshalRejectsForeignBlobs(t *testing.T) {
	schema := features.DefaultSchema()
	ds := separable(schema, 8)

	first, err := Train(ds, smallForest())
	require.NoError(t, err)
	second, err := Train(ds, smallForest())
	require.NoError(t, err)

	scaler, _, err := MarshalBlobs(first)
	require.NoError(t, err)
	_, classifier, err := MarshalBlobs(second)
	require.NoError(t, err)

	_, err = UnmarshalBlobs(scaler, classifier, schema)
	assert.ErrorIs(t, err, ErrPairMismatch)
}

func TestUnmarshalRejectsOtherSchema(t *testing.T) {
	schema := features.DefaultSchema()
	pair, err := Train(separable(schema, 8), smallForest())
	require.NoError(t, err)

	scaler, classifier, err := MarshalBlobs(pair)
	require.NoError(t, err)

	cfg := features.DefaultFeatureConfig()
	cfg.MFCCCoefficients = 20
	_, err = UnmarshalBlobs(scaler, classifier, features.NewSchema(cfg))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoadDirMissingFiles(t *testing.T) {
	_, err := LoadDir(t.TempDir(), features.DefaultSchema())
	assert.Error(t, err)
}

func TestScalerZeroVariance(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})

	scaler := FitScaler(x)
	assert.Equal(t, []float64{2, 5}, scaler.Mean)
	assert.InDelta(t, 0.816497, scaler.Scale[0], 1e-6)
	assert.Equal(t, 1.0, scaler.Scale[1])

	scaled, err := scaler.Transform(x)
	require.NoError(t, err)
	for i := range 3 {
		assert.Equal(t, 0.0, scaled.At(i, 1))
	}

	_, err = scaler.TransformVec([]float64{1})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestTreeSplitsAtMidpoint(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{0, 0, 0, 1, 1, 1}
	samples := []int{0, 1, 2, 3, 4, 5}

	tree := growTree(treeConfig{minSamplesSplit: 2}, x, y, samples, rand.New(rand.NewPCG(1, 1)))

	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, 0, tree.Nodes[0].Feature)
	assert.Equal(t, 6.5, tree.Nodes[0].Threshold)
	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, 0.0, tree.Predict([]float64{6.5}))
	assert.Equal(t, 1.0, tree.Predict([]float64{6.6}))
}

func TestTreeRespectsLimits(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{0, 1, 0, 1}
	samples := []int{0, 1, 2, 3}
	rng := rand.New(rand.NewPCG(1, 1))

	stump := growTree(treeConfig{maxDepth: 1, minSamplesSplit: 2}, x, y, samples, rng)
	assert.Equal(t, 1, stump.Depth())

	leaf := growTree(treeConfig{minSamplesSplit: 5}, x, y, samples, rng)
	require.Len(t, leaf.Nodes, 1)
	assert.Equal(t, 0.5, leaf.Predict([]float64{3}))
}

func TestTreeSkipsConstantFeatures(t *testing.T) {
	x := [][]float64{{7, 1}, {7, 2}, {7, 8}, {7, 9}}
	y := []float64{0, 0, 1, 1}

	tree := growTree(treeConfig{minSamplesSplit: 2, maxFeatures: 1}, x, y, []int{0, 1, 2, 3}, rand.New(rand.NewPCG(4, 4)))
	assert.Equal(t, 1, tree.Nodes[0].Feature)
	assert.Equal(t, 5.0, tree.Nodes[0].Threshold)
}

func TestScoreCountsConfusion(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 2, 11, 12})
	model := &RandomForest{Trees: []*Tree{{Nodes: []Node{
		{Feature: 0, Threshold: 5, Left: 1, Right: 2},
		{Feature: -1, Value: 0},
		{Feature: -1, Value: 1},
	}}}}

	eval := Score(model, x, []int{0, 1, 1, 0})
	assert.Equal(t, Evaluation{Accuracy: 0.5, TP: 1, TN: 1, FP: 1, FN: 1}, eval)
}

func TestParamsValidation(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 1})

	_, err := FitForest(x, []int{0, 1}, ForestParams{})
	assert.Error(t, err)

	_, err = FitBoosting(x, []int{0, 1}, BoostingParams{NEstimators: 3})
	assert.Error(t, err)

	_, err = FitForest(x, []int{0, 2}, smallForest())
	assert.ErrorIs(t, err, ErrMissingLabel)
}
