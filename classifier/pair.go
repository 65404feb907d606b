package classifier

import (
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Pair is a scaler and a classifier fitted together on one schema. The
// two are only ever used, stored and loaded as a unit.
type Pair struct {
	ID     string
	Schema *features.Schema
	Scaler *StandardScaler
	Model  Model
}

// Prediction is the predictor's answer for one track
type Prediction struct {
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"` // P(label = 1)
}

// Train fits a scaler and a random forest on every row of ds using the
// default schema
func Train(ds *dataset.Dataset, params ForestParams) (*Pair, error) {
	return TrainWith(ds, features.DefaultSchema(), params)
}

// TrainWith fits a scaler on ds projected onto schema, then fits params
// on the scaled matrix
func TrainWith(ds *dataset.Dataset, schema *features.Schema, params Params) (*Pair, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "classifier",
		"function":  "TrainWith",
		"model":     params.Kind(),
	})

	if err := ds.Validate(2); err != nil {
		return nil, err
	}

	x, y, err := ds.Matrix(schema)
	if err != nil {
		return nil, err
	}

	scaler := FitScaler(x)
	scaled, err := scaler.Transform(x)
	if err != nil {
		return nil, err
	}

	model, err := params.Fit(scaled, y)
	if err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", params.Kind(), err)
	}

	dislikes, likes := ds.Counts()
	fields := logging.Fields{
		"rows":     ds.Len(),
		"likes":    likes,
		"dislikes": dislikes,
		"params":   params.String(),
	}
	if forest, ok := model.(*RandomForest); ok {
		fields["max_tree_depth"] = forest.MaxTreeDepth()
	}
	logger.Info("Model trained", fields)

	return NewPair(schema, scaler, model), nil
}

// NewPair groups a scaler and a model fitted together under a fresh id
func NewPair(schema *features.Schema, scaler *StandardScaler, model Model) *Pair {
	return &Pair{
		ID:     uuid.NewString(),
		Schema: schema,
		Scaler: scaler,
		Model:  model,
	}
}

// Predict projects record onto the pair's schema, applies the stored
// scaling and classifies it
func (p *Pair) Predict(record features.Record) (Prediction, error) {
	vec, err := p.Schema.Project(record)
	if err != nil {
		return Prediction{}, err
	}

	scaled, err := p.Scaler.TransformVec(vec)
	if err != nil {
		return Prediction{}, err
	}

	proba := p.Model.PredictProba(scaled)
	return Prediction{Label: labelFor(proba), Confidence: proba}, nil
}

// Evaluation is a confusion matrix with accuracy, label 1 being positive
type Evaluation struct {
	Accuracy float64 `json:"accuracy"`
	TP       int     `json:"tp"`
	TN       int     `json:"tn"`
	FP       int     `json:"fp"`
	FN       int     `json:"fn"`
}

func (e Evaluation) String() string {
	return fmt.Sprintf("accuracy=%.3f tp=%d tn=%d fp=%d fn=%d", e.Accuracy, e.TP, e.TN, e.FP, e.FN)
}

// Evaluate scores the pair on a labeled dataset
func Evaluate(p *Pair, ds *dataset.Dataset) (Evaluation, error) {
	if err := ds.Validate(1); err != nil {
		return Evaluation{}, err
	}

	x, y, err := ds.Matrix(p.Schema)
	if err != nil {
		return Evaluation{}, err
	}

	scaled, err := p.Scaler.Transform(x)
	if err != nil {
		return Evaluation{}, err
	}

	return Score(p.Model, scaled, y), nil
}

// Score compares the model's hard labels on an already scaled matrix to y
func Score(model Model, x *mat.Dense, y []int) Evaluation {
	var e Evaluation
	for i, row := range rowsOf(x) {
		predicted := labelFor(model.PredictProba(row))
		switch {
		case predicted == 1 && y[i] == 1:
			e.TP++
		case predicted == 0 && y[i] == 0:
			e.TN++
		case predicted == 1:
			e.FP++
		default:
			e.FN++
		}
	}
	if len(y) > 0 {
		e.Accuracy = float64(e.TP+e.TN) / float64(len(y))
	}
	return e
}
