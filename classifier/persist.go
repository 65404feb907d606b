package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-gusto/features"
)

const (
	ScalerFile     = "scaler.json"
	ClassifierFile = "classifier.json"
)

type scalerBlob struct {
	PairID        string          `json:"pair_id"`
	Fingerprint   string          `json:"fingerprint"`
	SchemaVersion string          `json:"schema_version"`
	Scaler        *StandardScaler `json:"scaler"`
}

type classifierBlob struct {
	PairID           string            `json:"pair_id"`
	Fingerprint      string            `json:"fingerprint"`
	SchemaVersion    string            `json:"schema_version"`
	Kind             ModelKind         `json:"kind"`
	RandomForest     *RandomForest     `json:"random_forest,omitempty"`
	GradientBoosting *GradientBoosting `json:"gradient_boosting,omitempty"`
}

// MarshalBlobs encodes the pair as two independent documents, one for
// the scaler and one for the classifier. Both carry the pair id and the
// schema fingerprint.
func MarshalBlobs(p *Pair) (scaler, classifier []byte, err error) {
	fingerprint := p.Schema.Fingerprint()

	scaler, err = json.Marshal(scalerBlob{
		PairID:        p.ID,
		Fingerprint:   fingerprint,
		SchemaVersion: p.Schema.Version(),
		Scaler:        p.Scaler,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode scaler: %w", err)
	}

	blob := classifierBlob{
		PairID:        p.ID,
		Fingerprint:   fingerprint,
		SchemaVersion: p.Schema.Version(),
		Kind:          p.Model.Kind(),
	}
	switch m := p.Model.(type) {
	case *RandomForest:
		blob.RandomForest = m
	case *GradientBoosting:
		blob.GradientBoosting = m
	default:
		return nil, nil, fmt.Errorf("cannot encode model of type %T", p.Model)
	}

	classifier, err = json.Marshal(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode classifier: %w", err)
	}

	return scaler, classifier, nil
}

// UnmarshalBlobs rebuilds a pair. Blobs from different training runs fail
// with ErrPairMismatch; blobs fitted on another schema fail with
// ErrSchemaMismatch.
func UnmarshalBlobs(scaler, classifier []byte, schema *features.Schema) (*Pair, error) {
	var sb scalerBlob
	if err := json.Unmarshal(scaler, &sb); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}

	var cb classifierBlob
	if err := json.Unmarshal(classifier, &cb); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}

	if sb.PairID == "" || sb.PairID != cb.PairID {
		return nil, fmt.Errorf("%w: scaler %q, classifier %q", ErrPairMismatch, sb.PairID, cb.PairID)
	}
	if sb.Fingerprint != cb.Fingerprint {
		return nil, fmt.Errorf("%w: fingerprints %s and %s", ErrPairMismatch, sb.Fingerprint, cb.Fingerprint)
	}
	if fingerprint := schema.Fingerprint(); sb.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: model fitted on schema %s (%s), current schema %s (%s)",
			ErrSchemaMismatch, sb.SchemaVersion, sb.Fingerprint, schema.Version(), fingerprint)
	}

	if sb.Scaler == nil || len(sb.Scaler.Mean) != schema.Len() || len(sb.Scaler.Scale) != schema.Len() {
		return nil, fmt.Errorf("%w: scaler does not cover %d features", ErrSchemaMismatch, schema.Len())
	}

	var model Model
	switch cb.Kind {
	case KindRandomForest:
		if cb.RandomForest == nil {
			return nil, errors.New("classifier blob has no random forest")
		}
		model = cb.RandomForest
	case KindGradientBoosting:
		if cb.GradientBoosting == nil {
			return nil, errors.New("classifier blob has no gradient boosting model")
		}
		model = cb.GradientBoosting
	default:
		return nil, fmt.Errorf("unknown model kind %q", cb.Kind)
	}

	return &Pair{
		ID:     sb.PairID,
		Schema: schema,
		Scaler: sb.Scaler,
		Model:  model,
	}, nil
}

// SaveDir writes scaler.json and classifier.json into dir
func SaveDir(dir string, p *Pair) error {
	scaler, classifier, err := MarshalBlobs(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ScalerFile), scaler, 0o644); err != nil {
		return fmt.Errorf("failed to write scaler: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ClassifierFile), classifier, 0o644); err != nil {
		return fmt.Errorf("failed to write classifier: %w", err)
	}
	return nil
}

// LoadDir reads a pair written by SaveDir
func LoadDir(dir string, schema *features.Schema) (*Pair, error) {
	scaler, err := os.ReadFile(filepath.Join(dir, ScalerFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler: %w", err)
	}
	classifier, err := os.ReadFile(filepath.Join(dir, ClassifierFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier: %w", err)
	}
	return UnmarshalBlobs(scaler, classifier, schema)
}
