package features

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrSchemaMismatch is returned when a record's key set differs from the
// schema it is projected onto
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Record maps feature name to value. A valid record holds exactly the
// schema's names, all finite.
type Record map[string]float64

// SchemaMismatchError lists what a record lacks and what it carries beyond
// the schema
type SchemaMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", summarizeNames(e.Missing)))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %s", summarizeNames(e.Unexpected)))
	}
	return fmt.Sprintf("%s: %s", ErrSchemaMismatch, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

func summarizeNames(names []string) string {
	const shown = 5
	if len(names) <= shown {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:shown], ", "), len(names)-shown)
}

// Schema is the ordered, versioned list of feature names shared by the
// extractor, the trainer and the predictor. Vectors are always built by
// walking this order, never a record's own key order.
type Schema struct {
	version string
	names   []string
	index   map[string]int
}

// NewSchema derives the name list from the family sizes in config:
// rhythm, then MFCC (coefficient-major, raw/delta/delta2), spectral
// shape, contrast bands, chroma bins, energy.
func NewSchema(config *FeatureConfig) *Schema {
	var prefixes []string

	prefixes = append(prefixes, "beat_interval")
	for i := range config.MFCCCoefficients {
		prefixes = append(prefixes,
			fmt.Sprintf("mfcc_%d", i),
			fmt.Sprintf("mfcc_delta_%d", i),
			fmt.Sprintf("mfcc_delta2_%d", i),
		)
	}
	prefixes = append(prefixes, "spectral_centroid", "spectral_bandwidth", "spectral_rolloff")
	for b := range config.ContrastBands {
		prefixes = append(prefixes, fmt.Sprintf("spectral_contrast_%d", b))
	}
	for k := range config.ChromaBins {
		prefixes = append(prefixes, fmt.Sprintf("chroma_%d", k))
	}
	prefixes = append(prefixes, "rms", "zcr")

	names := []string{"tempo"}
	for _, prefix := range prefixes {
		names = append(names, SummaryNames(prefix)...)
	}

	return newSchema(config.SchemaVersion, names)
}

func newSchema(version string, names []string) *Schema {
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &Schema{version: version, names: names, index: index}
}

// DefaultSchema is the v2 schema of 257 features
func DefaultSchema() *Schema {
	return NewSchema(DefaultFeatureConfig())
}

func (s *Schema) Version() string { return s.version }

func (s *Schema) Len() int { return len(s.names) }

// Names returns a copy of the ordered feature names
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

// Index returns the position of name in the vector
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Fingerprint is a stable hash of the version and ordered names. Two
// schemas with the same fingerprint produce interchangeable vectors.
func (s *Schema) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.version))
	for _, name := range s.names {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CheckNames verifies that names is exactly the schema's name set, in any
// order
func (s *Schema) CheckNames(names []string) error {
	seen := make(map[string]bool, len(names))
	var unexpected []string
	for _, name := range names {
		if _, ok := s.index[name]; !ok || seen[name] {
			unexpected = append(unexpected, name)
			continue
		}
		seen[name] = true
	}

	var missing []string
	for _, name := range s.names {
		if !seen[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		return &SchemaMismatchError{Missing: missing, Unexpected: unexpected}
	}
	return nil
}

// Validate checks that record has exactly the schema's keys and that
// every value is finite
func (s *Schema) Validate(record Record) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if err := s.CheckNames(keys); err != nil {
		return err
	}

	for _, name := range s.names {
		if v := record[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrSchemaMismatch, name, v)
		}
	}
	return nil
}

// Project builds the feature vector in schema order
func (s *Schema) Project(record Record) ([]float64, error) {
	if err := s.Validate(record); err != nil {
		return nil, err
	}

	vec := make([]float64, len(s.names))
	for i, name := range s.names {
		vec[i] = record[name]
	}
	return vec, nil
}

// Record is the inverse of Project
func (s *Schema) Record(vec []float64) (Record, error) {
	if len(vec) != len(s.names) {
		return nil, fmt.Errorf("%w: vector has %d values, schema has %d", ErrSchemaMismatch, len(vec), len(s.names))
	}

	record := make(Record, len(vec))
	for i, name := range s.names {
		record[name] = vec[i]
	}
	return record, nil
}
