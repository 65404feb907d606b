package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
)

const labelColumn = "label"

// metadataColumns are written ahead of the features
var metadataColumns = []string{"track_id", "track_name", "artist", "preview_url"}

// ignoredColumns are stripped before the feature columns are checked
var ignoredColumns = []string{"track_id", "track_name", "artist", "preview_url", "filename"}

// WriteCSV writes the header (metadata, schema names, label) and one line
// per row
func WriteCSV(w io.Writer, schema *features.Schema, d *Dataset) error {
	cw := csv.NewWriter(w)

	header := slices.Concat(metadataColumns, schema.Names(), []string{labelColumn})
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range d.Rows {
		vec, err := schema.Project(row.Features)
		if err != nil {
			return fmt.Errorf("row %d (%s): %w", i, row.Track.ID, err)
		}

		line := make([]string, 0, len(header))
		line = append(line, row.Track.ID, row.Track.Title, row.Track.Artist, row.Track.PreviewURL)
		for _, v := range vec {
			line = append(line, strconv.FormatFloat(v, 'g', -1, 64))
		}
		line = append(line, strconv.Itoa(row.Label))

		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset file. Metadata columns are optional and
// stripped; the label column is required; the remaining columns must be
// exactly the schema's names, in any order.
func ReadCSV(r io.Reader, schema *features.Schema) (*Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty dataset file", ErrInsufficientData)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	labelIdx := -1
	meta := map[string]int{}
	featureIdx := map[string]int{}
	var featureNames []string

	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == labelColumn:
			labelIdx = i
		case slices.Contains(ignoredColumns, name):
			meta[name] = i
		default:
			featureIdx[name] = i
			featureNames = append(featureNames, name)
		}
	}

	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: no %q column", ErrMissingLabel, labelColumn)
	}
	if err := schema.CheckNames(featureNames); err != nil {
		return nil, err
	}

	ds := New()
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		label, err := parseLabel(fields[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		record := make(features.Record, len(featureIdx))
		for name, idx := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, name, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: column %s: %w: %q is not finite", line, name, features.ErrSchemaMismatch, fields[idx])
			}
			record[name] = v
		}

		ds.Add(Row{
			Track: catalog.Track{
				ID:         field(fields, meta, "track_id"),
				Title:      field(fields, meta, "track_name"),
				Artist:     field(fields, meta, "artist"),
				PreviewURL: field(fields, meta, "preview_url"),
			},
			Features: record,
			Label:    label,
		})
	}

	return ds, nil
}

func field(fields []string, meta map[string]int, name string) string {
	if idx, ok := meta[name]; ok {
		return fields[idx]
	}
	return ""
}

// parseLabel accepts "0"/"1" and the float forms "0.0"/"1.0"
func parseLabel(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unlabeled, ErrMissingLabel
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || (v != Dislike && v != Like) {
		return Unlabeled, fmt.Errorf("%w: %q is not 0 or 1", ErrMissingLabel, raw)
	}
	return int(v), nil
}

// LoadCSV reads a dataset file. A missing file is ErrInsufficientData.
func LoadCSV(path string, schema *features.Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrInsufficientData, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := ReadCSV(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// SaveCSV writes the dataset to path through a temp file and rename, so
// readers never see a half-written file
func SaveCSV(path string, schema *features.Schema, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, schema, d); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
