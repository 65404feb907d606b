package dataset

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(schema *features.Schema, base float64) features.Record {
	r := make(features.Record, schema.Len())
	for i, name := range schema.Names() {
		r[name] = base + float64(i)/1000
	}
	return r
}

func sample(schema *features.Schema) *Dataset {
	return New(
		Row{Track: catalog.Track{ID: "1", Title: "Humble, Live", Artist: "Kendrick Lamar", PreviewURL: "https://a/1.m4a"}, Features: record(schema, 1), Label: Like},
		Row{Track: catalog.Track{ID: "2", Title: "Photograph", Artist: "Nickelback"}, Features: record(schema, -2.5), Label: Dislike},
	)
}

func TestCounts(t *testing.T) {
	ds := sample(features.DefaultSchema())
	dislikes, likes := ds.Counts()
	assert.Equal(t, 1, dislikes)
	assert.Equal(t, 1, likes)
	assert.Equal(t, []int{1, 0}, ds.Labels())
}

func TestSubsetKeepsIndexOrder(t *testing.T) {
	ds := sample(features.DefaultSchema())

	sub := ds.Subset([]int{1, 0, 1})
	require.Equal(t, 3, sub.Len())
	assert.Equal(t, []int{Dislike, Like, Dislike}, sub.Labels())
	assert.Equal(t, "2", sub.Rows[0].Track.ID)
	assert.Zero(t, ds.Subset(nil).Len())
}

func TestValidate(t *testing.T) {
	schema := features.DefaultSchema()
	assert.NoError(t, sample(schema).Validate(2))
	assert.ErrorIs(t, sample(schema).Validate(3), ErrInsufficientData)

	ds := sample(schema)
	ds.Rows[1].Label = Unlabeled
	assert.ErrorIs(t, ds.Validate(2), ErrMissingLabel)
}

func TestMatrix(t *testing.T) {
	schema := features.DefaultSchema()
	x, y, err := sample(schema).Matrix(schema)
	require.NoError(t, err)

	rows, cols := x.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 257, cols)
	assert.Equal(t, []int{1, 0}, y)
	assert.InDelta(t, -2.5+0.256, x.At(1, 256), 1e-12)
}

func TestMatrixSchemaMismatch(t *testing.T) {
	schema := features.DefaultSchema()
	ds := sample(schema)
	delete(ds.Rows[0].Features, "chroma_5_mean")

	_, _, err := ds.Matrix(schema)
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)
}

func TestCSVRoundTrip(t *testing.T) {
	schema := features.DefaultSchema()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, schema, sample(schema)))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "track_id,track_name,artist,preview_url,tempo,"))
	assert.True(t, strings.HasSuffix(header, ",zcr_max,label"))

	ds, err := ReadCSV(&buf, schema)
	require.NoError(t, err)
	assert.Equal(t, sample(schema), ds)
}

func minimalCSV(schema *features.Schema, extra string, dropLabel bool) string {
	var b strings.Builder
	cols := append([]string{"filename"}, schema.Names()...)
	if extra != "" {
		cols = append(cols, extra)
	}
	if !dropLabel {
		cols = append(cols, "label")
	}
	b.WriteString(strings.Join(cols, ",") + "\n")

	vals := []string{"song.mp3"}
	for range schema.Len() {
		vals = append(vals, "0.5")
	}
	if extra != "" {
		vals = append(vals, "1")
	}
	if !dropLabel {
		vals = append(vals, "1.0")
	}
	b.WriteString(strings.Join(vals, ",") + "\n")
	return b.String()
}

func TestReadCSVStripsMetadata(t *testing.T) {
	schema := features.DefaultSchema()
	ds, err := ReadCSV(strings.NewReader(minimalCSV(schema, "", false)), schema)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, Like, ds.Rows[0].Label)
	assert.Len(t, ds.Rows[0].Features, 257)
}

func TestReadCSVRequiresLabel(t *testing.T) {
	schema := features.DefaultSchema()
	_, err := ReadCSV(strings.NewReader(minimalCSV(schema, "", true)), schema)
	assert.ErrorIs(t, err, ErrMissingLabel)
}

func TestReadCSVRejectsUnknownColumns(t *testing.T) {
	schema := features.DefaultSchema()
	_, err := ReadCSV(strings.NewReader(minimalCSV(schema, "loudness", false)), schema)
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)
}

func TestReadCSVRejectsNonFinite(t *testing.T) {
	schema := features.DefaultSchema()
	tempo, _ := schema.Index("tempo")
	beatMean, _ := schema.Index("beat_interval_mean")

	tests := []struct {
		column string
		index  int
		raw    string
	}{
		{"tempo", tempo, "NaN"},
		{"beat_interval_mean", beatMean, "+Inf"},
		{"tempo", tempo, "-inf"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			lines := strings.Split(strings.TrimSuffix(minimalCSV(schema, "", false), "\n"), "\n")
			fields := strings.Split(lines[1], ",")
			fields[tt.index+1] = tt.raw // after filename
			lines = append(lines, strings.Join(fields, ","))

			_, err := ReadCSV(strings.NewReader(strings.Join(lines, "\n")+"\n"), schema)
			require.ErrorIs(t, err, features.ErrSchemaMismatch)
			assert.Contains(t, err.Error(), "line 3")
			assert.Contains(t, err.Error(), tt.column)
		})
	}
}

func TestParseLabel(t *testing.T) {
	for raw, want := range map[string]int{"0": 0, "1": 1, "1.0": 1, " 0.0 ": 0} {
		got, err := parseLabel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "2", "yes"} {
		_, err := parseLabel(raw)
		assert.ErrorIs(t, err, ErrMissingLabel, fmt.Sprintf("%q", raw))
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), features.DefaultSchema())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSaveAndLoadCSV(t *testing.T) {
	schema := features.DefaultSchema()
	path := filepath.Join(t.TempDir(), "data", "songs.csv")

	require.NoError(t, SaveCSV(path, schema, sample(schema)))
	ds, err := LoadCSV(path, schema)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}
