package dataset

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when there are too few rows to train
	// on, or the dataset file does not exist
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingLabel is returned for a row without a 0/1 label
	ErrMissingLabel = errors.New("missing label")
)

const (
	Dislike = 0
	Like    = 1
	// Unlabeled marks a row whose label is not known yet
	Unlabeled = -1
)

// Row is one labeled track
type Row struct {
	Track    catalog.Track   `json:"track"`
	Features features.Record `json:"features"`
	Label    int             `json:"label"`
}

// Dataset is an ordered list of rows. Order is preserved through CSV
// round trips and matrix building.
type Dataset struct {
	Rows []Row `json:"rows"`
}

// New creates a dataset holding rows
func New(rows ...Row) *Dataset {
	return &Dataset{Rows: rows}
}

// Add appends a row
func (d *Dataset) Add(row Row) {
	d.Rows = append(d.Rows, row)
}

// Append appends every row of other
func (d *Dataset) Append(other *Dataset) {
	if other != nil {
		d.Rows = append(d.Rows, other.Rows...)
	}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Labels returns the label column
func (d *Dataset) Labels() []int {
	labels := make([]int, len(d.Rows))
	for i, row := range d.Rows {
		labels[i] = row.Label
	}
	return labels
}

// Counts returns how many rows carry each label
func (d *Dataset) Counts() (dislikes, likes int) {
	for _, row := range d.Rows {
		switch row.Label {
		case Dislike:
			dislikes++
		case Like:
			likes++
		}
	}
	return dislikes, likes
}

// Subset returns a dataset of the rows at indices, in that order
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([]Row, len(indices))
	for i, idx := range indices {
		rows[i] = d.Rows[idx]
	}
	return New(rows...)
}

// Validate checks there are at least minRows rows and every label is 0 or 1
func (d *Dataset) Validate(minRows int) error {
	if d.Len() < minRows {
		return fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, d.Len(), minRows)
	}
	for i, row := range d.Rows {
		if row.Label != Dislike && row.Label != Like {
			return fmt.Errorf("%w: row %d (%s) has label %d", ErrMissingLabel, i, row.Track.ID, row.Label)
		}
	}
	return nil
}

// Matrix projects every row onto schema, returning an n x len(schema)
// matrix and the labels. Any row that does not match the schema fails
// the whole call.
func (d *Dataset) Matrix(schema *features.Schema) (*mat.Dense, []int, error) {
	if d.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: empty dataset", ErrInsufficientData)
	}

	data := make([]float64, 0, d.Len()*schema.Len())
	for i, row := range d.Rows {
		vec, err := schema.Project(row.Features)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d (%s): %w", i, row.Track.ID, err)
		}
		data = append(data, vec...)
	}

	return mat.NewDense(d.Len(), schema.Len(), data), d.Labels(), nil
}
