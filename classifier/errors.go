package classifier

import (
	"errors"

	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
)

var (
	ErrInsufficientData = dataset.ErrInsufficientData
	ErrMissingLabel     = dataset.ErrMissingLabel
	ErrSchemaMismatch   = features.ErrSchemaMismatch

	// ErrPairMismatch is returned when a scaler and a classifier that were
	// not fitted together are loaded as one pair
	ErrPairMismatch = errors.New("scaler and classifier are not a fitted pair")
)
