package windowing

import (
	"fmt"
	"math"
)

// Hann is a precomputed Hann window. Coefficients are read-only after
// construction, so one window may be shared by concurrent STFT workers.
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHann creates a new Hann window. Spectral analysis wants the periodic
// form (symmetric=false); filter design and smoothing want the symmetric one.
func NewHann(size int, symmetric bool) *Hann {
	h := &Hann{
		size:      size,
		symmetric: symmetric,
	}
	h.generate()
	return h
}

// NewPeriodicHann is the DFT-even window used for STFT frames.
func NewPeriodicHann(size int) *Hann {
	return NewHann(size, false)
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)
	if h.size == 1 {
		h.coefficients[0] = 1
		return
	}

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	for i := range h.size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
}

// ApplyInPlace multiplies signal by the window
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i, c := range h.coefficients {
		signal[i] *= c
	}

	return nil
}

// Coefficients returns a copy of the window coefficients
func (h *Hann) Coefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// Size returns the window length
func (h *Hann) Size() int {
	return h.size
}
