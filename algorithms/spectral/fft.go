package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp. go-dsp handles any length, including
// non-powers of two.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of a real frame
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}
