package spectral

import (
	"math"
)

// SpectralBandwidth computes the magnitude-weighted standard deviation of
// frequency around the centroid (second-order bandwidth)
type SpectralBandwidth struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralBandwidth creates a new spectral bandwidth calculator
func NewSpectralBandwidth(sampleRate int) *SpectralBandwidth {
	return &SpectralBandwidth{
		sampleRate: sampleRate,
	}
}

// Compute calculates spectral bandwidth for a single spectrum given its centroid
func (sb *SpectralBandwidth) Compute(spectrum []float64, centroid float64) float64 {
	if len(spectrum) < 2 {
		return 0.0
	}

	if len(sb.freqBins) != len(spectrum) {
		sb.freqBins = binFrequencies(len(spectrum), sb.sampleRate)
	}

	numerator := 0.0
	denominator := 0.0

	for i, mag := range spectrum {
		diff := sb.freqBins[i] - centroid
		numerator += diff * diff * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}

	return math.Sqrt(numerator / denominator)
}

// ComputeFrames pairs each frame with its centroid. Mismatched lengths
// yield nil.
func (sb *SpectralBandwidth) ComputeFrames(spectrogram [][]float64, centroids []float64) []float64 {
	if len(centroids) != len(spectrogram) {
		return nil
	}

	bandwidths := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		bandwidths[t] = sb.Compute(spectrum, centroids[t])
	}

	return bandwidths
}
