package spectral

// SpectralFlux measures frame-to-frame spectral change
type SpectralFlux struct {
	lag int
}

// NewSpectralFlux compares each frame with the one immediately before it
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{lag: 1}
}

// ComputeRectifiedMean returns, per frame, the mean over bins of the
// half-wave rectified difference with the frame lag steps earlier. Frames
// without a predecessor are zero, so the output has one value per input
// frame. Feeding a log-power mel spectrogram yields an onset strength
// envelope.
func (sf *SpectralFlux) ComputeRectifiedMean(spectrogram [][]float64) []float64 {
	flux := make([]float64, len(spectrogram))

	for t := sf.lag; t < len(spectrogram); t++ {
		cur, prev := spectrogram[t], spectrogram[t-sf.lag]
		if len(cur) == 0 {
			continue
		}

		sum := 0.0
		for f := range cur {
			if diff := cur[f] - prev[f]; diff > 0 {
				sum += diff
			}
		}
		flux[t] = sum / float64(len(cur))
	}

	return flux
}
