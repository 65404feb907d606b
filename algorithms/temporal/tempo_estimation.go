package temporal

import (
	"math"
)

// TempoEstimation picks the dominant tempo from the autocorrelation of an
// onset strength envelope, weighted by a log-normal prior centred on
// 120 BPM with one octave of spread.
type TempoEstimation struct {
	sampleRate int
	hopSize    int
	startBPM   float64
	stdBPM     float64 // prior spread, in octaves
	minBPM     float64
	maxBPM     float64
	maxLag     int // autocorrelation horizon in frames
}

// NewTempoEstimation searches 30-320 BPM over an 384-frame horizon
func NewTempoEstimation(sampleRate, hopSize int) *TempoEstimation {
	return &TempoEstimation{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		startBPM:   120.0,
		stdBPM:     1.0,
		minBPM:     30.0,
		maxBPM:     320.0,
		maxLag:     384,
	}
}

// EstimateFromOnsets returns the tempo in BPM, or 0 when the envelope has
// no energy or is too short to hold one beat period.
func (te *TempoEstimation) EstimateFromOnsets(onset []float64) float64 {
	if len(onset) < 2 || te.hopSize <= 0 || te.sampleRate <= 0 {
		return 0.0
	}

	maxLag := min(len(onset)-1, te.maxLag)
	autocorr := te.calculateAutocorrelation(onset, maxLag+1)
	if len(autocorr) == 0 || autocorr[0] <= 0 {
		return 0.0
	}

	framesPerMinute := 60.0 * float64(te.sampleRate) / float64(te.hopSize)

	bestScore := math.Inf(-1)
	bestTempo := 0.0
	for lag := 1; lag <= maxLag; lag++ {
		bpm := framesPerMinute / float64(lag)
		if bpm < te.minBPM || bpm > te.maxBPM {
			continue
		}

		score := math.Log(1e-10+math.Max(autocorr[lag], 0)) + te.logPrior(bpm)
		if score > bestScore {
			bestScore = score
			bestTempo = bpm
		}
	}

	return bestTempo
}

func (te *TempoEstimation) logPrior(bpm float64) float64 {
	z := math.Log2(bpm/te.startBPM) / te.stdBPM
	return -0.5 * z * z
}

// calculateAutocorrelation returns the lag-averaged autocorrelation for
// lags [0, maxLag), normalized so lag 0 is 1. An all-zero signal yields
// all zeros.
func (te *TempoEstimation) calculateAutocorrelation(signal []float64, maxLag int) []float64 {
	if maxLag > len(signal) {
		maxLag = len(signal)
	}

	autocorr := make([]float64, maxLag)

	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		count := 0

		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
			count++
		}

		if count > 0 {
			autocorr[lag] = sum / float64(count)
		}
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		norm := autocorr[0]
		for i := range autocorr {
			autocorr[i] /= norm
		}
	}

	return autocorr
}
