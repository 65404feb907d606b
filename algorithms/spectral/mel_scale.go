package spectral

import (
	"math"
)

// Reference floor and dynamic range for power-to-decibel conversion
const (
	DefaultAmin  = 1e-10
	DefaultTopDB = 80.0
)

// MelScale provides mel frequency conversion utilities
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank builds numFilters triangular filters, equally spaced on
// the mel axis between lowFreq and highFreq, over fftSize/2+1 bins. Filters
// narrower than one bin stay all-zero.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	melPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}

	binPoints := make([]int, len(melPoints))
	for i, mel := range melPoints {
		hz := ms.MelToHz(mel)
		binPoints[i] = int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(binPoints[i], fftSize/2)
	}

	filterBank := make([][]float64, numFilters)
	for i := range filterBank {
		filterBank[i] = make([]float64, fftSize/2+1)
	}

	for m := 1; m <= numFilters; m++ {
		leftBin := binPoints[m-1]
		centerBin := binPoints[m]
		rightBin := binPoints[m+1]

		// Rising edge
		for k := leftBin; k < centerBin; k++ {
			filterBank[m-1][k] = float64(k-leftBin) / float64(centerBin-leftBin)
		}

		// Falling edge
		for k := centerBin; k < rightBin; k++ {
			filterBank[m-1][k] = float64(rightBin-k) / float64(rightBin-centerBin)
		}
	}

	return filterBank
}

// ApplyFilterBank projects one power spectrum onto the filter bank
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// MelSpectrogram applies the filter bank to every frame of a power spectrogram
func (ms *MelScale) MelSpectrogram(powerSpectrogram [][]float64, filterBank [][]float64) [][]float64 {
	mel := make([][]float64, len(powerSpectrogram))
	for t, frame := range powerSpectrogram {
		mel[t] = ms.ApplyFilterBank(frame, filterBank)
	}
	return mel
}

// PowerToDB converts a power spectrogram to decibels relative to 1.0,
// flooring at amin and clipping everything more than topDB below the
// global peak. topDB <= 0 disables clipping.
func PowerToDB(power [][]float64, amin, topDB float64) [][]float64 {
	db := make([][]float64, len(power))
	peak := math.Inf(-1)

	for t, frame := range power {
		db[t] = make([]float64, len(frame))
		for f, p := range frame {
			v := 10.0 * math.Log10(math.Max(p, amin))
			db[t][f] = v
			peak = math.Max(peak, v)
		}
	}

	if topDB > 0 && !math.IsInf(peak, -1) {
		floor := peak - topDB
		for _, frame := range db {
			for f := range frame {
				frame[f] = math.Max(frame[f], floor)
			}
		}
	}

	return db
}
