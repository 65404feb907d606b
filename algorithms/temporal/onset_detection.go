package temporal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/algorithms/spectral"
	"github.com/RyanBlaney/sonido-gusto/algorithms/windowing"
)

// OnsetDetection builds an onset strength envelope: the band-averaged,
// half-wave rectified rise of a log-power mel spectrogram between
// consecutive frames.
type OnsetDetection struct {
	sampleRate  int
	numMelBands int
	melScale    *spectral.MelScale
	flux        *spectral.SpectralFlux
	stft        *spectral.STFT

	filterBank [][]float64
	fftSize    int
}

// NewOnsetDetection creates an onset detector with 128 mel bands
func NewOnsetDetection(sampleRate int) *OnsetDetection {
	return &OnsetDetection{
		sampleRate:  sampleRate,
		numMelBands: 128,
		melScale:    spectral.NewMelScale(),
		flux:        spectral.NewSpectralFlux(),
		stft:        spectral.NewSTFT(),
	}
}

// Strength computes the envelope straight from audio using a centered,
// Hann-windowed STFT
func (od *OnsetDetection) Strength(signal []float64, windowSize, hopSize int) ([]float64, error) {
	stftResult, err := od.stft.ComputeCentered(signal, windowSize, hopSize, od.sampleRate, windowing.NewPeriodicHann(windowSize))
	if err != nil {
		return nil, fmt.Errorf("onset STFT: %w", err)
	}
	return od.StrengthFromPower(stftResult.Power()), nil
}

// StrengthFromPower computes the envelope from a Time x Frequency power
// spectrogram. The output has one value per frame; frame 0 is always 0.
func (od *OnsetDetection) StrengthFromPower(power [][]float64) []float64 {
	if len(power) == 0 || len(power[0]) < 2 {
		return make([]float64, len(power))
	}

	fftSize := (len(power[0]) - 1) * 2
	if od.fftSize != fftSize {
		od.filterBank = od.melScale.CreateMelFilterBank(od.numMelBands, fftSize, od.sampleRate, 0, float64(od.sampleRate)/2)
		od.fftSize = fftSize
	}

	mel := od.melScale.MelSpectrogram(power, od.filterBank)
	melDB := spectral.PowerToDB(mel, spectral.DefaultAmin, spectral.DefaultTopDB)

	return od.flux.ComputeRectifiedMean(melDB)
}
