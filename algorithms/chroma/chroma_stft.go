package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-gusto/algorithms/spectral"
	"github.com/RyanBlaney/sonido-gusto/algorithms/windowing"
	"gonum.org/v1/gonum/stat"
)

// ChromaSTFT folds a power spectrogram onto the 12 pitch classes.
// Bin 0 is C, so every C in every octave lands in the same bin.
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int     // always 12
	minFreq    float64
	maxFreq    float64
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// ComputeChroma computes a chromagram from audio using a centered STFT
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	stftResult, err := cs.stft.ComputeCentered(signal, windowSize, hopSize, cs.sampleRate, windowing.NewPeriodicHann(windowSize))
	if err != nil {
		return nil, err
	}

	return cs.ComputeFromPower(stftResult.Power()), nil
}

// ComputeFromPower maps a Time x Frequency power spectrogram onto chroma
// bins. Each frame is scaled so its strongest bin is 1; silent frames stay
// all zero.
func (cs *ChromaSTFT) ComputeFromPower(power [][]float64) [][]float64 {
	chromagram := make([][]float64, len(power))
	if len(power) == 0 {
		return chromagram
	}

	freqBins := len(power[0])
	fftSize := max((freqBins-1)*2, 1)
	mapping := cs.calculateChromaMapping(freqBins, float64(cs.sampleRate)/float64(fftSize))

	for t, frame := range power {
		chromagram[t] = make([]float64, cs.chromaBins)
		for f, energy := range frame {
			if bin := mapping[f]; bin >= 0 {
				chromagram[t][bin] += energy
			}
		}
		cs.normalizeChromaFrame(chromagram[t])
	}

	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins, -1 outside the band
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % 12) + 12) % 12
	}

	return mapping
}

// frequencyToMIDI: A4 is MIDI note 69
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

func (cs *ChromaSTFT) normalizeChromaFrame(chromaFrame []float64) {
	peak := 0.0
	for _, energy := range chromaFrame {
		peak = math.Max(peak, energy)
	}

	if peak > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= peak
		}
	}
}

// GetChromaLabels returns the chroma bin labels
func (cs *ChromaSTFT) GetChromaLabels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}

// MeanChroma averages a chromagram over time
func (cs *ChromaSTFT) MeanChroma(chromagram [][]float64) []float64 {
	mean := make([]float64, cs.chromaBins)
	if len(chromagram) == 0 {
		return mean
	}

	for _, frame := range chromagram {
		for bin, v := range frame {
			mean[bin] += v
		}
	}
	for bin := range mean {
		mean[bin] /= float64(len(chromagram))
	}
	return mean
}

// EstimateKey correlates the mean chroma profile against rotated major
// and minor key templates and returns the best root and mode.
func (cs *ChromaSTFT) EstimateKey(chromagram [][]float64) (string, string) {
	meanChroma := cs.MeanChroma(chromagram)

	majorProfile := []float64{1.0, 0.2, 0.6, 0.2, 0.8, 0.6, 0.2, 1.0, 0.2, 0.6, 0.2, 0.4}
	minorProfile := []float64{1.0, 0.2, 0.4, 0.6, 0.2, 0.8, 0.2, 0.6, 0.8, 0.2, 0.4, 0.2}

	chromaLabels := cs.GetChromaLabels()
	bestKey := "C"
	bestMode := "major"
	bestCorr := -1.0

	for root := range 12 {
		if corr := profileCorrelation(meanChroma, majorProfile, root); corr > bestCorr {
			bestCorr = corr
			bestKey = chromaLabels[root]
			bestMode = "major"
		}
		if corr := profileCorrelation(meanChroma, minorProfile, root); corr > bestCorr {
			bestCorr = corr
			bestKey = chromaLabels[root]
			bestMode = "minor"
		}
	}

	return bestKey, bestMode
}

// profileCorrelation is the Pearson correlation between chroma and the
// profile rotated so its tonic sits on rootOffset.
func profileCorrelation(chroma, profile []float64, rootOffset int) float64 {
	n := len(profile)
	shifted := make([]float64, n)
	for i := range profile {
		shifted[i] = profile[((i-rootOffset)%n+n)%n]
	}

	corr := stat.Correlation(chroma, shifted, nil)
	if math.IsNaN(corr) {
		return 0.0
	}
	return corr
}
