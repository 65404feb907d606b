package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from power spectra:
// mel filter bank, decibel scaling with an 80 dB floor below the peak,
// then an orthonormal DCT-II keeping the first coefficients.
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	sampleRate      int
	lowFreq         float64
	highFreq        float64
	topDB           float64

	melScale   *MelScale
	filterBank [][]float64
	dctMatrix  [][]float64
	fftSize    int
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // default 13
	NumMelFilters   int     `json:"num_mel_filters"`  // default 40
	LowFreq         float64 `json:"low_freq"`         // default 0
	HighFreq        float64 `json:"high_freq"`        // default sampleRate/2
	TopDB           float64 `json:"top_db"`           // default 80
}

// NewMFCC creates a new MFCC computer with default parameters
func NewMFCC(sampleRate, numCoefficients int) *MFCC {
	return NewMFCCWithParams(sampleRate, MFCCParams{NumCoefficients: numCoefficients})
}

// NewMFCCWithParams creates a new MFCC computer with custom parameters
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 40
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}
	if params.TopDB <= 0 {
		params.TopDB = DefaultTopDB
	}

	return &MFCC{
		numCoefficients: params.NumCoefficients,
		numMelFilters:   params.NumMelFilters,
		sampleRate:      sampleRate,
		lowFreq:         params.LowFreq,
		highFreq:        params.HighFreq,
		topDB:           params.TopDB,
		melScale:        NewMelScale(),
	}
}

// Initialize prepares the filter bank and DCT basis for the given FFT size
func (mfcc *MFCC) Initialize(fftSize int) error {
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}
	if mfcc.numCoefficients > mfcc.numMelFilters {
		return fmt.Errorf("%d coefficients requested from %d mel filters", mfcc.numCoefficients, mfcc.numMelFilters)
	}

	mfcc.filterBank = mfcc.melScale.CreateMelFilterBank(
		mfcc.numMelFilters,
		fftSize,
		mfcc.sampleRate,
		mfcc.lowFreq,
		mfcc.highFreq,
	)
	if len(mfcc.filterBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	mfcc.createDCTMatrix()
	mfcc.fftSize = fftSize
	return nil
}

// ComputeFrames returns a Time x Coefficient matrix for a power spectrogram
func (mfcc *MFCC) ComputeFrames(powerSpectrogram [][]float64) ([][]float64, error) {
	if len(powerSpectrogram) == 0 {
		return [][]float64{}, nil
	}
	if len(powerSpectrogram[0]) < 2 {
		return nil, fmt.Errorf("power spectrum too short: %d bins", len(powerSpectrogram[0]))
	}

	fftSize := (len(powerSpectrogram[0]) - 1) * 2
	if mfcc.fftSize != fftSize {
		if err := mfcc.Initialize(fftSize); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	mel := mfcc.melScale.MelSpectrogram(powerSpectrogram, mfcc.filterBank)
	logMel := PowerToDB(mel, DefaultAmin, mfcc.topDB)

	frames := make([][]float64, len(logMel))
	for t, frame := range logMel {
		frames[t] = mfcc.applyDCT(frame)
	}

	return frames, nil
}

// createDCTMatrix creates an orthonormal DCT-II basis
func (mfcc *MFCC) createDCTMatrix() {
	mfcc.dctMatrix = make([][]float64, mfcc.numCoefficients)

	for k := 0; k < mfcc.numCoefficients; k++ {
		mfcc.dctMatrix[k] = make([]float64, mfcc.numMelFilters)

		scale := math.Sqrt(2.0 / float64(mfcc.numMelFilters))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(mfcc.numMelFilters))
		}

		for n := 0; n < mfcc.numMelFilters; n++ {
			mfcc.dctMatrix[k][n] = scale * math.Cos(math.Pi*float64(k)*(float64(n)+0.5)/float64(mfcc.numMelFilters))
		}
	}
}

func (mfcc *MFCC) applyDCT(logMelSpectrum []float64) []float64 {
	coeffs := make([]float64, mfcc.numCoefficients)

	for k, basis := range mfcc.dctMatrix {
		sum := 0.0
		for n, v := range logMelSpectrum {
			sum += v * basis[n]
		}
		coeffs[k] = sum
	}

	return coeffs
}
