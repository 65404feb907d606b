package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTResult holds a magnitude spectrogram
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // windowSize/2 + 1
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Hz per bin
	TimeResolution float64     `json:"time_resolution"` // seconds per frame
}

// Power returns |X|^2 for every cell of the spectrogram
func (r *STFTResult) Power() [][]float64 {
	power := make([][]float64, len(r.Magnitude))
	for t, frame := range r.Magnitude {
		power[t] = make([]float64, len(frame))
		for f, mag := range frame {
			power[t][f] = mag * mag
		}
	}
	return power
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// ComputeCentered pads the signal by windowSize/2 on both sides (mirrored
// when the signal is long enough, zeros otherwise) so frame t is centered
// on sample t*hopSize. The frame count is 1 + len(signal)/hopSize.
func (s *STFT) ComputeCentered(signal []float64, windowSize, hopSize, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	half := windowSize / 2
	padded := common.Pad(signal, half, half, common.PadReflect)
	return s.ComputeWithWindow(padded, windowSize, hopSize, sampleRate, window)
}

// ComputeWithWindow computes the STFT of uncentered frames on a worker pool.
// Each frame is independent, so the output does not depend on scheduling.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if len(signal) < windowSize || numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	// surface a mismatched window before spinning up workers
	if window != nil {
		if err := window.ApplyInPlace(make([]float64, windowSize)); err != nil {
			return nil, fmt.Errorf("invalid window: %w", err)
		}
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, signal[start:start+windowSize])

				if window != nil {
					// length already validated above
					_ = window.ApplyInPlace(frameBuffer)
				}

				spectrum := s.fft.Compute(frameBuffer)
				for i := range freqBins {
					magnitude[frameIdx][i] = cmplx.Abs(spectrum[i])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// getOptimalWorkerCount determines the number of workers for the workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
