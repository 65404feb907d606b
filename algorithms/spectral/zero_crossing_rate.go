package spectral

import (
	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
)

// ZeroCrossingRate measures how often the waveform changes sign, a proxy for
// noisiness and percussiveness
type ZeroCrossingRate struct {
	sampleRate int
	frameSize  int
	hopSize    int
}

// NewZeroCrossingRate creates a calculator with 2048-sample frames and a
// 512-sample hop
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return NewZeroCrossingRateWithParams(sampleRate, 2048, 512)
}

// NewZeroCrossingRateWithParams creates calculator with custom parameters
func NewZeroCrossingRateWithParams(sampleRate, frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

// ComputeNormalized returns crossings divided by the maximum possible
// count (len-1), so the result lies in [0, 1]. Zero counts as positive.
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(frame)-1)
}

// ComputeFramesCentered frames the signal with edge padding so frame t is
// centered on sample t*hopSize, matching the STFT frame grid
func (zcr *ZeroCrossingRate) ComputeFramesCentered(signal []float64) []float64 {
	frames := common.CenteredFrames(signal, zcr.frameSize, zcr.hopSize, common.PadEdge)
	rates := make([]float64, len(frames))

	for t, frame := range frames {
		rates[t] = zcr.ComputeNormalized(frame)
	}

	return rates
}
