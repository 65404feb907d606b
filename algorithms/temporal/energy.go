package temporal

import (
	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
)

// Energy computes frame-wise root-mean-square energy, a loudness proxy
type Energy struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize, sampleRate int) *Energy {
	return &Energy{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// ComputeShortTimeEnergy calculates RMS energy for overlapping, uncentered
// frames. Trailing samples that do not fill a frame are ignored.
func (e *Energy) ComputeShortTimeEnergy(signal []float64) []float64 {
	if len(signal) < e.frameSize || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-e.frameSize)/e.hopSize + 1
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start := i * e.hopSize
		energies[i] = common.RMS(signal[start : start+e.frameSize])
	}

	return energies
}

// ComputeRMSCentered zero-pads the signal by half a frame on each side so
// frame t is centered on sample t*hopSize, matching the STFT frame grid
func (e *Energy) ComputeRMSCentered(signal []float64) []float64 {
	frames := common.CenteredFrames(signal, e.frameSize, e.hopSize, common.PadConstant)
	energies := make([]float64, len(frames))

	for t, frame := range frames {
		energies[t] = common.RMS(frame)
	}

	return energies
}
