package common

import (
	"math"
)

// InterpolationType defines interpolation method
type InterpolationType int

const (
	Linear InterpolationType = iota
	Cubic
)

// Interpolator reconstructs a signal between sample points
type Interpolator struct {
	method InterpolationType
}

// NewInterpolator creates a new interpolator
func NewInterpolator(method InterpolationType) *Interpolator {
	return &Interpolator{
		method: method,
	}
}

// Interpolate evaluates data at a fractional index
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	switch interp.method {
	case Cubic:
		return interp.cubicInterpolate(data, index)
	default:
		return interp.linearInterpolate(data, index)
	}
}

func (interp *Interpolator) linearInterpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i] + frac*(data[i+1]-data[i])
}

// cubicInterpolate uses a Catmull-Rom spline through the four neighbours
func (interp *Interpolator) cubicInterpolate(data []float64, index float64) float64 {
	if len(data) < 4 || index < 1 || index >= float64(len(data)-2) {
		return interp.linearInterpolate(data, index)
	}

	i := int(index)
	frac := index - float64(i)

	y0 := data[i-1]
	y1 := data[i]
	y2 := data[i+1]
	y3 := data[i+2]

	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*frac*frac*frac + a1*frac*frac + a2*frac + a3
}

// ResampleSignal converts signal from originalRate to targetRate
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 {
		return signal
	}
	if originalRate == targetRate {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(math.Floor(float64(len(signal)) / ratio))

	if newLength <= 0 {
		return []float64{}
	}

	resampled := make([]float64, newLength)

	for i := range resampled {
		sourceIndex := float64(i) * ratio
		resampled[i] = interp.Interpolate(signal, sourceIndex)
	}

	return resampled
}
