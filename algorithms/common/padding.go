package common

// PadMode selects how samples outside a signal are synthesized.
type PadMode int

const (
	// PadConstant fills with zeros
	PadConstant PadMode = iota
	// PadReflect mirrors around the edge sample without repeating it.
	// Falls back to PadConstant when the signal is too short to mirror.
	PadReflect
	// PadEdge repeats the edge sample
	PadEdge
)

// Pad extends signal by left and right samples
func Pad(signal []float64, left, right int, mode PadMode) []float64 {
	n := len(signal)
	out := make([]float64, left+n+right)
	copy(out[left:], signal)
	if n == 0 {
		return out
	}

	if mode == PadReflect && (left >= n || right >= n) {
		mode = PadConstant
	}

	switch mode {
	case PadReflect:
		for i := 1; i <= left; i++ {
			out[left-i] = signal[i]
		}
		for i := 1; i <= right; i++ {
			out[left+n-1+i] = signal[n-1-i]
		}
	case PadEdge:
		for i := 0; i < left; i++ {
			out[i] = signal[0]
		}
		for i := 0; i < right; i++ {
			out[left+n+i] = signal[n-1]
		}
	}

	return out
}

// FrameCount is the number of frames a centered analysis produces:
// one frame per hop plus the frame anchored at sample zero.
func FrameCount(numSamples, hopSize int) int {
	if numSamples <= 0 || hopSize <= 0 {
		return 0
	}
	return 1 + numSamples/hopSize
}

// CenteredFrames pads signal by frameSize/2 on both sides and slices it
// into overlapping frames, so frame t is centered on sample t*hopSize.
// Frames alias the padded buffer.
func CenteredFrames(signal []float64, frameSize, hopSize int, mode PadMode) [][]float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return [][]float64{}
	}

	half := frameSize / 2
	padded := Pad(signal, half, half, mode)

	numFrames := (len(padded)-frameSize)/hopSize + 1
	frames := make([][]float64, numFrames)
	for t := range numFrames {
		start := t * hopSize
		frames[t] = padded[start : start+frameSize]
	}
	return frames
}
