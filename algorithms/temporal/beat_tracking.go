package temporal

import (
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
	"github.com/RyanBlaney/sonido-gusto/algorithms/windowing"
)

// BeatTracker places beats on an onset strength envelope with dynamic
// programming: each beat is rewarded by onset strength and penalised by
// how far its spacing drifts from the global tempo period.
type BeatTracker struct {
	sampleRate int
	hopSize    int
	tightness  float64
	trim       bool
}

// NewBeatTracker creates a tracker with tightness 100 and edge trimming on
func NewBeatTracker(sampleRate, hopSize int) *BeatTracker {
	return &BeatTracker{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		tightness:  100.0,
		trim:       true,
	}
}

// Track returns beat positions as frame indices in ascending order. A zero
// tempo or an envelope with no onsets yields no beats.
func (bt *BeatTracker) Track(onset []float64, bpm float64) []int {
	if bpm <= 0 || len(onset) == 0 || !hasOnsets(onset) {
		return nil
	}

	framesPerSecond := float64(bt.sampleRate) / float64(bt.hopSize)
	period := int(math.RoundToEven(60.0 * framesPerSecond / bpm))
	if period < 1 {
		return nil
	}

	localScore := bt.localScore(onset, period)
	cumScore, backlink := bt.dynamicProgram(localScore, period)

	last := lastBeat(cumScore)
	if last < 0 {
		return nil
	}

	beats := []int{last}
	for backlink[beats[len(beats)-1]] >= 0 {
		beats = append(beats, backlink[beats[len(beats)-1]])
	}
	slices.Reverse(beats)

	if bt.trim {
		beats = trimBeats(localScore, beats)
	}

	return beats
}

// BeatTimes converts frame indices to seconds
func (bt *BeatTracker) BeatTimes(frames []int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f*bt.hopSize) / float64(bt.sampleRate)
	}
	return times
}

func hasOnsets(onset []float64) bool {
	for _, v := range onset {
		if v != 0 {
			return true
		}
	}
	return false
}

// localScore smooths the unit-variance envelope with a Gaussian one beat
// period wide on either side.
func (bt *BeatTracker) localScore(onset []float64, period int) []float64 {
	std := common.StandardDeviation(onset)
	if std == 0 {
		std = 1
	}

	normalized := make([]float64, len(onset))
	for i, v := range onset {
		normalized[i] = v / std
	}

	kernel := make([]float64, 2*period+1)
	for i := range kernel {
		k := float64(i-period) * 32.0 / float64(period)
		kernel[i] = math.Exp(-0.5 * k * k)
	}

	return common.ConvolveSame(normalized, kernel)
}

// dynamicProgram fills the cumulative score and the best predecessor of
// every frame. Predecessors are searched between two periods and half a
// period back; frames before the first confident onset get no predecessor.
func (bt *BeatTracker) dynamicProgram(localScore []float64, period int) ([]float64, []int) {
	windowStart := -2 * period
	windowEnd := -int(math.RoundToEven(float64(period) / 2))

	offsets := make([]int, 0, windowEnd-windowStart+1)
	txwt := make([]float64, 0, windowEnd-windowStart+1)
	for off := windowStart; off <= windowEnd; off++ {
		l := math.Log(-float64(off) / float64(period))
		offsets = append(offsets, off)
		txwt = append(txwt, -bt.tightness*l*l)
	}

	scoreThresh := 0.01 * slices.Max(localScore)

	cumScore := make([]float64, len(localScore))
	backlink := make([]int, len(localScore))
	firstBeat := true

	for i := range localScore {
		bestScore := math.Inf(-1)
		bestLoc := -1
		for j, off := range offsets {
			prev := i + off
			score := txwt[j]
			if prev >= 0 {
				score += cumScore[prev]
			}
			if score > bestScore {
				bestScore = score
				bestLoc = prev
			}
		}

		cumScore[i] = localScore[i] + bestScore

		if firstBeat && localScore[i] < scoreThresh {
			backlink[i] = -1
		} else {
			backlink[i] = bestLoc
			firstBeat = false
		}
	}

	return cumScore, backlink
}

// lastBeat is the latest local maximum of the cumulative score that clears
// half the median of all local maxima.
func lastBeat(cumScore []float64) int {
	peaks := common.LocalMax(cumScore)

	var peakScores []float64
	for i, isPeak := range peaks {
		if isPeak {
			peakScores = append(peakScores, cumScore[i])
		}
	}
	if len(peakScores) == 0 {
		return -1
	}

	median := common.Median(peakScores)
	for i := len(cumScore) - 1; i >= 0; i-- {
		if peaks[i] && cumScore[i]*2 > median {
			return i
		}
	}

	best := 0
	for i, v := range cumScore {
		if peaks[i] && v > cumScore[best] {
			best = i
		}
	}
	return best
}

// trimBeats drops weak beats at either end, where the envelope fades in or
// out and the tracker tends to extrapolate.
func trimBeats(localScore []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}

	beatScores := make([]float64, len(beats))
	for i, b := range beats {
		beatScores[i] = localScore[b]
	}

	smooth := common.ConvolveSame(beatScores, windowing.NewHann(5, true).Coefficients())

	sumSquares := 0.0
	for _, v := range smooth {
		sumSquares += v * v
	}
	threshold := 0.5 * math.Sqrt(sumSquares/float64(len(smooth)))

	start, end := 0, len(beats)
	for start < end && smooth[start] <= threshold {
		start++
	}
	for end > start && smooth[end-1] <= threshold {
		end--
	}

	return beats[start:end]
}
