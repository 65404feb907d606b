package spectral

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/algorithms/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 22050

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / testRate)
	}
	return out
}

func centeredSTFT(t *testing.T, signal []float64) *STFTResult {
	t.Helper()
	res, err := NewSTFT().ComputeCentered(signal, 2048, 512, testRate, windowing.NewPeriodicHann(2048))
	require.NoError(t, err)
	return res
}

func TestSTFTCenteredShape(t *testing.T) {
	res := centeredSTFT(t, sine(440, testRate))

	assert.Equal(t, 1+testRate/512, res.TimeFrames)
	assert.Equal(t, 1025, res.FreqBins)
	require.Len(t, res.Magnitude, res.TimeFrames)
	assert.Len(t, res.Magnitude[0], 1025)
}

func TestSTFTRejectsEmptySignal(t *testing.T) {
	_, err := NewSTFT().ComputeCentered(nil, 2048, 512, testRate, windowing.NewPeriodicHann(2048))
	assert.Error(t, err)
}

func TestSpectralCentroidOfSine(t *testing.T) {
	res := centeredSTFT(t, sine(1000, testRate))
	centroids := NewSpectralCentroid(testRate).ComputeFrames(res.Magnitude)

	assert.InDelta(t, 1000, centroids[len(centroids)/2], 50)
}

func TestSpectralCentroidSilence(t *testing.T) {
	assert.Zero(t, NewSpectralCentroid(testRate).Compute(make([]float64, 1025)))
}

func TestSpectralBandwidthNarrowForSine(t *testing.T) {
	res := centeredSTFT(t, sine(1000, testRate))
	centroids := NewSpectralCentroid(testRate).ComputeFrames(res.Magnitude)
	bandwidths := NewSpectralBandwidth(testRate).ComputeFrames(res.Magnitude, centroids)

	require.Len(t, bandwidths, len(centroids))
	assert.Less(t, bandwidths[len(bandwidths)/2], 300.0)
	assert.Nil(t, NewSpectralBandwidth(testRate).ComputeFrames(res.Magnitude, centroids[:1]))
}

func TestSpectralRolloffAboveSine(t *testing.T) {
	res := centeredSTFT(t, sine(1000, testRate))
	rolloff := NewSpectralRolloff(testRate).ComputeFrames(res.Magnitude, 0.85)

	mid := rolloff[len(rolloff)/2]
	assert.GreaterOrEqual(t, mid, 950.0)
	assert.Less(t, mid, 1100.0)
}

func TestSpectralContrastBands(t *testing.T) {
	sc := NewSpectralContrast(testRate, 7)
	assert.Equal(t, 7, sc.NumBands())
	assert.Equal(t, []float64{0, 200, 400, 800, 1600, 3200, 6400, 11025}, sc.BandFrequencies())

	res := centeredSTFT(t, sine(1000, testRate))
	contrast := sc.ComputeFrames(res.Magnitude)
	require.Len(t, contrast, res.TimeFrames)
	require.Len(t, contrast[0], 7)

	// 1 kHz sits in the 800-1600 band, which should have the most contrast
	mid := contrast[len(contrast)/2]
	for band, v := range mid {
		if band != 3 {
			assert.Greater(t, mid[3], v, "band %d", band)
		}
	}
}

func TestPowerToDBFloorAndClip(t *testing.T) {
	db := PowerToDB([][]float64{{1, 0, 1e-3}}, DefaultAmin, DefaultTopDB)

	assert.InDelta(t, 0.0, db[0][0], 1e-12)
	assert.InDelta(t, -80.0, db[0][1], 1e-12)
	assert.InDelta(t, -30.0, db[0][2], 1e-9)

	unclipped := PowerToDB([][]float64{{1, 0}}, DefaultAmin, 0)
	assert.InDelta(t, -100.0, unclipped[0][1], 1e-12)
}

func TestMelFilterBankShape(t *testing.T) {
	ms := NewMelScale()
	bank := ms.CreateMelFilterBank(40, 2048, testRate, 0, testRate/2)

	require.Len(t, bank, 40)
	assert.Len(t, bank[0], 1025)
	assert.InDelta(t, 1000.0, ms.MelToHz(ms.HzToMel(1000)), 1e-9)
}

func TestMFCCShape(t *testing.T) {
	res := centeredSTFT(t, sine(440, testRate))

	mfcc := NewMFCC(testRate, 13)
	require.NoError(t, mfcc.Initialize(2048))
	frames, err := mfcc.ComputeFrames(res.Power())
	require.NoError(t, err)

	require.Len(t, frames, res.TimeFrames)
	for _, frame := range frames {
		require.Len(t, frame, 13)
		for _, v := range frame {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestSpectralFluxRectifiedMean(t *testing.T) {
	flux := NewSpectralFlux().ComputeRectifiedMean([][]float64{{0, 0}, {2, -2}, {1, 1}})
	assert.Equal(t, []float64{0, 1, 1.5}, flux)
}

func TestZeroCrossingRate(t *testing.T) {
	zcr := NewZeroCrossingRate(testRate)
	assert.InDelta(t, 1.0, zcr.ComputeNormalized([]float64{1, -1, 1, -1}), 1e-12)
	assert.Zero(t, zcr.ComputeNormalized([]float64{0, 1, 2}))

	rates := zcr.ComputeFramesCentered(sine(440, testRate))
	assert.Len(t, rates, 1+testRate/512)
	// two crossings per period
	assert.InDelta(t, 2*440.0/testRate, rates[len(rates)/2], 0.005)
}
