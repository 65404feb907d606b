package spectral

import (
	"math"
	"sort"
)

// SpectralContrast measures, per octave band, the level difference in dB
// between spectral peaks and valleys.
//
// Bands: [0, fmin), then octaves [fmin*2^(k-1), fmin*2^k), and a final band
// from the last octave edge up to and including Nyquist. numBands counts
// all of them, so numBands=7 with fmin=200 at 22050 Hz gives edges
// 0, 200, 400, 800, 1600, 3200, 6400, 11025.
type SpectralContrast struct {
	sampleRate int
	numBands   int
	fmin       float64
	quantile   float64
	freqBins   []float64
	bandEdges  []int // bin index where each band starts; last entry = numBins
}

// NewSpectralContrast creates a calculator with a 200 Hz first edge and
// 20% peak/valley quantiles
func NewSpectralContrast(sampleRate int, numBands int) *SpectralContrast {
	return &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   numBands,
		fmin:       200.0,
		quantile:   0.2,
	}
}

// NumBands is the number of contrast values produced per frame
func (sc *SpectralContrast) NumBands() int {
	return sc.numBands
}

// BandFrequencies returns the numBands+1 band edges in Hz
func (sc *SpectralContrast) BandFrequencies() []float64 {
	edges := make([]float64, sc.numBands+1)
	for i := 1; i < sc.numBands; i++ {
		edges[i] = sc.fmin * math.Pow(2, float64(i-1))
	}
	edges[sc.numBands] = float64(sc.sampleRate) / 2.0
	return edges
}

// Compute calculates spectral contrast for a single magnitude spectrum
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) []float64 {
	contrast := make([]float64, sc.numBands)
	if len(magnitudeSpectrum) < 2 {
		return contrast
	}

	if len(sc.freqBins) != len(magnitudeSpectrum) {
		sc.initializeBands(len(magnitudeSpectrum))
	}

	for band := range sc.numBands {
		startBin := sc.bandEdges[band]
		endBin := sc.bandEdges[band+1]
		if startBin >= endBin {
			continue
		}

		contrast[band] = sc.calculateBandContrast(magnitudeSpectrum[startBin:endBin])
	}

	return contrast
}

// ComputeFrames returns a Time x Band contrast matrix
func (sc *SpectralContrast) ComputeFrames(spectrogram [][]float64) [][]float64 {
	contrasts := make([][]float64, len(spectrogram))

	for t, magnitudeSpectrum := range spectrogram {
		contrasts[t] = sc.Compute(magnitudeSpectrum)
	}

	return contrasts
}

// calculateBandContrast compares the mean power of the top and bottom
// quantile of bins in the band
func (sc *SpectralContrast) calculateBandContrast(bandSpectrum []float64) float64 {
	sortedPower := make([]float64, len(bandSpectrum))
	for i, mag := range bandSpectrum {
		sortedPower[i] = mag * mag
	}
	sort.Float64s(sortedPower)

	count := max(1, int(sc.quantile*float64(len(sortedPower))))

	valleyEnergy := 0.0
	for _, p := range sortedPower[:count] {
		valleyEnergy += p
	}
	valleyEnergy /= float64(count)

	peakEnergy := 0.0
	for _, p := range sortedPower[len(sortedPower)-count:] {
		peakEnergy += p
	}
	peakEnergy /= float64(count)

	if valleyEnergy < DefaultAmin {
		valleyEnergy = DefaultAmin
	}
	if peakEnergy < DefaultAmin {
		peakEnergy = DefaultAmin
	}

	return 10.0 * math.Log10(peakEnergy/valleyEnergy)
}

// initializeBands maps the band edges onto bin indices
func (sc *SpectralContrast) initializeBands(numBins int) {
	sc.freqBins = binFrequencies(numBins, sc.sampleRate)
	sc.bandEdges = make([]int, sc.numBands+1)

	edgesHz := sc.BandFrequencies()
	for i := 1; i < sc.numBands; i++ {
		sc.bandEdges[i] = sort.SearchFloat64s(sc.freqBins, edgesHz[i])
	}
	sc.bandEdges[sc.numBands] = numBins
}
