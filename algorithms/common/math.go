package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the analysis stages, backed by gonum.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation is the sample (n-1) standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Median returns the middle value of data without modifying it
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// Diff returns successive differences x[i+1]-x[i]
func Diff(data []float64) []float64 {
	if len(data) < 2 {
		return []float64{}
	}

	out := make([]float64, len(data)-1)
	for i := range out {
		out[i] = data[i+1] - data[i]
	}
	return out
}

// LocalMax marks x[i] as a peak when x[i] > x[i-1] and x[i] >= x[i+1].
// The series is edge-extended, so the first sample is never a peak and the
// last one is a peak whenever it rises.
func LocalMax(data []float64) []bool {
	peaks := make([]bool, len(data))
	for i := range data {
		prev := data[max(i-1, 0)]
		next := data[min(i+1, len(data)-1)]
		peaks[i] = data[i] > prev && data[i] >= next
	}
	return peaks
}

// ConvolveSame returns the central len(signal) samples of the full linear
// convolution of signal with kernel.
func ConvolveSame(signal, kernel []float64) []float64 {
	n, m := len(signal), len(kernel)
	if n == 0 || m == 0 {
		return []float64{}
	}

	out := make([]float64, n)
	offset := (m - 1) / 2
	for i := range n {
		k := i + offset // index into the full convolution
		sum := 0.0
		for j := max(0, k-n+1); j <= min(k, m-1); j++ {
			sum += signal[k-j] * kernel[j]
		}
		out[i] = sum
	}
	return out
}

// AllFinite reports whether no element is NaN or ±Inf
func AllFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
