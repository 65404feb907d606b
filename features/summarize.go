package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// statSuffixes is the four-statistic group, in emission order
var statSuffixes = []string{"mean", "std", "min", "max"}

// SummaryNames returns the four feature names Summarize emits for prefix
func SummaryNames(prefix string) []string {
	names := make([]string, len(statSuffixes))
	for i, suffix := range statSuffixes {
		names[i] = prefix + "_" + suffix
	}
	return names
}

// Summarize writes the mean, population standard deviation, minimum and
// maximum of series into record under prefix. An empty series writes four
// zeros.
func Summarize(record Record, prefix string, series []float64) {
	names := SummaryNames(prefix)

	if len(series) == 0 {
		for _, name := range names {
			record[name] = 0
		}
		return
	}

	mean, std := stat.PopMeanStdDev(series, nil)
	record[names[0]] = mean
	record[names[1]] = std
	record[names[2]] = floats.Min(series)
	record[names[3]] = floats.Max(series)
}

// column extracts one coefficient's time series from a Time x N matrix
func column(frames [][]float64, index int) []float64 {
	series := make([]float64, len(frames))
	for t, frame := range frames {
		series[t] = frame[index]
	}
	return series
}
