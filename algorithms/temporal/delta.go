package temporal

// Delta returns the local slope of series by least-squares regression over
// a window of 2n+1 frames. Frames past either end repeat the edge value.
func Delta(series []float64, n int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || n < 1 {
		return out
	}

	denominator := 0.0
	for k := 1; k <= n; k++ {
		denominator += float64(k * k)
	}
	denominator *= 2

	last := len(series) - 1
	for t := range series {
		sum := 0.0
		for k := 1; k <= n; k++ {
			ahead := series[min(t+k, last)]
			behind := series[max(t-k, 0)]
			sum += float64(k) * (ahead - behind)
		}
		out[t] = sum / denominator
	}

	return out
}

// DeltaFrames applies Delta along time to each coefficient of a
// Time x Coefficient matrix.
func DeltaFrames(frames [][]float64, n int) [][]float64 {
	if len(frames) == 0 {
		return [][]float64{}
	}

	numCoeffs := len(frames[0])
	out := make([][]float64, len(frames))
	for t := range out {
		out[t] = make([]float64, numCoeffs)
	}

	series := make([]float64, len(frames))
	for c := range numCoeffs {
		for t := range frames {
			series[t] = frames[t][c]
		}
		for t, d := range Delta(series, n) {
			out[t][c] = d
		}
	}

	return out
}
