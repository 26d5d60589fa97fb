package common

// Sample is one observation of a univariate time series: a temporal order
// index, the feature vector used to predict it and the realized target.
// The index is the sole ordering key and is never interchangeable across
// resamples.
type Sample struct {
	Index    int
	Features []float64
	Target   float64
}

type Samples []Sample

// Matrix returns the feature rows in sample order.
func (s Samples) Matrix() [][]float64 {
	x := make([][]float64, len(s))
	for i := range s {
		x[i] = s[i].Features
	}
	return x
}

// Targets returns the target column in sample order.
func (s Samples) Targets() []float64 {
	y := make([]float64, len(s))
	for i := range s {
		y[i] = s[i].Target
	}
	return y
}

// SplitAt splits the samples into train and test halves at the given
// position, preserving temporal order.
func (s Samples) SplitAt(pos int) (train, test Samples) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s) {
		pos = len(s)
	}
	return s[:pos], s[pos:]
}

// Lagged builds samples from a raw series where each target is predicted
// from the preceding lags values. The first lags points seed the features
// of the first sample and produce no samples themselves.
func Lagged(series []float64, lags int) Samples {
	if lags < 1 || len(series) <= lags {
		return nil
	}
	out := make(Samples, 0, len(series)-lags)
	for i := lags; i < len(series); i++ {
		features := make([]float64, lags)
		copy(features, series[i-lags:i])
		out = append(out, Sample{
			Index:    i - lags,
			Features: features,
			Target:   series[i],
		})
	}
	return out
}
