package metrics

import (
	"errors"
	"math"
)

var (
	ErrLengthMismatch = errors.New("input lengths do not match")
	ErrNoData         = errors.New("no data points")
)

// Coverage returns the fraction of true values falling inside their
// prediction interval.
func Coverage(yTrue, lower, upper []float64) (float64, error) {
	if len(yTrue) != len(lower) || len(yTrue) != len(upper) {
		return 0, ErrLengthMismatch
	}
	if len(yTrue) == 0 {
		return 0, ErrNoData
	}

	covered := 0
	for i := range yTrue {
		if yTrue[i] >= lower[i] && yTrue[i] <= upper[i] {
			covered++
		}
	}
	return float64(covered) / float64(len(yTrue)), nil
}

// MeanWidth returns the average width of the prediction intervals.
func MeanWidth(lower, upper []float64) (float64, error) {
	if len(lower) != len(upper) {
		return 0, ErrLengthMismatch
	}
	if len(lower) == 0 {
		return 0, ErrNoData
	}

	var sum float64
	for i := range lower {
		sum += upper[i] - lower[i]
	}
	return sum / float64(len(lower)), nil
}

// PointErrors returns the mean absolute error and root mean square error
// of the point forecasts.
func PointErrors(yTrue, yPred []float64) (mae, rmse float64, err error) {
	if len(yTrue) != len(yPred) {
		return 0, 0, ErrLengthMismatch
	}
	if len(yTrue) == 0 {
		return 0, 0, ErrNoData
	}

	var sumAbs, sumSq float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sumAbs += math.Abs(d)
		sumSq += d * d
	}
	n := float64(len(yTrue))
	return sumAbs / n, math.Sqrt(sumSq / n), nil
}
