package enbpi

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/peter-kozarec/enbpi/pkg/utility/circular"
)

// residual is one calibration entry: the temporal order index of the
// observation and its conformity score against the out-of-bag aggregated
// prediction.
type residual struct {
	index int
	score float64
}

// residualWindow is a fixed-capacity ring of residuals. Capacity is set
// once, to the initial training residual count, and never changes; pushing
// at capacity evicts the oldest entry.
type residualWindow struct {
	buf *circular.Buffer[residual]
}

func newResidualWindow(capacity int) *residualWindow {
	return &residualWindow{buf: circular.NewBuffer[residual](uint(capacity))}
}

func (w *residualWindow) push(index int, score float64) {
	w.buf.Push(residual{index: index, score: score})
}

func (w *residualWindow) size() int {
	return int(w.buf.Size())
}

func (w *residualWindow) capacity() int {
	return int(w.buf.Capacity())
}

// scores returns the window contents oldest to newest.
func (w *residualWindow) scores() []float64 {
	data := w.buf.Data()
	out := make([]float64, len(data))
	for i, r := range data {
		out[i] = r.score
	}
	return out
}

// QuantilePair holds the lower and upper residual quantiles used as
// interval margins for one miscoverage level.
type QuantilePair struct {
	Lower float64
	Upper float64
}

// betaGridSize discretizes the beta search range (0, alpha). The grid is
// even so that beta = alpha/2, the symmetric default, is always a grid
// point and optimization can never widen the interval.
const betaGridSize = 100

// quantiles computes the margins for the given miscoverage level over the
// current window contents. The default split puts alpha/2 mass in each
// tail. With optimizeBeta the split minimizing the interval width at total
// coverage 1-alpha is searched over the beta grid, ties broken by the
// smallest beta.
func (w *residualWindow) quantiles(alpha float64, optimizeBeta bool) (QuantilePair, error) {
	if w.buf.IsEmpty() {
		return QuantilePair{}, fmt.Errorf("%w: residual window is empty", ErrNumerical)
	}

	vals := w.scores()
	sort.Float64s(vals)

	if !optimizeBeta {
		return QuantilePair{
			Lower: stat.Quantile(alpha/2, stat.Empirical, vals, nil),
			Upper: stat.Quantile(1-alpha/2, stat.Empirical, vals, nil),
		}, nil
	}

	var best QuantilePair
	bestWidth := 0.0
	found := false
	for k := 1; k < betaGridSize; k++ {
		beta := alpha * float64(k) / betaGridSize
		pair := QuantilePair{
			Lower: stat.Quantile(beta, stat.Empirical, vals, nil),
			Upper: stat.Quantile(1-alpha+beta, stat.Empirical, vals, nil),
		}
		width := pair.Upper - pair.Lower
		if !found || width < bestWidth {
			best = pair
			bestWidth = width
			found = true
		}
	}
	if !found {
		return QuantilePair{}, fmt.Errorf("%w: no feasible beta grid point for alpha %v", ErrNumerical, alpha)
	}
	return best, nil
}
