// Package enbpi implements Ensemble Batch Prediction Intervals, a
// conformal method producing calibrated prediction intervals for
// one-step-ahead time-series forecasts. An ensemble of base models is
// trained on block-bootstrap resamples; out-of-bag residuals calibrate the
// interval margins and slide forward online as ground truth arrives,
// without retraining the ensemble.
package enbpi

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrNotFitted     = errors.New("model is not fitted")
	ErrValidation    = errors.New("input validation failed")
	ErrNumerical     = errors.New("numerical failure")
)

// Model is the EnbPI engine. The ensemble and the residual window are
// exclusively owned by one Model instance. PartialFit is the only writer
// of the residual window; it takes an exclusive lock, so predictions may
// run concurrently with each other but never observe a half-applied
// update.
type Model struct {
	factory   RegressorFactory
	resamples int
	splitter  Splitter
	agg       Aggregation
	workers   int
	seed      int64
	logger    *zap.Logger

	mu        sync.RWMutex
	fitted    bool
	members   []member
	full      Regressor
	window    *residualWindow
	dims      int
	lastIndex int
}

// New builds an unfitted model. The factory supplies a fresh base-model
// instance per ensemble member; resamples is the ensemble size and
// blockLength the bootstrap block length. The default splitter is an
// overlapping block bootstrap.
func New(factory RegressorFactory, resamples, blockLength int, opts ...ModelOption) (*Model, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: regressor factory is nil", ErrConfiguration)
	}
	if resamples < 1 {
		return nil, fmt.Errorf("%w: resample count %d must be at least 1", ErrConfiguration, resamples)
	}
	if blockLength < 1 {
		return nil, fmt.Errorf("%w: block length %d must be at least 1", ErrConfiguration, blockLength)
	}

	m := &Model{
		factory:   factory,
		resamples: resamples,
		splitter:  BlockBootstrap{BlockLength: blockLength, Overlap: true},
		agg:       AggregateMean,
		workers:   runtime.NumCPU(),
		seed:      1,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.workers < 1 {
		return nil, fmt.Errorf("%w: worker count %d must be at least 1", ErrConfiguration, m.workers)
	}
	if !m.agg.valid() {
		return nil, fmt.Errorf("%w: unknown aggregation function", ErrConfiguration)
	}
	if m.splitter == nil {
		return nil, fmt.Errorf("%w: splitter is nil", ErrConfiguration)
	}
	return m, nil
}

// Fit trains the ensemble on the given series and calibrates the residual
// window from out-of-bag predictions. Refitting resets the ensemble and
// the window entirely. Base-model training errors are surfaced unchanged.
func (m *Model) Fit(x [][]float64, y []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dims, err := checkMatrix(x, y)
	if err != nil {
		return err
	}
	n := len(y)

	rng := rand.New(rand.NewSource(m.seed))
	resamples, err := m.splitter.Split(n, m.resamples, rng)
	if err != nil {
		return err
	}

	members, err := trainEnsemble(m.factory, resamples, x, y, m.workers, m.seed)
	if err != nil {
		return err
	}

	full := m.factory(m.seed)
	if err := full.Fit(x, y); err != nil {
		return err
	}

	preds, err := memberPredictions(members, x, m.workers)
	if err != nil {
		return err
	}

	// Out-of-bag aggregation: a training point only contributes a
	// residual when at least one member has it out-of-bag.
	residuals := make([]residual, 0, n)
	vals := make([]float64, 0, len(members))
	for i := 0; i < n; i++ {
		vals = vals[:0]
		for mIdx := range members {
			if members[mIdx].oob[i] {
				vals = append(vals, preds[mIdx][i])
			}
		}
		if len(vals) == 0 {
			continue
		}
		residuals = append(residuals, residual{index: i, score: y[i] - m.agg.apply(vals)})
	}
	if len(residuals) == 0 {
		return fmt.Errorf("%w: no training point is out-of-bag for any ensemble member", ErrNumerical)
	}

	window := newResidualWindow(len(residuals))
	for _, r := range residuals {
		window.push(r.index, r.score)
	}

	m.members = members
	m.full = full
	m.window = window
	m.dims = dims
	m.lastIndex = n - 1
	m.fitted = true

	m.logger.Debug("ensemble fitted",
		zap.Int("members", len(members)),
		zap.Int("training_points", n),
		zap.Int("window_capacity", window.capacity()),
		zap.String("aggregation", m.agg.String()))
	return nil
}

// Predict computes point forecasts and prediction intervals for a batch
// of test points at every requested miscoverage level. With ensemble set,
// the point forecast aggregates all member predictions; otherwise the
// single model refit on the full training set is used. With optimizeBeta
// the quantile split minimizing interval width is searched per alpha.
// Predict only reads ensemble and residual state.
func (m *Model) Predict(x [][]float64, alphas []float64, ensemble, optimizeBeta bool) (*Forecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.fitted {
		return nil, fmt.Errorf("%w: call Fit before Predict", ErrNotFitted)
	}
	if err := m.checkFeatures(x); err != nil {
		return nil, err
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("%w: no alpha levels requested", ErrConfiguration)
	}
	for _, alpha := range alphas {
		if alpha <= 0 || alpha >= 1 {
			return nil, fmt.Errorf("%w: alpha %v must be in (0, 1)", ErrConfiguration, alpha)
		}
	}

	points, err := m.pointForecasts(x, ensemble)
	if err != nil {
		return nil, err
	}

	bands := make([]Band, len(alphas))
	for ai, alpha := range alphas {
		q, err := m.window.quantiles(alpha, optimizeBeta)
		if err != nil {
			return nil, err
		}
		intervals := make([]Interval, len(points))
		for i, p := range points {
			intervals[i] = newInterval(p, q)
		}
		bands[ai] = Band{Alpha: alpha, Intervals: intervals}
	}

	return &Forecast{Points: points, Bands: bands}, nil
}

// PartialFit ingests newly observed targets: the ensemble's out-of-bag
// style aggregated prediction is computed for each point, its conformity
// score pushed into the residual window, evicting the oldest entry when at
// capacity. The ensemble itself is untouched. index is the temporal order
// index of the first sample in the batch and must lie strictly after every
// previously observed index.
func (m *Model) PartialFit(index int, x [][]float64, y []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fitted {
		return fmt.Errorf("%w: call Fit before PartialFit", ErrNotFitted)
	}
	if _, err := checkMatrix(x, y); err != nil {
		return err
	}
	if err := m.checkFeatures(x); err != nil {
		return err
	}
	if index <= m.lastIndex {
		return fmt.Errorf("%w: batch order index %d is not after last observed index %d", ErrValidation, index, m.lastIndex)
	}

	preds, err := memberPredictions(m.members, x, m.workers)
	if err != nil {
		return err
	}
	agg := aggregateAll(m.agg, preds, len(y))

	for i := range y {
		m.window.push(index+i, y[i]-agg[i])
	}
	m.lastIndex = index + len(y) - 1

	m.logger.Debug("residual window updated",
		zap.Int("batch_size", len(y)),
		zap.Int("last_index", m.lastIndex))
	return nil
}

// WindowSize reports the number of residuals currently held. It equals
// the window capacity once the initial calibration has filled it.
func (m *Model) WindowSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.window == nil {
		return 0
	}
	return m.window.size()
}

func (m *Model) pointForecasts(x [][]float64, ensemble bool) ([]float64, error) {
	if !ensemble {
		return m.full.Predict(x)
	}
	preds, err := memberPredictions(m.members, x, m.workers)
	if err != nil {
		return nil, err
	}
	return aggregateAll(m.agg, preds, len(x)), nil
}

func (m *Model) checkFeatures(x [][]float64) error {
	for i := range x {
		if len(x[i]) != m.dims {
			return fmt.Errorf("%w: feature row %d has %d columns, expected %d", ErrValidation, i, len(x[i]), m.dims)
		}
	}
	return nil
}

// checkMatrix validates matching shapes and returns the feature dimension.
func checkMatrix(x [][]float64, y []float64) (int, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, fmt.Errorf("%w: feature rows %d and targets %d must match and be non-empty", ErrValidation, len(x), len(y))
	}
	dims := len(x[0])
	for i := range x {
		if len(x[i]) != dims {
			return 0, fmt.Errorf("%w: feature row %d has %d columns, expected %d", ErrValidation, i, len(x[i]), dims)
		}
	}
	return dims, nil
}
