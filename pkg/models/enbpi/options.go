package enbpi

import "go.uber.org/zap"

type ModelOption func(*Model)

// WithAggregation selects the function combining ensemble member
// predictions, used for both point forecasts and out-of-bag residual
// calibration.
func WithAggregation(agg Aggregation) ModelOption {
	return func(m *Model) {
		m.agg = agg
	}
}

// WithOverlap toggles overlapping block sampling on the default block
// bootstrap splitter.
func WithOverlap(overlap bool) ModelOption {
	return func(m *Model) {
		if s, ok := m.splitter.(BlockBootstrap); ok {
			s.Overlap = overlap
			m.splitter = s
		}
	}
}

// WithSplitter replaces the resample strategy entirely.
func WithSplitter(s Splitter) ModelOption {
	return func(m *Model) {
		m.splitter = s
	}
}

// WithSeed sets the base seed for bootstrap sampling and per-member
// derived seeds.
func WithSeed(seed int64) ModelOption {
	return func(m *Model) {
		m.seed = seed
	}
}

// WithWorkers bounds the pool training and querying ensemble members.
func WithWorkers(workers int) ModelOption {
	return func(m *Model) {
		m.workers = workers
	}
}

func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}
