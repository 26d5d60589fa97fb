package main

var AlphaLevels = []float64{0.05, 0.10}

const (
	// DataSource selects a DuckDB database holding the series. Empty
	// falls back to the synthetic generator.
	DataSource  = ""
	SeriesTable = "observations"

	TrainSize = 1000
	TestSize  = 300
	Lags      = 24

	Resamples   = 50
	BlockLength = 48
	Gap         = 10
	Seed        = 42
	RidgeLambda = 1e-3

	OptimizeBeta = false
)
