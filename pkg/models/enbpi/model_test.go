package enbpi

import (
	"errors"
	"math"
	"testing"

	"github.com/peter-kozarec/enbpi/pkg/common"
	"github.com/peter-kozarec/enbpi/pkg/datasource/synthetic"
	"github.com/peter-kozarec/enbpi/pkg/models/ridge"
	"github.com/peter-kozarec/enbpi/pkg/tools/metrics"
)

// meanRegressor predicts the mean of its training targets for every
// input. Deterministic, which keeps reproducibility tests exact.
type meanRegressor struct {
	mean float64
}

func (r *meanRegressor) Fit(x [][]float64, y []float64) error {
	var sum float64
	for _, v := range y {
		sum += v
	}
	r.mean = sum / float64(len(y))
	return nil
}

func (r *meanRegressor) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = r.mean
	}
	return out, nil
}

var errTrainFailed = errors.New("training failed")

type failingRegressor struct{}

func (failingRegressor) Fit(x [][]float64, y []float64) error     { return errTrainFailed }
func (failingRegressor) Predict(x [][]float64) ([]float64, error) { return nil, errTrainFailed }

func meanFactory(seed int64) Regressor { return &meanRegressor{} }

func noisyTrainingData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{float64(i)}
		y[i] = 5.0 + 2.0*math.Sin(float64(i)*0.3) + float64(i%5-2)*0.4
	}
	return x, y
}

func TestModel_New_Validation(t *testing.T) {
	tests := []struct {
		name        string
		factory     RegressorFactory
		resamples   int
		blockLength int
		opts        []ModelOption
	}{
		{"nil factory", nil, 10, 4, nil},
		{"zero resamples", meanFactory, 0, 4, nil},
		{"zero block length", meanFactory, 10, 0, nil},
		{"zero workers", meanFactory, 10, 4, []ModelOption{WithWorkers(0)}},
		{"unknown aggregation", meanFactory, 10, 4, []ModelOption{WithAggregation(Aggregation(9))}},
		{"nil splitter", meanFactory, 10, 4, []ModelOption{WithSplitter(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.factory, tt.resamples, tt.blockLength, tt.opts...); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error got %v, want %v", err, ErrConfiguration)
			}
		})
	}
}

func TestModel_NotFittedErrors(t *testing.T) {
	m, err := New(meanFactory, 5, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x := [][]float64{{1}}
	if _, err := m.Predict(x, []float64{0.1}, true, false); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict error got %v, want %v", err, ErrNotFitted)
	}
	if err := m.PartialFit(100, x, []float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("PartialFit error got %v, want %v", err, ErrNotFitted)
	}
}

func TestModel_Fit_BlockLengthExceedsTrainingSize(t *testing.T) {
	m, err := New(meanFactory, 5, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, y := noisyTrainingData(20)
	if err := m.Fit(x, y); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("error got %v, want %v", err, ErrConfiguration)
	}
}

func TestModel_Fit_ShapeValidation(t *testing.T) {
	m, err := New(meanFactory, 5, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{"row count mismatch", [][]float64{{1}, {2}, {3}}, []float64{1, 2}},
		{"empty", nil, nil},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Fit(tt.x, tt.y); !errors.Is(err, ErrValidation) {
				t.Fatalf("error got %v, want %v", err, ErrValidation)
			}
		})
	}
}

func TestModel_Fit_BaseModelErrorSurfaced(t *testing.T) {
	m, err := New(func(seed int64) Regressor { return failingRegressor{} }, 5, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, y := noisyTrainingData(20)
	if err := m.Fit(x, y); !errors.Is(err, errTrainFailed) {
		t.Fatalf("base model error not surfaced, got %v", err)
	}
}

func TestModel_PredictIntervals(t *testing.T) {
	m, err := New(meanFactory, 20, 8, WithSeed(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, y := noisyTrainingData(100)
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testX := [][]float64{{100}, {101}, {102}}
	alphas := []float64{0.05, 0.2}

	for _, ensemble := range []bool{true, false} {
		for _, optimizeBeta := range []bool{false, true} {
			fc, err := m.Predict(testX, alphas, ensemble, optimizeBeta)
			if err != nil {
				t.Fatalf("ensemble=%v optimizeBeta=%v: unexpected error: %v", ensemble, optimizeBeta, err)
			}
			if len(fc.Points) != len(testX) {
				t.Fatalf("point count got %d, want %d", len(fc.Points), len(testX))
			}
			if len(fc.Bands) != len(alphas) {
				t.Fatalf("band count got %d, want %d", len(fc.Bands), len(alphas))
			}
			for bi, band := range fc.Bands {
				if band.Alpha != alphas[bi] {
					t.Errorf("band %d alpha got %v, want %v", bi, band.Alpha, alphas[bi])
				}
				if len(band.Intervals) != len(testX) {
					t.Fatalf("band %d interval count got %d, want %d", bi, len(band.Intervals), len(testX))
				}
				for i, iv := range band.Intervals {
					if iv.Lower > iv.Upper {
						t.Errorf("band %d interval %d inverted: [%v, %v]", bi, i, iv.Lower, iv.Upper)
					}
					if iv.Width() < 0 {
						t.Errorf("band %d interval %d negative width", bi, i)
					}
					if iv.Lower > fc.Points[i] || iv.Upper < fc.Points[i] {
						t.Errorf("band %d interval %d does not bracket point forecast %v", bi, i, fc.Points[i])
					}
				}
			}
		}
	}
}

func TestModel_Predict_InvalidAlpha(t *testing.T) {
	m := fittedMeanModel(t)

	testX := [][]float64{{1}}
	for _, alphas := range [][]float64{nil, {0}, {1}, {-0.2}, {0.05, 1.5}} {
		if _, err := m.Predict(testX, alphas, true, false); !errors.Is(err, ErrConfiguration) {
			t.Errorf("alphas %v: error got %v, want %v", alphas, err, ErrConfiguration)
		}
	}
}

func TestModel_PartialFit_OutOfOrder(t *testing.T) {
	m := fittedMeanModel(t) // fitted on indices [0, 99]

	x := [][]float64{{200}}
	y := []float64{4.2}

	if err := m.PartialFit(99, x, y); !errors.Is(err, ErrValidation) {
		t.Fatalf("stale index error got %v, want %v", err, ErrValidation)
	}
	if err := m.PartialFit(100, x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.PartialFit(100, x, y); !errors.Is(err, ErrValidation) {
		t.Fatalf("repeated index error got %v, want %v", err, ErrValidation)
	}
	if err := m.PartialFit(101, x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestModel_PartialFit_WindowSizeInvariant(t *testing.T) {
	m := fittedMeanModel(t)

	initial := m.WindowSize()
	if initial == 0 {
		t.Fatal("window empty after fit")
	}

	next := 100
	for batch := 0; batch < 12; batch++ {
		x := [][]float64{{float64(next)}, {float64(next + 1)}}
		y := []float64{3.0, 4.0}
		if err := m.PartialFit(next, x, y); err != nil {
			t.Fatalf("batch %d: unexpected error: %v", batch, err)
		}
		next += 2

		if m.WindowSize() != initial {
			t.Fatalf("batch %d: window size got %d, want %d", batch, m.WindowSize(), initial)
		}
	}
}

func TestModel_PartialFit_ShiftsIntervals(t *testing.T) {
	m := fittedMeanModel(t)

	testX := [][]float64{{50}}
	before, err := m.Predict(testX, []float64{0.1}, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Feed targets far off the ensemble forecast; the residual window
	// must absorb them and widen subsequent intervals immediately.
	next := 100
	for batch := 0; batch < 30; batch++ {
		if err := m.PartialFit(next, [][]float64{{float64(next)}}, []float64{50.0}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		next++
	}

	after, err := m.Predict(testX, []float64{0.1}, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if after.Bands[0].Intervals[0].Width() <= before.Bands[0].Intervals[0].Width() {
		t.Errorf("interval width did not grow after large residuals: before %v, after %v",
			before.Bands[0].Intervals[0].Width(), after.Bands[0].Intervals[0].Width())
	}
}

func TestModel_Determinism(t *testing.T) {
	x, y := noisyTrainingData(120)
	testX := [][]float64{{120}, {121}}
	alphas := []float64{0.1}

	run := func() *Forecast {
		m, err := New(meanFactory, 15, 6, WithSeed(77), WithWorkers(4))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := m.Fit(x, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fc, err := m.Predict(testX, alphas, true, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return fc
	}

	a, b := run(), run()
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			t.Errorf("point %d diverges: %v vs %v", i, a.Points[i], b.Points[i])
		}
	}
	for i := range a.Bands[0].Intervals {
		if a.Bands[0].Intervals[i] != b.Bands[0].Intervals[i] {
			t.Errorf("interval %d diverges: %+v vs %+v", i, a.Bands[0].Intervals[i], b.Bands[0].Intervals[i])
		}
	}
}

func TestModel_Refit_Resets(t *testing.T) {
	m := fittedMeanModel(t)
	initial := m.WindowSize()

	if err := m.PartialFit(100, [][]float64{{100}}, []float64{2.0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x, y := noisyTrainingData(100)
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.WindowSize() != initial {
		t.Errorf("window size after refit got %d, want %d", m.WindowSize(), initial)
	}
	// The ordering contract restarts with the new fit.
	if err := m.PartialFit(100, [][]float64{{100}}, []float64{2.0}); err != nil {
		t.Fatalf("unexpected error after refit: %v", err)
	}
}

// TestModel_GaussianCoverage trains on a synthetic AR(1) series with unit
// Gaussian noise and rolls forward over held-out data with gap-sized
// updates. Empirical coverage at alpha=0.05 must land near the 95% target.
func TestModel_GaussianCoverage(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical scenario")
	}

	const (
		lags      = 12
		trainSize = 600
		testSize  = 200
		gap       = 20
		alpha     = 0.05
	)

	gen := synthetic.NewSeriesGenerator(123)
	gen.SetDynamics(10.0, 0.8)
	gen.SetNoise(1.0)
	series := gen.Generate(lags + trainSize + testSize)

	samples := common.Lagged(series, lags)
	train, test := samples.SplitAt(trainSize)

	m, err := New(
		func(seed int64) Regressor { return ridge.New(1e-3) },
		40, 48, WithSeed(123))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Fit(train.Matrix(), train.Targets()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var yTrue, lower, upper []float64
	for start := 0; start < len(test); start += gap {
		end := start + gap
		if end > len(test) {
			end = len(test)
		}
		batch := test[start:end]

		fc, err := m.Predict(batch.Matrix(), []float64{alpha}, true, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		yTrue = append(yTrue, batch.Targets()...)
		for _, iv := range fc.Bands[0].Intervals {
			lower = append(lower, iv.Lower)
			upper = append(upper, iv.Upper)
		}

		if err := m.PartialFit(batch[0].Index, batch.Matrix(), batch.Targets()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	coverage, err := metrics.Coverage(yTrue, lower, upper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coverage < 0.90 || coverage > 0.98 {
		t.Errorf("empirical coverage %v outside [0.90, 0.98]", coverage)
	}
}

func fittedMeanModel(t *testing.T) *Model {
	t.Helper()

	m, err := New(meanFactory, 10, 8, WithSeed(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x, y := noisyTrainingData(100)
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}
