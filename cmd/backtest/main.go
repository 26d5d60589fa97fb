package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/enbpi/internal/dbg"
	"github.com/peter-kozarec/enbpi/pkg/common"
	"github.com/peter-kozarec/enbpi/pkg/data/duckdb"
	"github.com/peter-kozarec/enbpi/pkg/datasource/synthetic"
	"github.com/peter-kozarec/enbpi/pkg/models/enbpi"
	"github.com/peter-kozarec/enbpi/pkg/models/ridge"
	"github.com/peter-kozarec/enbpi/pkg/tools/metrics"
	"github.com/peter-kozarec/enbpi/pkg/utility"
)

func main() {
	logger := dbg.NewLogger(true)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info("starting backtest",
		zap.String("run_id", utility.GetRunID().String()),
		zap.Int("resamples", Resamples),
		zap.Int("block_length", BlockLength),
		zap.Int("gap", Gap))

	series, err := loadSeries(logger)
	if err != nil {
		logger.Fatal("unable to load series", zap.Error(err))
	}

	samples := common.Lagged(series, Lags)
	train, test := samples.SplitAt(TrainSize)
	if len(train) == 0 || len(test) == 0 {
		logger.Fatal("series too short for the configured train/test split",
			zap.Int("samples", len(samples)))
	}

	model, err := enbpi.New(
		func(seed int64) enbpi.Regressor { return ridge.New(RidgeLambda) },
		Resamples,
		BlockLength,
		enbpi.WithSeed(Seed),
		enbpi.WithLogger(logger))
	if err != nil {
		logger.Fatal("unable to create model", zap.Error(err))
	}

	fitStart := time.Now()
	if err := model.Fit(train.Matrix(), train.Targets()); err != nil {
		logger.Fatal("unable to fit model", zap.Error(err))
	}
	logger.Info("model fitted",
		zap.Int("training_points", len(train)),
		zap.Duration("elapsed", time.Since(fitStart)))

	report, err := rollForward(model, test)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	report.Print(logger)
}

// rollForward walks the held-out samples in gap-sized batches, predicting
// each batch before feeding the realized targets back via PartialFit.
func rollForward(model *enbpi.Model, test common.Samples) (metrics.Report, error) {
	var (
		yTrue  []float64
		points []float64
		lower  = make([][]float64, len(AlphaLevels))
		upper  = make([][]float64, len(AlphaLevels))
	)

	for start := 0; start < len(test); start += Gap {
		end := min(start+Gap, len(test))
		batch := test[start:end]

		fc, err := model.Predict(batch.Matrix(), AlphaLevels, true, OptimizeBeta)
		if err != nil {
			return metrics.Report{}, err
		}

		yTrue = append(yTrue, batch.Targets()...)
		points = append(points, fc.Points...)
		for ai, band := range fc.Bands {
			for _, iv := range band.Intervals {
				lower[ai] = append(lower[ai], iv.Lower)
				upper[ai] = append(upper[ai], iv.Upper)
			}
		}

		if err := model.PartialFit(batch[0].Index, batch.Matrix(), batch.Targets()); err != nil {
			return metrics.Report{}, err
		}
	}

	mae, rmse, err := metrics.PointErrors(yTrue, points)
	if err != nil {
		return metrics.Report{}, err
	}

	report := metrics.Report{
		Samples: len(yTrue),
		MAE:     mae,
		RMSE:    rmse,
	}
	for ai, alpha := range AlphaLevels {
		coverage, err := metrics.Coverage(yTrue, lower[ai], upper[ai])
		if err != nil {
			return metrics.Report{}, err
		}
		width, err := metrics.MeanWidth(lower[ai], upper[ai])
		if err != nil {
			return metrics.Report{}, err
		}
		report.Bands = append(report.Bands, metrics.BandResult{
			Alpha:     alpha,
			Coverage:  coverage,
			MeanWidth: width,
		})
	}
	return report, nil
}

func loadSeries(logger *zap.Logger) ([]float64, error) {
	if DataSource == "" {
		gen := synthetic.NewSeriesGenerator(Seed)
		gen.SetDynamics(10.0, 0.8)
		gen.SetTrend(0.005)
		gen.SetSeasonality(2.0, 24)
		gen.SetNoise(1.0)
		return gen.Generate(Lags + TrainSize + TestSize), nil
	}

	logger.Info("loading series", zap.String("source", DataSource), zap.String("table", SeriesTable))

	reader := duckdb.NewReader(DataSource)
	if err := reader.Connect(); err != nil {
		return nil, err
	}
	defer reader.Close()

	var series []float64
	err := reader.LoadSeries(context.Background(), SeriesTable, time.Time{}, time.Now(),
		func(ts time.Time, value float64) error {
			series = append(series, value)
			return nil
		})
	return series, err
}
