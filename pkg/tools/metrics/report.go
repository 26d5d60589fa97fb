package metrics

import (
	"fmt"

	"go.uber.org/zap"
)

// BandResult summarizes interval quality at one miscoverage level.
type BandResult struct {
	Alpha     float64
	Coverage  float64
	MeanWidth float64
}

// Report summarizes a rolling evaluation of point forecasts and
// prediction intervals against realized targets.
type Report struct {
	Samples int
	MAE     float64
	RMSE    float64
	Bands   []BandResult
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("forecast report",
		zap.Int("samples", r.Samples),
		zap.Float64("mae", r.MAE),
		zap.Float64("rmse", r.RMSE))

	for _, b := range r.Bands {
		logger.Info("interval report",
			zap.Float64("alpha", b.Alpha),
			zap.String("target_coverage", fmt.Sprintf("%.2f%%", (1-b.Alpha)*100)),
			zap.String("coverage", fmt.Sprintf("%.2f%%", b.Coverage*100)),
			zap.Float64("mean_width", b.MeanWidth))
	}
}
