package synthetic

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SeriesGenerator produces a deterministic univariate time series with
// AR(1) persistence, a linear trend, a seasonal cycle and Gaussian noise.
// Identical seed and parameters reproduce the identical series.
type SeriesGenerator struct {
	level       float64
	phi         float64
	trend       float64
	seasonalAmp float64
	period      int

	noise distuv.Normal

	last float64
	t    int
}

func NewSeriesGenerator(seed uint64) *SeriesGenerator {
	g := &SeriesGenerator{
		level:       10.0,
		phi:         0.8,
		trend:       0.0,
		seasonalAmp: 0.0,
		period:      24,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}
	g.last = g.level
	return g
}

// SetDynamics sets the mean level and the AR(1) persistence coefficient.
// phi must stay inside (-1, 1) for the series to remain stationary.
func (g *SeriesGenerator) SetDynamics(level, phi float64) {
	g.level = level
	g.phi = phi
	if g.t == 0 {
		g.last = level
	}
}

func (g *SeriesGenerator) SetTrend(slope float64) {
	g.trend = slope
}

func (g *SeriesGenerator) SetSeasonality(amplitude float64, period int) {
	g.seasonalAmp = amplitude
	if period > 1 {
		g.period = period
	}
}

func (g *SeriesGenerator) SetNoise(sigma float64) {
	g.noise.Sigma = sigma
}

// Next advances the series by one step and returns the new value.
func (g *SeriesGenerator) Next() float64 {
	seasonal := 0.0
	if g.seasonalAmp != 0 {
		seasonal = g.seasonalAmp * math.Sin(2*math.Pi*float64(g.t)/float64(g.period))
	}

	v := g.level + g.phi*(g.last-g.level) + g.trend*float64(g.t) + seasonal + g.noise.Rand()

	g.last = v
	g.t++
	return v
}

// Generate returns the next n values of the series.
func (g *SeriesGenerator) Generate(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}
