package enbpi

// Interval is one prediction interval. Lower <= Upper holds by
// construction.
type Interval struct {
	Lower float64
	Upper float64
}

func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Band holds the intervals of every test point at one miscoverage level.
type Band struct {
	Alpha     float64
	Intervals []Interval
}

// Forecast is the output of Predict: one point forecast per test point and
// one band per requested alpha, in request order.
type Forecast struct {
	Points []float64
	Bands  []Band
}

func newInterval(point float64, q QuantilePair) Interval {
	lower := point + q.Lower
	upper := point + q.Upper
	if lower > upper {
		lower, upper = upper, lower
	}
	return Interval{Lower: lower, Upper: upper}
}
