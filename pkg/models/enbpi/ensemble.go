package enbpi

import (
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Regressor is the opaque base model trained on each bootstrap resample.
// Training and inference failures propagate to the caller unchanged.
type Regressor interface {
	Fit(x [][]float64, y []float64) error
	Predict(x [][]float64) ([]float64, error)
}

// RegressorFactory builds a fresh base-model instance for one ensemble
// member. The seed is derived deterministically from the model seed and
// the member index, keeping stochastic base models reproducible under
// parallel training.
type RegressorFactory func(seed int64) Regressor

// member pairs one trained base model with the out-of-bag mask of the
// resample it was trained on. Membership is fixed at training time.
type member struct {
	model Regressor
	oob   []bool
}

// Aggregation selects how ensemble member predictions are combined. The
// same function serves both the out-of-bag residual calibration and the
// ensemble point forecast, which keeps the two statistically consistent.
type Aggregation int

const (
	AggregateMean Aggregation = iota
	AggregateMedian
)

func (a Aggregation) valid() bool {
	return a == AggregateMean || a == AggregateMedian
}

func (a Aggregation) String() string {
	switch a {
	case AggregateMean:
		return "mean"
	case AggregateMedian:
		return "median"
	default:
		return "unknown"
	}
}

func (a Aggregation) apply(vals []float64) float64 {
	if a == AggregateMedian {
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return stat.Mean(vals, nil)
}

// trainEnsemble fits one base model per resample. Member trainings are
// independent, so they run on a bounded worker pool; results land in a
// fixed member order regardless of completion order.
func trainEnsemble(factory RegressorFactory, resamples [][]int, x [][]float64, y []float64, workers int, seed int64) ([]member, error) {
	members := make([]member, len(resamples))

	var g errgroup.Group
	g.SetLimit(workers)
	for idx := range resamples {
		idx := idx
		g.Go(func() error {
			subX := make([][]float64, len(resamples[idx]))
			subY := make([]float64, len(resamples[idx]))
			for j, i := range resamples[idx] {
				subX[j] = x[i]
				subY[j] = y[i]
			}
			mdl := factory(seed ^ int64(idx))
			if err := mdl.Fit(subX, subY); err != nil {
				return err
			}
			members[idx] = member{model: mdl, oob: oobMask(len(y), resamples[idx])}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

// memberPredictions runs every member over the batch in parallel and
// returns predictions indexed [member][point].
func memberPredictions(members []member, x [][]float64, workers int) ([][]float64, error) {
	preds := make([][]float64, len(members))

	var g errgroup.Group
	g.SetLimit(workers)
	for idx := range members {
		idx := idx
		g.Go(func() error {
			p, err := members[idx].model.Predict(x)
			if err != nil {
				return err
			}
			preds[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// aggregateAll combines every member's prediction per point, treating all
// members as eligible. This is the point-forecast path and the online
// residual path, where no member has seen the point in-bag.
func aggregateAll(agg Aggregation, preds [][]float64, points int) []float64 {
	out := make([]float64, points)
	vals := make([]float64, len(preds))
	for i := 0; i < points; i++ {
		for m := range preds {
			vals[m] = preds[m][i]
		}
		out[i] = agg.apply(vals)
	}
	return out
}
