// Package ridge provides a ridge-regularized linear regressor solving the
// normal equations directly. It serves as a base model for ensemble
// methods that treat their regressor as opaque.
package ridge

import (
	"errors"
	"fmt"
)

var (
	ErrNotFitted = errors.New("model is not fitted")
	ErrSingular  = errors.New("normal equations are singular")
)

type Model struct {
	lambda    float64
	intercept float64
	weights   []float64
	fitted    bool
}

// New creates a regressor with the given L2 penalty. A small positive
// lambda keeps the normal equations well conditioned on collinear lagged
// features.
func New(lambda float64) *Model {
	if lambda < 0 {
		lambda = 0
	}
	return &Model{lambda: lambda}
}

func (m *Model) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("ridge: feature rows %d and targets %d must match and be non-empty", len(x), len(y))
	}

	cols := len(x[0])
	design := make([][]float64, len(x))
	for i := range x {
		if len(x[i]) != cols {
			return fmt.Errorf("ridge: feature row %d has %d columns, expected %d", i, len(x[i]), cols)
		}
		row := make([]float64, cols+1)
		row[0] = 1
		copy(row[1:], x[i])
		design[i] = row
	}

	solution := solveRidgeNormalEquations(design, y, m.lambda)
	if solution == nil {
		return ErrSingular
	}

	m.intercept = solution[0]
	m.weights = solution[1:]
	m.fitted = true
	return nil
}

func (m *Model) Predict(x [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(x))
	for i := range x {
		if len(x[i]) != len(m.weights) {
			return nil, fmt.Errorf("ridge: feature row %d has %d columns, expected %d", i, len(x[i]), len(m.weights))
		}
		v := m.intercept
		for j, w := range m.weights {
			v += w * x[i][j]
		}
		out[i] = v
	}
	return out, nil
}

// Coefficients returns the fitted intercept and weights.
func (m *Model) Coefficients() (intercept float64, weights []float64) {
	return m.intercept, m.weights
}
