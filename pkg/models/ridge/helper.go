package ridge

import "math"

// solveLinearSystem solves Ax = b by Gaussian elimination with partial
// pivoting. Returns nil when A is singular or the shapes disagree.
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)
	if n == 0 || len(A) != n {
		return nil
	}

	augmented := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(A[i]) != n {
			return nil
		}
		augmented[i] = make([]float64, n+1)
		copy(augmented[i], A[i])
		augmented[i][n] = b[i]
	}

	for k := 0; k < n; k++ {
		maxRow := k
		for i := k + 1; i < n; i++ {
			if math.Abs(augmented[i][k]) > math.Abs(augmented[maxRow][k]) {
				maxRow = i
			}
		}
		if maxRow != k {
			augmented[k], augmented[maxRow] = augmented[maxRow], augmented[k]
		}
		if augmented[k][k] == 0 {
			return nil
		}
		for i := k + 1; i < n; i++ {
			factor := augmented[i][k] / augmented[k][k]
			for j := k; j < n+1; j++ {
				augmented[i][j] -= factor * augmented[k][j]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := augmented[i][n]
		for j := i + 1; j < n; j++ {
			sum -= augmented[i][j] * x[j]
		}
		if augmented[i][i] == 0 {
			return nil
		}
		x[i] = sum / augmented[i][i]
	}
	return x
}

// solveRidgeNormalEquations solves (X'X + lambda*I)w = X'y, leaving the
// intercept column (column 0) unpenalized.
func solveRidgeNormalEquations(X [][]float64, y []float64, lambda float64) []float64 {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil
	}

	rows := len(X)
	cols := len(X[0])

	XtX := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		XtX[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			var sum float64
			for k := 0; k < rows; k++ {
				sum += X[k][i] * X[k][j]
			}
			XtX[i][j] = sum
		}
		if i > 0 {
			XtX[i][i] += lambda
		}
	}

	Xty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		var sum float64
		for k := 0; k < rows; k++ {
			sum += X[k][i] * y[k]
		}
		Xty[i] = sum
	}

	return solveLinearSystem(XtX, Xty)
}
