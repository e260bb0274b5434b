package speech

import (
	"fmt"
	"math"

	"github.com/memorylane/backend/internal/models"
)

// pivotTolerance is the smallest pivot magnitude accepted during
// elimination. Below it the regularized system is treated as singular.
const pivotTolerance = 1e-12

// solve solves A·x = b in place via Gaussian elimination with partial
// pivoting. A must be square. Returns ErrNumerical if a pivot falls below
// tolerance, which signals degenerate training data that even the ridge
// term could not stabilize.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)

	for col := 0; col < n; col++ {
		// Pick the row with the largest pivot.
		pivotRow := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivotRow][col]) {
				pivotRow = row
			}
		}
		if math.Abs(a[pivotRow][col]) < pivotTolerance {
			return nil, fmt.Errorf("%w: singular normal equations (pivot %e at column %d)",
				models.ErrNumerical, a[pivotRow][col], col)
		}
		a[col], a[pivotRow] = a[pivotRow], a[col]
		b[col], b[pivotRow] = b[pivotRow], b[col]

		// Eliminate below.
		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	// Back substitution.
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
