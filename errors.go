package optim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrObjectiveNotImplemented is returned when a problem without an
	// objective function is evaluated.
	ErrObjectiveNotImplemented = errors.New("optim: objective not implemented")

	// ErrDimensionMismatch is returned when a matrix or score slice produced
	// by a problem does not have the expected particle count and dimension.
	ErrDimensionMismatch = errors.New("optim: dimension mismatch")
)

// CheckShape verifies that m is a rows by cols matrix.  what names the
// producer of m in the returned error.
func CheckShape(m *mat.Dense, rows, cols int, what string) error {
	if m == nil {
		return fmt.Errorf("%w: %s returned nil, want %dx%d", ErrDimensionMismatch, what, rows, cols)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%w: %s returned %dx%d, want %dx%d", ErrDimensionMismatch, what, r, c, rows, cols)
	}
	return nil
}

// CheckScores verifies that an objective returned exactly n scores.
func CheckScores(scores []float64, n int) error {
	if len(scores) != n {
		return fmt.Errorf("%w: objective returned %d scores, want %d", ErrDimensionMismatch, len(scores), n)
	}
	return nil
}
