package bench

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	optim "github.com/AdejuwonF/swarm-optimization"
)

// Quadratic scores x with the quadratic form x'Ax + b'x + c.  Particles use
// the default initialization in [-1, 1] and no projection.
type Quadratic struct {
	optim.Base
	a *mat.Dense
	b []float64
	c float64
}

// NewQuadratic copies A, b and c into a new Quadratic.  A must be square with
// one row per element of b.
func NewQuadratic(A *mat.Dense, b []float64, c float64) (*Quadratic, error) {
	r, cols := A.Dims()
	if r != cols {
		return nil, fmt.Errorf("%w: quadratic form matrix is %dx%d, want square", optim.ErrDimensionMismatch, r, cols)
	} else if len(b) != r {
		return nil, fmt.Errorf("%w: linear term has %d elements, want %d", optim.ErrDimensionMismatch, len(b), r)
	}
	return &Quadratic{
		Base: optim.Base{NDim: r},
		a:    mat.DenseCopyOf(A),
		b:    append([]float64{}, b...),
		c:    c,
	}, nil
}

func (fn *Quadratic) Name() string { return fmt.Sprintf("Quadratic_%vD", fn.NDim) }

func (fn *Quadratic) Evaluate(x *mat.Dense) ([]float64, error) {
	n, d := x.Dims()
	if d != fn.NDim {
		return nil, fmt.Errorf("%w: quadratic got %d columns, want %d", optim.ErrDimensionMismatch, d, fn.NDim)
	}

	xa := &mat.Dense{}
	xa.Mul(x, fn.a)

	scores := make([]float64, n)
	for i := range scores {
		row := x.RawRowView(i)
		scores[i] = floats.Dot(xa.RawRowView(i), row) + floats.Dot(fn.b, row) + fn.c
	}
	return scores, nil
}

// Optima returns the stationary point of the form when it is a maximum,
// i.e. when the symmetric part of A is negative definite, and nil otherwise.
func (fn *Quadratic) Optima() []optim.Point {
	d := fn.NDim
	sym := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			sym.SetSym(i, j, (fn.a.At(i, j)+fn.a.At(j, i))/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return nil
	}
	if floats.Max(eig.Values(nil)) >= 0 {
		return nil
	}

	// gradient 2*sym*x + b vanishes at the optimum
	twice := mat.NewSymDense(d, nil)
	twice.ScaleSym(2, sym)
	negb := mat.NewVecDense(d, nil)
	negb.ScaleVec(-1, mat.NewVecDense(d, append([]float64{}, fn.b...)))

	var x mat.VecDense
	if err := x.SolveVec(twice, negb); err != nil {
		return nil
	}
	pos := x.RawVector().Data
	vals, err := fn.Evaluate(mat.NewDense(1, d, append([]float64{}, pos...)))
	if err != nil {
		return nil
	}
	return []optim.Point{optim.NewPoint(pos, vals[0])}
}
