package bench

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	optim "github.com/AdejuwonF/swarm-optimization"
	"github.com/AdejuwonF/swarm-optimization/mesh"
	"github.com/AdejuwonF/swarm-optimization/pop"
)

// LinearProgram maximizes c'x over the box [lb, ub] subject to the linear
// constraints "low <= Ax <= up".  The box is enforced by projection; rows
// violating the linear constraints score optim.Infeasible.  Starting
// positions come from pop.NewConstr, so as many particles as possible start
// feasible and the rest are the least infeasible candidates drawn.
type LinearProgram struct {
	c, lb, ub  []float64
	low, a, up *mat.Dense
	stackA, b  *mat.Dense
	ranges     []float64

	// MaxIter caps the candidates drawn per InitPositions call.  Zero means
	// 100 per particle.
	MaxIter int
	// Known holds the optimum when it has been worked out by hand.
	Known []optim.Point
}

// NewLinearProgram copies its arguments into a new LinearProgram.  low and
// up are column vectors with one row per row of A; use math.Inf for
// one-sided constraints.
func NewLinearProgram(c, lb, ub []float64, low, A, up *mat.Dense) (*LinearProgram, error) {
	m, d := A.Dims()
	if len(c) != d || len(lb) != d || len(ub) != d {
		return nil, fmt.Errorf("%w: objective and box need %d elements, got %d, %d, %d",
			optim.ErrDimensionMismatch, d, len(c), len(lb), len(ub))
	}
	if err := optim.CheckShape(low, m, 1, "lower constraint bound"); err != nil {
		return nil, err
	}
	if err := optim.CheckShape(up, m, 1, "upper constraint bound"); err != nil {
		return nil, err
	}

	lp := &LinearProgram{
		c:   append([]float64{}, c...),
		lb:  append([]float64{}, lb...),
		ub:  append([]float64{}, ub...),
		low: mat.DenseCopyOf(low),
		a:   mat.DenseCopyOf(A),
		up:  mat.DenseCopyOf(up),
	}
	lp.stackA, lp.b, lp.ranges = pop.StackConstr(lp.low, lp.a, lp.up)
	return lp, nil
}

func mustLinearProgram(c, lb, ub []float64, low, A, up *mat.Dense, known ...optim.Point) *LinearProgram {
	lp, err := NewLinearProgram(c, lb, ub, low, A, up)
	if err != nil {
		panic(err)
	}
	lp.Known = known
	return lp
}

// Wedge maximizes 2*x0 + x1 on [0, 10]^2 with x0 + x1 <= 4.  Only 8% of
// the box is feasible and the optimum sits on the corner (4, 0).
var Wedge = mustLinearProgram(
	[]float64{2, 1},
	[]float64{0, 0}, []float64{10, 10},
	mat.NewDense(1, 1, []float64{math.Inf(-1)}),
	mat.NewDense(1, 2, []float64{1, 1}),
	mat.NewDense(1, 1, []float64{4}),
	optim.NewPoint([]float64{4, 0}, 8),
)

func (lp *LinearProgram) Name() string { return fmt.Sprintf("LinearProgram_%vD", len(lp.c)) }

func (lp *LinearProgram) Dim() int { return len(lp.c) }

func (lp *LinearProgram) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	maxiter := lp.MaxIter
	if maxiter == 0 {
		maxiter = 100 * n
	}
	if maxiter < n {
		maxiter = n
	}
	points, _, _ := pop.NewConstr(rng, n, maxiter, lp.lb, lp.ub, lp.low, lp.a, lp.up)
	return points
}

// InitVelocities samples each component from a tenth of the box width in
// either direction.
func (lp *LinearProgram) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	low := make([]float64, len(lp.lb))
	up := make([]float64, len(lp.ub))
	for i := range low {
		w := (lp.ub[i] - lp.lb[i]) / 10
		low[i], up[i] = -w, w
	}
	return pop.New(rng, n, low, up)
}

func (lp *LinearProgram) Project(x *mat.Dense) *mat.Dense {
	return mesh.Apply(x, &mesh.Box{Lower: lp.lb, Upper: lp.ub})
}

func (lp *LinearProgram) Evaluate(x *mat.Dense) ([]float64, error) {
	n, d := x.Dims()
	if d != len(lp.c) {
		return nil, fmt.Errorf("%w: linear program got %d columns, want %d", optim.ErrDimensionMismatch, d, len(lp.c))
	}
	ax := mat.NewVecDense(lp.stackA.RawMatrix().Rows, nil)
	scores := make([]float64, n)
	for i := range scores {
		row := x.RawRowView(i)
		if pop.Violation(ax, lp.stackA, lp.b, lp.ranges, row) > 0 {
			scores[i] = optim.Infeasible
			continue
		}
		scores[i] = floats.Dot(lp.c, row)
	}
	return scores, nil
}

func (lp *LinearProgram) Optima() []optim.Point { return lp.Known }
