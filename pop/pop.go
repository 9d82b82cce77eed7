// Package pop generates initial particle populations.  Every generator
// returns an n by ndims matrix with one particle per row.
package pop

import (
	"math"

	"github.com/petar/GoLLRB/llrb"
	"gonum.org/v1/gonum/mat"
)

// Rng is the source of uniform [0,1) samples used by the generators.
// *rand.Rand from math/rand/v2 satisfies it.
type Rng interface {
	Float64() float64
}

// New generates n points uniformly distributed in the box bounded by low and
// up.  The number of dimensions is equal to len(low).
func New(rng Rng, n int, low, up []float64) *mat.Dense {
	if len(low) != len(up) {
		panic("low and up vectors are not same length")
	}

	ndims := len(low)
	points := mat.NewDense(n, ndims, nil)
	for i := 0; i < n; i++ {
		row := points.RawRowView(i)
		for j := range row {
			row[j] = low[j] + rng.Float64()*(up[j]-low[j])
		}
	}
	return points
}

// Cube samples n points uniformly from the cube with corners at
// (min, min, ...) and (max, max, ...).
func Cube(rng Rng, n, ndims int, min, max float64) *mat.Dense {
	points := mat.NewDense(n, ndims, nil)
	for i := 0; i < n; i++ {
		row := points.RawRowView(i)
		for j := range row {
			row[j] = min + rng.Float64()*(max-min)
		}
	}
	return points
}

type item struct {
	pos    []float64
	howbad float64
	seq    int
}

func (p1 item) Less(than llrb.Item) bool {
	p2 := than.(item)
	if p1.howbad != p2.howbad {
		return p1.howbad < p2.howbad
	}
	return p1.seq < p2.seq
}

// NewConstr tries to generate a random population of n feasible points
// satisfying the linear constraints "low <= Ax <= up". lb and ub define lower
// and upper box bounds for the variables.  NewConstr generates random points
// within the box bounds and keeps all feasible points.  It queues up the
// least unfavorable infeasible points in case n feasible ones cannot be found
// within maxiter, which must be at least n.  nbad is the number of returned
// points that violate the constraints and iter is the number of candidates
// drawn.
func NewConstr(rng Rng, n, maxiter int, lb, ub []float64, low, A, up *mat.Dense) (points *mat.Dense, nbad, iter int) {
	stackA, b, ranges := StackConstr(low, A, up)
	_, ndims := A.Dims()
	if len(lb) != ndims || len(ub) != ndims {
		panic("box bound lengths do not match constraint matrix columns")
	} else if maxiter < n {
		panic("maxiter must be at least n")
	}

	points = mat.NewDense(n, ndims, nil)
	nfeas := 0

	violaters := llrb.New()
	ax := mat.NewVecDense(stackA.RawMatrix().Rows, nil)
	for iter = 0; iter < maxiter && nfeas < n; iter++ {
		pos := make([]float64, ndims)
		for j := range pos {
			pos[j] = lb[j] + rng.Float64()*(ub[j]-lb[j])
		}

		howbad := Violation(ax, stackA, b, ranges, pos)
		if howbad == 0 {
			points.SetRow(nfeas, pos)
			nfeas++
			continue
		}

		violaters.InsertNoReplace(item{pos: pos, howbad: howbad, seq: iter})
		for violaters.Len() > n-nfeas {
			violaters.DeleteMax()
		}
	}

	nbad = n - nfeas
	for i := nfeas; i < n; i++ {
		points.SetRow(i, violaters.DeleteMin().(item).pos)
	}
	return points, nbad, iter
}

// StackConstr converts the double-sided constraints "low <= Ax <= up" into
// the single-sided form "stackA x <= b" by stacking [A; -A] and [up; -low].
// ranges holds a normalization width per stacked row; it is up-low for the
// row's constraint, or 1 where that width is zero.
func StackConstr(low, A, up *mat.Dense) (stackA, b *mat.Dense, ranges []float64) {
	m, _ := A.Dims()
	if lm, _ := low.Dims(); lm != m {
		panic("low has wrong number of rows for constraint matrix")
	} else if um, _ := up.Dims(); um != m {
		panic("up has wrong number of rows for constraint matrix")
	}

	negA := &mat.Dense{}
	negA.Scale(-1, A)
	stackA = &mat.Dense{}
	stackA.Stack(A, negA)

	neglow := &mat.Dense{}
	neglow.Scale(-1, low)
	b = &mat.Dense{}
	b.Stack(up, neglow)

	ranges = make([]float64, 2*m)
	for i := 0; i < m; i++ {
		w := up.At(i, 0) - low.At(i, 0)
		if w == 0 || math.IsInf(w, 0) {
			w = 1
		}
		ranges[i] = w
		ranges[m+i] = w
	}
	return stackA, b, ranges
}

// Violation returns the sum of range-normalized amounts by which pos violates
// "stackA pos <= b".  ax is scratch space with one element per row of stackA.
// A feasible pos has zero violation.
func Violation(ax *mat.VecDense, stackA, b *mat.Dense, ranges []float64, pos []float64) float64 {
	ax.MulVec(stackA, mat.NewVecDense(len(pos), pos))
	howbad := 0.0
	for i := 0; i < ax.Len(); i++ {
		if diff := ax.AtVec(i) - b.At(i, 0); diff > 0 {
			howbad += diff / ranges[i]
		}
	}
	return howbad
}
