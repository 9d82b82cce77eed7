package optim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/AdejuwonF/swarm-optimization/pop"
)

// Infeasible is the score an objective assigns to a candidate that violates
// its feasibility constraints.  It is the most negative finite float64, so
// arithmetic on scores stays finite and an infeasible candidate loses every
// comparison against a feasible one.
const Infeasible = -math.MaxFloat64

// Problem is the capability set a solver consumes.  Every matrix exchanged
// through a Problem has one row per particle and Dim() columns.
type Problem interface {
	// Dim returns the number of variables being optimized.  It must not
	// change over the lifetime of the problem.
	Dim() int

	// InitPositions returns an n by Dim() matrix of starting positions.
	InitPositions(rng *rand.Rand, n int) *mat.Dense

	// InitVelocities returns an n by Dim() matrix of starting velocities.
	InitVelocities(rng *rand.Rand, n int) *mat.Dense

	// Evaluate returns one score per row of x.  Higher scores are better.
	// Infeasible rows must be scored with Infeasible rather than an infinite
	// or NaN value.
	Evaluate(x *mat.Dense) ([]float64, error)

	// Project applies purely component-wise constraints (box clipping,
	// fixed coordinates, ...) to each row of x and returns the result.  It
	// may modify x in place.  Project must treat rows independently and
	// must be idempotent.
	Project(x *mat.Dense) *mat.Dense
}

// Base provides the default Problem behavior and is meant to be embedded by
// concrete problems: positions and velocities are sampled uniformly from
// [-1, 1], projection is the identity, and Evaluate fails with
// ErrObjectiveNotImplemented.
type Base struct {
	NDim int
}

func (b Base) Dim() int { return b.NDim }

func (b Base) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, b.NDim, -1, 1)
}

func (b Base) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, b.NDim, -1, 1)
}

func (b Base) Evaluate(x *mat.Dense) ([]float64, error) {
	return nil, ErrObjectiveNotImplemented
}

func (b Base) Project(x *mat.Dense) *mat.Dense { return x }
