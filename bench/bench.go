// Package bench provides concrete optimization problems, most of them
// benchmark functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization, and tools for
// running a swarm against them.  Every problem is framed for maximization:
// classic minimization benchmarks are negated so their global optimum is a
// maximum.
package bench

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	optim "github.com/AdejuwonF/swarm-optimization"
	"github.com/AdejuwonF/swarm-optimization/mesh"
	"github.com/AdejuwonF/swarm-optimization/pop"
	"github.com/AdejuwonF/swarm-optimization/swarm"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
)

var AllFuncs = []Func{
	Sum{Max: 10, NDim: 5},
	SumFeasible{Max: 10, NDim: 5},
	Ackley{NDim: 2},
	Ackley{NDim: 3},
	Rosenbrock{NDim: 2},
	Rastrigin{NDim: 5},
	Styblinski{NDim: 2},
	Styblinski{NDim: 10},
	Eggholder{},
	Wedge,
}

// Func is a problem with known optima.
type Func interface {
	optim.Problem
	Name() string
	Optima() []optim.Point
}

// Lookup returns the function in AllFuncs with the given name.
func Lookup(name string) (Func, bool) {
	for _, fn := range AllFuncs {
		if fn.Name() == name {
			return fn, true
		}
	}
	return nil, false
}

// New builds the benchmark problem of the named family in dim dimensions.
// Eggholder and Wedge ignore dim; the Sum families use Max 10.
func New(name string, dim int) (Func, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("bench: dimension %d must be positive", dim)
	}
	switch strings.ToLower(name) {
	case "sum":
		return Sum{Max: 10, NDim: dim}, nil
	case "sumfeasible":
		return SumFeasible{Max: 10, NDim: dim}, nil
	case "ackley":
		return Ackley{NDim: dim}, nil
	case "rosenbrock":
		return Rosenbrock{NDim: dim}, nil
	case "rastrigin":
		return Rastrigin{NDim: dim}, nil
	case "styblinski":
		return Styblinski{NDim: dim}, nil
	case "eggholder":
		return Eggholder{}, nil
	case "wedge":
		return Wedge, nil
	}
	return nil, fmt.Errorf("bench: unknown problem %q", name)
}

func uniform(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}

// boxed provides the initializers and projection shared by problems that
// live in the box [-Bound, Bound] in every dimension.
type boxed struct {
	NDim  int
	Bound float64
}

func (b boxed) Dim() int { return b.NDim }

func (b boxed) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, b.NDim, -b.Bound, b.Bound)
}

func (b boxed) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, b.NDim, -1, 1)
}

func (b boxed) Project(x *mat.Dense) *mat.Dense {
	return mesh.Apply(x, mesh.NewBox(b.NDim, -b.Bound, b.Bound))
}

// Sum maximizes the sum of all components, each clipped to [-Max, Max].
// Particles start in [-2*Max, 2*Max] so the clipping is exercised.
type Sum struct {
	Max  float64
	NDim int
}

func (fn Sum) Name() string { return fmt.Sprintf("Sum_%vD", fn.NDim) }

func (fn Sum) Dim() int { return fn.NDim }

func (fn Sum) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, fn.NDim, -2*fn.Max, 2*fn.Max)
}

func (fn Sum) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return optim.Base{NDim: fn.NDim}.InitVelocities(rng, n)
}

func (fn Sum) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, floats.Sum, 1), nil
}

func (fn Sum) Project(x *mat.Dense) *mat.Dense {
	return mesh.Apply(x, mesh.NewBox(fn.NDim, -fn.Max, fn.Max))
}

func (fn Sum) Optima() []optim.Point {
	return []optim.Point{
		optim.NewPoint(uniform(fn.NDim, fn.Max), fn.Max*float64(fn.NDim)),
	}
}

// SumFeasible maximizes the sum of all components without any projection;
// points with a component at or above Max are scored optim.Infeasible.  The
// optimum is a supremum approached from inside the feasible region.
type SumFeasible struct {
	Max  float64
	NDim int
}

func (fn SumFeasible) Name() string { return fmt.Sprintf("SumFeasible_%vD", fn.NDim) }

func (fn SumFeasible) Dim() int { return fn.NDim }

func (fn SumFeasible) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return Sum(fn).InitPositions(rng, n)
}

func (fn SumFeasible) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return Sum(fn).InitVelocities(rng, n)
}

func (fn SumFeasible) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, func(v []float64) float64 {
		if floats.Max(v) >= fn.Max {
			return optim.Infeasible
		}
		return floats.Sum(v)
	}, 1), nil
}

func (fn SumFeasible) Project(x *mat.Dense) *mat.Dense { return x }

func (fn SumFeasible) Optima() []optim.Point { return Sum(fn).Optima() }

// Ackley is the negated Ackley function with maximum 0 at the origin.  Zero
// A, B and C take the conventional values 20, 0.2 and 2*pi.
type Ackley struct {
	A, B, C float64
	NDim    int
}

func (fn Ackley) params() (a, b, c float64) {
	a, b, c = fn.A, fn.B, fn.C
	if a == 0 {
		a = 20
	}
	if b == 0 {
		b = 0.2
	}
	if c == 0 {
		c = 2 * math.Pi
	}
	return a, b, c
}

func (fn Ackley) Name() string { return fmt.Sprintf("Ackley_%vD", fn.NDim) }

func (fn Ackley) Dim() int { return fn.NDim }

func (fn Ackley) box() boxed { return boxed{NDim: fn.NDim, Bound: 5} }

func (fn Ackley) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitPositions(rng, n)
}

func (fn Ackley) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitVelocities(rng, n)
}

func (fn Ackley) Project(x *mat.Dense) *mat.Dense { return fn.box().Project(x) }

func (fn Ackley) Evaluate(x *mat.Dense) ([]float64, error) {
	a, b, c := fn.params()
	d := float64(fn.NDim)
	return optim.EvalRows(x, func(v []float64) float64 {
		sq, cs := 0.0, 0.0
		for _, xi := range v {
			sq += xi * xi
			cs += cos(c * xi)
		}
		val := -a*exp(-b*sqrt(sq/d)) - exp(cs/d)
		return -(val + a + math.E)
	}, 1), nil
}

func (fn Ackley) Optima() []optim.Point {
	return []optim.Point{
		optim.NewPoint(make([]float64, fn.NDim), 0),
	}
}

// Rosenbrock is the negated Rosenbrock function
//
//	sum_i (A - x_i)^2 + B*(x_{i+1} - x_i^2)^2
//
// Zero A and B take the conventional values 1 and 100; zero NDim means 2.
type Rosenbrock struct {
	A, B float64
	NDim int
}

func (fn Rosenbrock) params() (a, b float64, ndim int) {
	a, b, ndim = fn.A, fn.B, fn.NDim
	if a == 0 {
		a = 1
	}
	if b == 0 {
		b = 100
	}
	if ndim == 0 {
		ndim = 2
	}
	return a, b, ndim
}

func (fn Rosenbrock) Name() string {
	_, _, ndim := fn.params()
	return fmt.Sprintf("Rosenbrock_%vD", ndim)
}

func (fn Rosenbrock) Dim() int {
	_, _, ndim := fn.params()
	return ndim
}

func (fn Rosenbrock) box() boxed { return boxed{NDim: fn.Dim(), Bound: 5} }

func (fn Rosenbrock) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitPositions(rng, n)
}

func (fn Rosenbrock) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitVelocities(rng, n)
}

func (fn Rosenbrock) Project(x *mat.Dense) *mat.Dense { return fn.box().Project(x) }

func (fn Rosenbrock) Evaluate(x *mat.Dense) ([]float64, error) {
	a, b, _ := fn.params()
	return optim.EvalRows(x, func(v []float64) float64 {
		tot := 0.0
		for i := 0; i < len(v)-1; i++ {
			tot += (a-v[i])*(a-v[i]) + b*math.Pow(v[i+1]-v[i]*v[i], 2)
		}
		return -tot
	}, 1), nil
}

// Optima returns nil when the optimum has no closed form, i.e. for A != 1
// in more than two dimensions.
func (fn Rosenbrock) Optima() []optim.Point {
	a, _, ndim := fn.params()
	switch {
	case ndim == 2:
		return []optim.Point{optim.NewPoint([]float64{a, a * a}, 0)}
	case a == 1:
		return []optim.Point{optim.NewPoint(uniform(ndim, 1), 0)}
	}
	return nil
}

// Rastrigin is the negated Rastrigin function with maximum 0 at the origin.
type Rastrigin struct {
	NDim int
}

func (fn Rastrigin) Name() string { return fmt.Sprintf("Rastrigin_%vD", fn.NDim) }

func (fn Rastrigin) Dim() int { return fn.NDim }

func (fn Rastrigin) box() boxed { return boxed{NDim: fn.NDim, Bound: 5.12} }

func (fn Rastrigin) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitPositions(rng, n)
}

func (fn Rastrigin) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitVelocities(rng, n)
}

func (fn Rastrigin) Project(x *mat.Dense) *mat.Dense { return fn.box().Project(x) }

func (fn Rastrigin) Evaluate(x *mat.Dense) ([]float64, error) {
	const a = 10
	return optim.EvalRows(x, func(v []float64) float64 {
		tot := a * float64(len(v))
		for _, xi := range v {
			tot += xi*xi - a*cos(2*math.Pi*xi)
		}
		return -tot
	}, 1), nil
}

func (fn Rastrigin) Optima() []optim.Point {
	return []optim.Point{
		optim.NewPoint(make([]float64, fn.NDim), 0),
	}
}

// Styblinski is the negated Styblinski-Tang function.
type Styblinski struct {
	NDim int
}

func (fn Styblinski) Name() string { return fmt.Sprintf("Styblinski_%vD", fn.NDim) }

func (fn Styblinski) Dim() int { return fn.NDim }

func (fn Styblinski) box() boxed { return boxed{NDim: fn.NDim, Bound: 5} }

func (fn Styblinski) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitPositions(rng, n)
}

func (fn Styblinski) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitVelocities(rng, n)
}

func (fn Styblinski) Project(x *mat.Dense) *mat.Dense { return fn.box().Project(x) }

func (fn Styblinski) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, func(v []float64) float64 {
		tot := 0.0
		for _, xi := range v {
			tot += math.Pow(xi, 4) - 16*xi*xi + 5*xi
		}
		return -tot / 2
	}, 1), nil
}

func (fn Styblinski) Optima() []optim.Point {
	return []optim.Point{
		optim.NewPoint(uniform(fn.NDim, -2.903534027771178), 39.16616570377142*float64(fn.NDim)),
	}
}

// Eggholder is the negated two dimensional Eggholder function on
// [-512, 512]^2.
type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) Dim() int { return 2 }

func (fn Eggholder) box() boxed { return boxed{NDim: 2, Bound: 512} }

func (fn Eggholder) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitPositions(rng, n)
}

func (fn Eggholder) InitVelocities(rng *rand.Rand, n int) *mat.Dense {
	return fn.box().InitVelocities(rng, n)
}

func (fn Eggholder) Project(x *mat.Dense) *mat.Dense { return fn.box().Project(x) }

func (fn Eggholder) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, func(v []float64) float64 {
		px, py := v[0], v[1]
		return (py+47)*sin(sqrt(abs(py+px/2+47))) + px*sin(sqrt(abs(px-(py+47))))
	}, 1), nil
}

func (fn Eggholder) Optima() []optim.Point {
	return []optim.Point{
		optim.NewPoint([]float64{512, 404.2319}, 959.6407),
	}
}

// Benchmark steps s until its best score is within tol (relative, with an
// absolute floor of 0.001) of fn's first optimum or maxiter iterations have
// run.  It returns the best point and the number of iterations performed.
func Benchmark(s *swarm.Solver, fn Func, tol float64, maxiter int) (best optim.Point, niter int, err error) {
	optima := fn.Optima()
	if len(optima) == 0 {
		return s.Result(), 0, fmt.Errorf("bench: %v has no known optimum", fn.Name())
	}
	optimum := optima[0].Val
	thresh := tol * abs(optimum)
	if 0.001 > thresh {
		thresh = 0.001
	}

	best = s.Result()
	for niter < maxiter && abs(optimum-best.Val) >= thresh {
		if _, err = s.Step(); err != nil {
			return s.Result(), niter, err
		}
		niter++
		best = s.Result()
	}
	return best, niter, nil
}

// InsideBounds reports whether p lies in the box [low, up].
func InsideBounds(p, low, up []float64) bool {
	for i := range p {
		if p[i] < low[i] || p[i] > up[i] {
			return false
		}
	}
	return true
}
