package swarm

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	optim "github.com/AdejuwonF/swarm-optimization"
	"github.com/AdejuwonF/swarm-optimization/mesh"
	"github.com/AdejuwonF/swarm-optimization/pop"
)

// clippedSum maximizes the sum of the components inside [-max, max].
type clippedSum struct {
	optim.Base
	max float64
}

func (p clippedSum) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, p.NDim, -2*p.max, 2*p.max)
}

func (p clippedSum) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, floats.Sum, 1), nil
}

func (p clippedSum) Project(x *mat.Dense) *mat.Dense {
	return mesh.Apply(x, mesh.NewBox(p.NDim, -p.max, p.max))
}

// feasibleSum scores rows with any component >= max as infeasible.
type feasibleSum struct {
	optim.Base
	max float64
}

func (p feasibleSum) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return pop.Cube(rng, n, p.NDim, -2*p.max, 2*p.max)
}

func (p feasibleSum) Evaluate(x *mat.Dense) ([]float64, error) {
	return optim.EvalRows(x, func(v []float64) float64 {
		for _, c := range v {
			if c >= p.max {
				return optim.Infeasible
			}
		}
		return floats.Sum(v)
	}, 1), nil
}

// faulty lets a test break individual callbacks after construction.
type faulty struct {
	clippedSum
	calls     int
	failAfter int
	evalErr   error
	badScores bool
	badProj   bool
}

func (p *faulty) Evaluate(x *mat.Dense) ([]float64, error) {
	p.calls++
	if p.calls > p.failAfter {
		if p.evalErr != nil {
			return nil, p.evalErr
		}
		if p.badScores {
			return []float64{1}, nil
		}
	}
	return p.clippedSum.Evaluate(x)
}

func (p *faulty) Project(x *mat.Dense) *mat.Dense {
	if p.badProj && p.calls >= p.failAfter {
		return mat.NewDense(1, 1, nil)
	}
	return p.clippedSum.Project(x)
}

type wrongShape struct {
	optim.Base
}

func (p wrongShape) InitPositions(rng *rand.Rand, n int) *mat.Dense {
	return mat.NewDense(n, p.NDim+1, nil)
}

func (p wrongShape) Evaluate(x *mat.Dense) ([]float64, error) {
	r, _ := x.Dims()
	return make([]float64, r), nil
}

func newSum(t *testing.T, dim int, opts ...Option) *Solver {
	t.Helper()
	s, err := New(clippedSum{Base: optim.Base{NDim: dim}, max: 10}, opts...)
	require.NoError(t, err)
	return s
}

func checkInvariants(t *testing.T, s *Solver, prev State) State {
	t.Helper()
	st := s.State()
	n, d := st.Positions.Dims()

	for _, v := range st.Velocities.RawMatrix().Data {
		if math.Abs(v) > s.cfg.VelocityClamp {
			t.Fatalf("[FAIL] velocity %v exceeds clamp %v", v, s.cfg.VelocityClamp)
		}
	}

	want := floats.MaxIdx(st.BestScores)
	require.Equal(t, want, st.BestIndex, "global best must be the first argmax of personal bests")

	projected := s.prob.Project(mat.DenseCopyOf(st.Positions))
	require.True(t, mat.Equal(projected, st.Positions), "positions must be fixed points of the projection")

	if prev.BestScores != nil {
		for i := range st.BestScores {
			if st.BestScores[i] < prev.BestScores[i] {
				t.Fatalf("[FAIL] particle %v personal best decreased from %v to %v", i, prev.BestScores[i], st.BestScores[i])
			}
			if st.BestScores[i] == prev.BestScores[i] {
				require.Equal(t, mat.Row(nil, i, prev.Best), mat.Row(nil, i, st.Best))
			}
		}
	}

	r, c := st.Best.Dims()
	require.Equal(t, n, r)
	require.Equal(t, d, c)
	require.Len(t, st.Scores, n)
	return st
}

func TestInvariants(t *testing.T) {
	s := newSum(t, 3, Particles(40), Momentum(0.7), Seed(3))
	st := checkInvariants(t, s, State{})
	for i := 0; i < 200; i++ {
		_, err := s.Step()
		require.NoError(t, err)
		st = checkInvariants(t, s, st)
	}
	assert.Equal(t, 200, s.Niter())
	assert.Equal(t, 40*201, s.Neval())
}

func TestSharedRandomScalars(t *testing.T) {
	prob := clippedSum{Base: optim.Base{NDim: 4}, max: 10}
	s, err := New(prob, Particles(7), Rand(rand.New(rand.NewPCG(9, 9))))
	require.NoError(t, err)

	// replay the generator: initialization draws positions then velocities
	twin := rand.New(rand.NewPCG(9, 9))
	prob.InitPositions(twin, 7)
	prob.InitVelocities(twin, 7)

	before := s.State()
	_, err = s.Step()
	require.NoError(t, err)
	after := s.State()

	a1 := s.cfg.PersonalAttraction * twin.Float64()
	a2 := s.cfg.GlobalAttraction * twin.Float64()
	w := s.cfg.Momentum
	g := mat.Row(nil, before.BestIndex, before.Best)
	for i := 0; i < 7; i++ {
		for j := 0; j < 4; j++ {
			x := before.Positions.At(i, j)
			v := w*before.Velocities.At(i, j) + a1*(before.Best.At(i, j)-x) + a2*(g[j]-x)
			v = math.Min(0.5, math.Max(-0.5, v))
			assert.InDelta(t, v, after.Velocities.At(i, j), 1e-12, "velocity (%d,%d)", i, j)
			assert.InDelta(t, math.Min(10, math.Max(-10, x+v)), after.Positions.At(i, j), 1e-12, "position (%d,%d)", i, j)
		}
	}
}

func TestReproducible(t *testing.T) {
	s1 := newSum(t, 3, Particles(20), Seed(42))
	s2 := newSum(t, 3, Particles(20), Seed(42))
	require.NoError(t, s1.Run(50, DefaultEpsilon))
	require.NoError(t, s2.Run(50, DefaultEpsilon))
	assert.Equal(t, s1.Result(), s2.Result())

	// clippedSum drives every particle to the same corner, so different
	// seeds are only told apart before the swarm collapses
	s3 := newSum(t, 3, Particles(20), Seed(42))
	s4 := newSum(t, 3, Particles(20), Seed(43))
	assert.NotEqual(t, s3.State().Positions.RawMatrix().Data, s4.State().Positions.RawMatrix().Data)
	_, err := s3.Step()
	require.NoError(t, err)
	_, err = s4.Step()
	require.NoError(t, err)
	assert.NotEqual(t, s3.State().Velocities.RawMatrix().Data, s4.State().Velocities.RawMatrix().Data)
}

func TestRunZeroIsNoop(t *testing.T) {
	s := newSum(t, 5, Particles(30))
	before := s.Result()
	require.NoError(t, s.Run(0, DefaultEpsilon))
	assert.Equal(t, before, s.Result())
	assert.Zero(t, s.Niter())
}

func TestRunNegative(t *testing.T) {
	s := newSum(t, 2, Particles(5))
	err := s.Run(-1, DefaultEpsilon)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunEpsilon(t *testing.T) {
	s := newSum(t, 2, Particles(10))
	require.NoError(t, s.Run(100, math.Inf(1)))
	assert.Equal(t, 1, s.Niter(), "any finite delta is below +Inf")

	s = newSum(t, 2, Particles(10))
	require.NoError(t, s.Run(100, DefaultEpsilon))
	assert.Equal(t, 100, s.Niter(), "a negative epsilon never stops early")
}

func TestResultIsSnapshot(t *testing.T) {
	s := newSum(t, 3, Particles(10))
	res := s.Result()
	pos := res.Pos()
	pos[0] = 1e6
	assert.NotEqual(t, 1e6, s.Result().At(0))

	st := s.State()
	assert.Equal(t, st.BestScores[st.BestIndex], res.Val)
	assert.Equal(t, mat.Row(nil, st.BestIndex, st.Best), res.Pos())
	assert.Equal(t, st.BestIndex, s.BestIndex())
}

func TestObjectiveNotImplemented(t *testing.T) {
	_, err := New(optim.Base{NDim: 2}, Particles(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, optim.ErrObjectiveNotImplemented))
}

func TestDimensionMismatch(t *testing.T) {
	_, err := New(wrongShape{Base: optim.Base{NDim: 2}}, Particles(4))
	assert.ErrorIs(t, err, optim.ErrDimensionMismatch)

	p := &faulty{clippedSum: clippedSum{Base: optim.Base{NDim: 2}, max: 10}, failAfter: 0, badScores: true}
	_, err = New(p, Particles(4))
	assert.ErrorIs(t, err, optim.ErrDimensionMismatch)

	p = &faulty{clippedSum: clippedSum{Base: optim.Base{NDim: 2}, max: 10}, failAfter: 1, badProj: true}
	s, err := New(p, Particles(4))
	require.NoError(t, err)
	_, err = s.Step()
	assert.ErrorIs(t, err, optim.ErrDimensionMismatch)
}

func TestStepErrorKeepsState(t *testing.T) {
	boom := errors.New("boom")
	p := &faulty{clippedSum: clippedSum{Base: optim.Base{NDim: 3}, max: 10}, failAfter: 3, evalErr: boom}
	s, err := New(p, Particles(8))
	require.NoError(t, err)
	require.NoError(t, s.Run(2, DefaultEpsilon))

	before := s.State()
	err = s.Run(10, DefaultEpsilon)
	require.ErrorIs(t, err, boom)
	after := s.State()

	assert.Equal(t, 2, s.Niter())
	assert.True(t, mat.Equal(before.Positions, after.Positions))
	assert.True(t, mat.Equal(before.Velocities, after.Velocities))
	assert.Equal(t, before.BestScores, after.BestScores)
}

func TestInfeasibleSentinel(t *testing.T) {
	prob := feasibleSum{Base: optim.Base{NDim: 3}, max: 10}
	s, err := New(prob, Particles(50), Seed(5))
	require.NoError(t, err)

	st := checkInvariants(t, s, State{})
	for i := 0; i < 300; i++ {
		_, err := s.Step()
		require.NoError(t, err)
		st = checkInvariants(t, s, st)

		anyFeasible := false
		for _, v := range st.BestScores {
			if v > optim.Infeasible {
				anyFeasible = true
			}
		}
		if anyFeasible {
			require.Greater(t, st.BestScores[st.BestIndex], optim.Infeasible)
		}
		for _, v := range st.Scores {
			require.False(t, math.IsInf(v, 0) || math.IsNaN(v))
		}
	}

	res := s.Result()
	require.Greater(t, res.Val, optim.Infeasible)
	for i := 0; i < res.Len(); i++ {
		assert.Less(t, res.At(i), 10.0)
	}
}

// nothing is ever feasible: ties never update, so every personal best stays
// at its initial position and the first particle holds the global best.
type neverFeasible struct {
	optim.Base
}

func (p neverFeasible) Evaluate(x *mat.Dense) ([]float64, error) {
	r, _ := x.Dims()
	scores := make([]float64, r)
	for i := range scores {
		scores[i] = optim.Infeasible
	}
	return scores, nil
}

func TestAllInfeasible(t *testing.T) {
	s, err := New(neverFeasible{Base: optim.Base{NDim: 2}}, Particles(6))
	require.NoError(t, err)
	initial := s.State()
	require.NoError(t, s.Run(25, DefaultEpsilon))

	st := s.State()
	assert.Zero(t, st.BestIndex)
	assert.True(t, mat.Equal(initial.Best, st.Best))
	assert.Equal(t, optim.Infeasible, s.Result().Val)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*Config)
		ok   bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero-particles", func(c *Config) { c.Particles = 0 }, false},
		{"zero-clamp", func(c *Config) { c.VelocityClamp = 0 }, false},
		{"nan-clamp", func(c *Config) { c.VelocityClamp = math.NaN() }, false},
		{"inf-clamp", func(c *Config) { c.VelocityClamp = math.Inf(1) }, false},
		{"negative-momentum", func(c *Config) { c.Momentum = -0.1 }, false},
		{"nan-attraction", func(c *Config) { c.GlobalAttraction = math.NaN() }, false},
		{"zero-attraction", func(c *Config) { c.PersonalAttraction = 0 }, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.cfg(&cfg)
			err := cfg.Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}

	_, err := New(clippedSum{Base: optim.Base{NDim: 2}, max: 1}, Particles(-3))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(clippedSum{max: 1}, Particles(3))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptions(t *testing.T) {
	cfg := Config{Momentum: 0.5, PersonalAttraction: 1, GlobalAttraction: 2, Particles: 12, VelocityClamp: 0.25}
	s := newSum(t, 2, WithConfig(cfg))
	assert.Equal(t, cfg, s.Config())

	s = newSum(t, 2, Particles(3), Attraction(0.1, 0.2), VelocityClamp(2), Momentum(0.3))
	assert.Equal(t, Config{Momentum: 0.3, PersonalAttraction: 0.1, GlobalAttraction: 0.2, Particles: 3, VelocityClamp: 2}, s.Config())
}

func TestConstriction(t *testing.T) {
	k := Constriction(2.05, 2.05)
	assert.InDelta(t, 0.7298437881283576, k, 1e-15)
	assert.InDelta(t, 1.496179765663133, k*2.05, 1e-12)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := optim.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newSum(t, 2, Particles(5), WithLogger(l))
	require.NoError(t, s.Run(3, DefaultEpsilon))

	out := buf.String()
	assert.Contains(t, out, `"msg":"swarm initialized"`)
	assert.Contains(t, out, `"msg":"swarm iteration"`)
	assert.Contains(t, out, `"msg":"swarm reached iteration limit"`)
}
