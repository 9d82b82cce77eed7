// Package swarm implements a particle swarm optimizer that maximizes the
// objective of an optim.Problem.
//
// The swarm state (positions, velocities, scores and personal bests) is held
// in dense matrices with one particle per row.  Each iteration draws a
// single pair of uniform random scalars that is shared by every particle and
// every dimension:
//
//	v = momentum*v + personal*r1*(pbest - x) + global*r2*(gbest - x)
//
// after which v is clamped component-wise, x moves by v and is re-projected
// by the problem's constraints.
package swarm

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	optim "github.com/AdejuwonF/swarm-optimization"
)

const (
	DefaultMomentum           = 0.8
	DefaultPersonalAttraction = 1.5
	DefaultGlobalAttraction   = 1.5
	DefaultParticles          = 1000
	DefaultVelocityClamp      = 0.5

	// DefaultMaxIter and DefaultEpsilon are the conventional Run arguments.
	// A negative epsilon disables early stopping because the global best
	// never decreases.
	DefaultMaxIter = 1000
	DefaultEpsilon = -1.0

	// DefaultSeed seeds the solver's generator when no Rand or Seed option
	// is given.
	DefaultSeed = 1
)

// ErrInvalidConfig is returned for configurations the solver cannot run.
var ErrInvalidConfig = errors.New("swarm: invalid configuration")

// Constriction calculates the constriction coefficient for the given c1 and
// c2 for the particle velocity equation:
//
//	v_next = k(v_curr + c1*rand*(p_glob-x) + c2*rand*(p_personal-x))
//
// c1+c2 must be greater than 4.  The returned k can be used as the momentum,
// with c1*k and c2*k as the attraction coefficients.
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

// Config holds the coefficients that stay fixed for a solver's lifetime.
type Config struct {
	Momentum           float64 `json:"momentum"`
	PersonalAttraction float64 `json:"personal_attraction"`
	GlobalAttraction   float64 `json:"global_attraction"`
	Particles          int     `json:"particles"`
	VelocityClamp      float64 `json:"velocity_clamp"`
}

func DefaultConfig() Config {
	return Config{
		Momentum:           DefaultMomentum,
		PersonalAttraction: DefaultPersonalAttraction,
		GlobalAttraction:   DefaultGlobalAttraction,
		Particles:          DefaultParticles,
		VelocityClamp:      DefaultVelocityClamp,
	}
}

// Validate reports whether the solver can run with c.
func (c Config) Validate() error {
	switch {
	case c.Particles <= 0:
		return fmt.Errorf("%w: particle count %d must be positive", ErrInvalidConfig, c.Particles)
	case !(c.VelocityClamp > 0) || math.IsInf(c.VelocityClamp, 0):
		return fmt.Errorf("%w: velocity clamp %v must be positive and finite", ErrInvalidConfig, c.VelocityClamp)
	}
	coeffs := []struct {
		name string
		v    float64
	}{
		{"momentum", c.Momentum},
		{"personal attraction", c.PersonalAttraction},
		{"global attraction", c.GlobalAttraction},
	}
	for _, co := range coeffs {
		if co.v < 0 || math.IsNaN(co.v) || math.IsInf(co.v, 0) {
			return fmt.Errorf("%w: %s %v must be finite and non-negative", ErrInvalidConfig, co.name, co.v)
		}
	}
	return nil
}

type Option func(*Solver)

func WithConfig(cfg Config) Option {
	return func(s *Solver) {
		s.cfg = cfg
	}
}

func Momentum(w float64) Option {
	return func(s *Solver) {
		s.cfg.Momentum = w
	}
}

// Attraction sets the weights of the pull toward each particle's personal
// best and toward the swarm's global best.
func Attraction(personal, global float64) Option {
	return func(s *Solver) {
		s.cfg.PersonalAttraction = personal
		s.cfg.GlobalAttraction = global
	}
}

func Particles(n int) Option {
	return func(s *Solver) {
		s.cfg.Particles = n
	}
}

// VelocityClamp sets the maximum magnitude of every velocity component.
func VelocityClamp(vmax float64) Option {
	return func(s *Solver) {
		s.cfg.VelocityClamp = vmax
	}
}

// Rand sets the generator used for initialization and the per-iteration
// random scalars.  The solver takes ownership of rng.
func Rand(rng *rand.Rand) Option {
	return func(s *Solver) {
		s.rng = rng
	}
}

// Seed gives the solver its own PCG generator seeded with seed.
func Seed(seed uint64) Option {
	return func(s *Solver) {
		s.rng = rand.New(rand.NewPCG(seed, 0))
	}
}

func WithLogger(l *optim.Logger) Option {
	return func(s *Solver) {
		s.log = l
	}
}

// DB records the swarm's state after construction and after every iteration
// into the trace tables of db.
func DB(db *sql.DB) Option {
	return func(s *Solver) {
		s.db = db
	}
}

// Solver owns the swarm state and advances it one iteration at a time.
type Solver struct {
	prob optim.Problem
	cfg  Config
	rng  *rand.Rand
	log  *optim.Logger
	db   *sql.DB

	pos        *mat.Dense
	vel        *mat.Dense
	scores     []float64
	best       *mat.Dense
	bestScores []float64
	gbest      int

	// scratch space for the next iteration's velocities
	tmpVel *mat.Dense

	count int
	neval int
}

// New builds the initial swarm for p: positions are generated and projected,
// velocities generated and clamped, and every particle is evaluated once.
// The default configuration is DefaultConfig.
func New(p optim.Problem, opts ...Option) (*Solver, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", ErrInvalidConfig)
	}

	s := &Solver{
		prob: p,
		cfg:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(DefaultSeed, 0))
	}
	if s.log == nil {
		s.log = optim.NoopLogger()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	n, d := s.cfg.Particles, p.Dim()
	if d <= 0 {
		return nil, fmt.Errorf("%w: problem dimension %d must be positive", ErrInvalidConfig, d)
	}

	pos := p.InitPositions(s.rng, n)
	if err := optim.CheckShape(pos, n, d, "InitPositions"); err != nil {
		return nil, err
	}
	pos = p.Project(pos)
	if err := optim.CheckShape(pos, n, d, "Project"); err != nil {
		return nil, err
	}

	vel := p.InitVelocities(s.rng, n)
	if err := optim.CheckShape(vel, n, d, "InitVelocities"); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		clampAll(vel.RawRowView(i), s.cfg.VelocityClamp)
	}

	scores, err := s.evaluate(pos)
	if err != nil {
		return nil, err
	}

	s.pos = pos
	s.vel = vel
	s.tmpVel = mat.NewDense(n, d, nil)
	s.scores = scores
	s.best = mat.DenseCopyOf(pos)
	s.bestScores = append([]float64{}, scores...)
	s.gbest = argmax(s.bestScores)

	if err := s.initdb(); err != nil {
		return nil, err
	}
	if err := s.updateDb(); err != nil {
		return nil, err
	}

	s.log.Info("swarm initialized",
		slog.Int("particles", n),
		slog.Int("dim", d),
		slog.Float64("best", s.bestScores[s.gbest]),
	)
	return s, nil
}

func (s *Solver) evaluate(x *mat.Dense) ([]float64, error) {
	scores, err := s.prob.Evaluate(x)
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	if err := optim.CheckScores(scores, n); err != nil {
		return nil, err
	}
	s.neval += n
	return scores, nil
}

// Step performs a single iteration and returns how much the global best
// score improved.  If projection or evaluation fails the swarm state is
// left as it was before the call.
func (s *Solver) Step() (delta float64, err error) {
	r1 := s.rng.Float64()
	r2 := s.rng.Float64()
	// the attraction weights are shared by every particle and dimension
	a1 := s.cfg.PersonalAttraction * r1
	a2 := s.cfg.GlobalAttraction * r2
	w := s.cfg.Momentum
	vmax := s.cfg.VelocityClamp

	n, d := s.pos.Dims()
	prev := s.bestScores[s.gbest]
	gpos := s.best.RawRowView(s.gbest)

	next := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		x := s.pos.RawRowView(i)
		v := s.vel.RawRowView(i)
		pb := s.best.RawRowView(i)
		nv := s.tmpVel.RawRowView(i)
		nx := next.RawRowView(i)
		for j := range nv {
			nv[j] = clamp(w*v[j]+a1*(pb[j]-x[j])+a2*(gpos[j]-x[j]), vmax)
			nx[j] = x[j] + nv[j]
		}
	}

	projected := s.prob.Project(next)
	if err := optim.CheckShape(projected, n, d, "Project"); err != nil {
		return 0, err
	}
	scores, err := s.evaluate(projected)
	if err != nil {
		return 0, err
	}

	s.pos = projected
	s.vel, s.tmpVel = s.tmpVel, s.vel
	s.scores = scores
	for i, val := range scores {
		if val > s.bestScores[i] {
			s.bestScores[i] = val
			s.best.SetRow(i, s.pos.RawRowView(i))
		}
	}
	s.gbest = argmax(s.bestScores)
	s.count++

	delta = s.bestScores[s.gbest] - prev
	if err := s.updateDb(); err != nil {
		return delta, err
	}

	s.log.Debug("swarm iteration",
		slog.Int("iter", s.count),
		slog.Float64("best", s.bestScores[s.gbest]),
		slog.Float64("delta", delta),
	)
	return delta, nil
}

// Run advances the swarm until maxiter iterations have completed or an
// iteration improves the global best by less than epsilon.  A maxiter of
// zero leaves the swarm untouched.
func (s *Solver) Run(maxiter int, epsilon float64) error {
	if maxiter < 0 {
		return fmt.Errorf("%w: negative iteration limit %d", ErrInvalidConfig, maxiter)
	}
	for i := 0; i < maxiter; i++ {
		delta, err := s.Step()
		if err != nil {
			return err
		}
		if delta < epsilon {
			s.log.Info("swarm converged",
				slog.Int("iter", s.count),
				slog.Float64("delta", delta),
				slog.Float64("epsilon", epsilon),
				slog.Float64("best", s.bestScores[s.gbest]),
			)
			return nil
		}
	}
	s.log.Info("swarm reached iteration limit",
		slog.Int("iter", s.count),
		slog.Float64("best", s.bestScores[s.gbest]),
	)
	return nil
}

// Result returns the best position found so far and its score.
func (s *Solver) Result() optim.Point {
	return optim.NewPoint(s.best.RawRowView(s.gbest), s.bestScores[s.gbest])
}

// BestIndex returns the index of the particle holding the global best.
func (s *Solver) BestIndex() int { return s.gbest }

// Niter returns the number of completed iterations.
func (s *Solver) Niter() int { return s.count }

// Neval returns the number of objective evaluations (rows) performed,
// including the initial evaluation.
func (s *Solver) Neval() int { return s.neval }

func (s *Solver) Config() Config { return s.cfg }

// State is a copy of the swarm state.
type State struct {
	Positions  *mat.Dense
	Velocities *mat.Dense
	Scores     []float64
	Best       *mat.Dense
	BestScores []float64
	BestIndex  int
}

// State returns a deep copy of the current swarm state.
func (s *Solver) State() State {
	return State{
		Positions:  mat.DenseCopyOf(s.pos),
		Velocities: mat.DenseCopyOf(s.vel),
		Scores:     append([]float64{}, s.scores...),
		Best:       mat.DenseCopyOf(s.best),
		BestScores: append([]float64{}, s.bestScores...),
		BestIndex:  s.gbest,
	}
}

// argmax returns the index of the largest value, preferring the lowest
// index among ties.
func argmax(vals []float64) int {
	return floats.MaxIdx(vals)
}

func clamp(v, vmax float64) float64 {
	return math.Min(vmax, math.Max(-vmax, v))
}

func clampAll(vals []float64, vmax float64) {
	for i, v := range vals {
		vals[i] = clamp(v, vmax)
	}
}
