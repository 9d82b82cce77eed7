// Command swarmbench runs a particle swarm against one of the benchmark
// problems and reports how close it got to the known optimum.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	optim "github.com/AdejuwonF/swarm-optimization"
	"github.com/AdejuwonF/swarm-optimization/bench"
	"github.com/AdejuwonF/swarm-optimization/swarm"
)

var (
	problem   = flag.String("problem", "ackley", "benchmark family: sum, sumfeasible, ackley, rosenbrock, rastrigin, styblinski, eggholder or wedge")
	dim       = flag.Int("dim", 2, "number of dimensions (ignored by eggholder and wedge)")
	particles = flag.Int("particles", swarm.DefaultParticles, "swarm size")
	iters     = flag.Int("iters", swarm.DefaultMaxIter, "maximum number of iterations")
	momentum  = flag.Float64("momentum", swarm.DefaultMomentum, "velocity momentum")
	personal  = flag.Float64("personal", swarm.DefaultPersonalAttraction, "attraction toward each particle's own best")
	global    = flag.Float64("global", swarm.DefaultGlobalAttraction, "attraction toward the swarm best")
	vclamp    = flag.Float64("clamp", swarm.DefaultVelocityClamp, "per-component velocity limit")
	eps       = flag.Float64("eps", swarm.DefaultEpsilon, "stop once an iteration improves the best score by less than this")
	seed      = flag.Uint64("seed", swarm.DefaultSeed, "random seed")
	tol       = flag.Float64("tol", 0, "if positive, stop once within this relative tolerance of the optimum instead of using -eps")
	dbname    = flag.String("db", "", "sqlite file to record every iteration in")
	jsonlog   = flag.Bool("json", false, "log JSON instead of text")
	verbose   = flag.Bool("v", false, "log every iteration and evaluated batch")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := optim.NewTextLogger(level)
	if *jsonlog {
		logger = optim.NewJSONLogger(level)
	}

	if err := run(logger); err != nil {
		logger.Error("swarmbench failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *optim.Logger) error {
	fn, err := bench.New(*problem, *dim)
	if err != nil {
		return err
	}
	logger = logger.With(slog.String("problem", fn.Name()))

	var prob optim.Problem = fn
	if *verbose {
		prob = optim.NewLogObjective(fn, logger)
	}

	opts := []swarm.Option{
		swarm.Particles(*particles),
		swarm.Momentum(*momentum),
		swarm.Attraction(*personal, *global),
		swarm.VelocityClamp(*vclamp),
		swarm.Seed(*seed),
		swarm.WithLogger(logger),
	}
	if *dbname != "" {
		db, err := sql.Open("sqlite", *dbname)
		if err != nil {
			return fmt.Errorf("open trace database: %w", err)
		}
		defer db.Close()
		opts = append(opts, swarm.DB(db))
	}

	s, err := swarm.New(prob, opts...)
	if err != nil {
		return err
	}

	if *tol > 0 {
		_, _, err = bench.Benchmark(s, fn, *tol, *iters)
	} else {
		err = s.Run(*iters, *eps)
	}
	if err != nil {
		return err
	}

	best := s.Result()
	fmt.Printf("problem:  %v\n", fn.Name())
	fmt.Printf("best:     %v\n", best.Val)
	fmt.Printf("position: %v\n", best.Pos())
	for _, opt := range fn.Optima() {
		fmt.Printf("optimum:  %v at %v (distance %.6g)\n", opt.Val, opt.Pos(), optim.L2Dist(best, opt))
	}
	fmt.Printf("iters:    %v\n", s.Niter())
	fmt.Printf("evals:    %v\n", s.Neval())
	return nil
}
