package optim

import (
	"crypto/sha1"
	"encoding/binary"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Point is a position in the search space together with its score.
type Point struct {
	pos []float64
	Val float64
}

func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

// L2Dist returns the euclidean distance between p1 and p2.
func L2Dist(p1, p2 Point) float64 {
	return floats.Distance(p1.pos, p2.pos, 2)
}

func hashRow(row []float64) [sha1.Size]byte {
	data := make([]byte, len(row)*8)
	for i, v := range row {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return sha1.Sum(data)
}

// EvalRows scores every row of x with fn.  If workers > 1 the rows are
// evaluated concurrently by up to workers goroutines; results are stored by
// row index so the output does not depend on scheduling.  workers < 0 uses
// one worker per CPU.
func EvalRows(x *mat.Dense, fn func([]float64) float64, workers int) []float64 {
	n, _ := x.Dims()
	scores := make([]float64, n)
	if workers < 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 1 {
		for i := range n {
			scores[i] = fn(mat.Row(nil, i, x))
		}
		return scores
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		row := mat.Row(nil, i, x)
		g.Go(func() error {
			scores[i] = fn(row)
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

// RowObjective is a Problem whose objective scores each row independently
// with Fn.  The remaining Problem methods come from Base.
type RowObjective struct {
	Base
	Fn func(x []float64) float64
	// Workers is the number of goroutines used per Evaluate call.  Zero or
	// one evaluates serially.
	Workers int
}

func (ro RowObjective) Evaluate(x *mat.Dense) ([]float64, error) {
	if ro.Fn == nil {
		return nil, ErrObjectiveNotImplemented
	}
	return EvalRows(x, ro.Fn, ro.Workers), nil
}

// Cache memoizes the scores of a wrapped Problem keyed on the exact bits of
// each row.  Only rows that have not been seen before are forwarded to the
// wrapped objective.
type Cache struct {
	Problem
	cache  map[[sha1.Size]byte]float64
	Hits   int
	Misses int
}

func NewCache(p Problem) *Cache {
	return &Cache{
		Problem: p,
		cache:   map[[sha1.Size]byte]float64{},
	}
}

func (c *Cache) Evaluate(x *mat.Dense) ([]float64, error) {
	n, d := x.Dims()
	scores := make([]float64, n)

	hashes := make([][sha1.Size]byte, n)
	fromnew := make([]int, 0, n)
	pending := map[[sha1.Size]byte]bool{}
	hits := 0
	for i := range n {
		h := hashRow(x.RawRowView(i))
		hashes[i] = h
		if _, ok := c.cache[h]; ok {
			hits++
		} else if !pending[h] {
			pending[h] = true
			fromnew = append(fromnew, i)
		}
	}

	if len(fromnew) > 0 {
		newx := mat.NewDense(len(fromnew), d, nil)
		for j, i := range fromnew {
			newx.SetRow(j, x.RawRowView(i))
		}
		vals, err := c.Problem.Evaluate(newx)
		if err != nil {
			return nil, err
		}
		if err := CheckScores(vals, len(fromnew)); err != nil {
			return nil, err
		}
		c.Misses += len(fromnew)
		for j, i := range fromnew {
			c.cache[hashes[i]] = vals[j]
		}
	}

	c.Hits += hits

	// duplicate rows within this batch resolve against the freshly filled cache
	for i := range n {
		scores[i] = c.cache[hashes[i]]
	}
	return scores, nil
}

// Counter counts the Evaluate calls and rows that reach the wrapped Problem.
type Counter struct {
	Problem
	Calls int
	Rows  int
}

func (c *Counter) Evaluate(x *mat.Dense) ([]float64, error) {
	n, _ := x.Dims()
	c.Calls++
	c.Rows += n
	return c.Problem.Evaluate(x)
}

// LogObjective logs every batch evaluated by the wrapped Problem.
type LogObjective struct {
	Problem
	Logger *Logger
	Count  int
}

func NewLogObjective(p Problem, l *Logger) *LogObjective {
	if l == nil {
		l = NoopLogger()
	}
	return &LogObjective{Problem: p, Logger: l}
}

func (lo *LogObjective) Evaluate(x *mat.Dense) ([]float64, error) {
	scores, err := lo.Problem.Evaluate(x)
	lo.Count++
	if err != nil {
		lo.Logger.Error("objective evaluation failed", slog.Int("batch", lo.Count), slog.Any("error", err))
		return scores, err
	}

	n, _ := x.Dims()
	attrs := []any{slog.Int("batch", lo.Count), slog.Int("rows", n)}
	if len(scores) > 0 {
		best := floats.MaxIdx(scores)
		attrs = append(attrs, slog.Float64("best", scores[best]), slog.Any("pos", mat.Row(nil, best, x)))
	}
	lo.Logger.Debug("evaluated batch", attrs...)
	return scores, nil
}
