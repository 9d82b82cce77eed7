// Package mesh provides component-wise constraint projections.  Every Mesh
// maps each coordinate of a point independently of any other point, and
// projecting an already projected point returns it unchanged.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mesh is an interface for projecting arbitrary dimensional points onto some
// kind of (potentially discrete or bounded) set of feasible points.
type Mesh interface {
	// Nearest returns the projection of p.  It must not modify p.
	Nearest(p []float64) []float64
}

// Apply projects every row of x with m in place and returns x.
func Apply(x *mat.Dense, m Mesh) *mat.Dense {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		x.SetRow(i, m.Nearest(x.RawRowView(i)))
	}
	return x
}

// Infinite is a grid-based, linear-axis mesh that extends in all dimensions
// without bounds.  The length of Origin defines the dimensionality of the
// mesh. If Origin == nil, the grid is anchored at zero in every dimension.
// If Step == 0, then the mesh represents continuous space and the Nearest
// method just returns a copy of the point passed to it.
type Infinite struct {
	Origin []float64
	// Step represents the discretization or grid size of the mesh.
	Step float64
}

// Nearest returns the nearest grid point to p by rounding each dimensional
// position to the nearest grid point.
func (sm *Infinite) Nearest(p []float64) []float64 {
	if sm.Step == 0 {
		return append([]float64{}, p...)
	} else if l := len(sm.Origin); l != 0 && l != len(p) {
		panic(fmt.Sprintf("origin len %v incompatible with point len %v", l, len(p)))
	}

	nearest := make([]float64, len(p))
	for i, v := range p {
		o := 0.0
		if len(sm.Origin) > 0 {
			o = sm.Origin[i]
		}
		n := math.Round((v - o) / sm.Step)
		nearest[i] = o + n*sm.Step
	}
	return nearest
}

// Box clips each coordinate to [Lower[i], Upper[i]].
type Box struct {
	Lower []float64
	Upper []float64
}

// NewBox returns a Box with the same bounds in each of ndims dimensions.
func NewBox(ndims int, lower, upper float64) *Box {
	b := &Box{Lower: make([]float64, ndims), Upper: make([]float64, ndims)}
	for i := 0; i < ndims; i++ {
		b.Lower[i] = lower
		b.Upper[i] = upper
	}
	return b
}

func (b *Box) Nearest(p []float64) []float64 {
	if len(p) != len(b.Lower) || len(b.Lower) != len(b.Upper) {
		panic(fmt.Sprintf("box bounds len %v/%v incompatible with point len %v", len(b.Lower), len(b.Upper), len(p)))
	}
	pdup := make([]float64, len(p))
	for i, v := range p {
		pdup[i] = math.Min(b.Upper[i], math.Max(b.Lower[i], v))
	}
	return pdup
}

type Bounded struct {
	Lower []float64
	Upper []float64
	core  Mesh
}

func NewBounded(m Mesh, lower, upper []float64) *Bounded {
	if len(lower) != len(upper) {
		panic("mesh lower and upper bound vectors have difference lengths")
	} else { // force panic if bounds lengths don't math mesh m's # dims
		m.Nearest(lower)
	}
	return &Bounded{
		Lower: lower,
		Upper: upper,
		core:  m,
	}
}

// Nearest returns the nearest bounded grid point to p by sliding each
// dimensional position to the nearest value inside bounds and then rounding
// to the nearest grid point.  Grid points that fall outside the bounds are
// slid back onto the bound, so the result is always inside the box.
func (m *Bounded) Nearest(p []float64) []float64 {
	box := &Box{Lower: m.Lower, Upper: m.Upper}
	return box.Nearest(m.core.Nearest(box.Nearest(p)))
}

// Fixed pins the coordinate at Index to Value.
type Fixed struct {
	Index int
	Value float64
}

func (f Fixed) Nearest(p []float64) []float64 {
	pdup := append([]float64{}, p...)
	pdup[f.Index] = f.Value
	return pdup
}

// Chain applies each mesh in order.  The chain is idempotent when its
// members act on disjoint coordinates or commute, e.g. a Box followed by a
// Fixed coordinate inside that box.
type Chain []Mesh

func (c Chain) Nearest(p []float64) []float64 {
	out := append([]float64{}, p...)
	for _, m := range c {
		out = m.Nearest(out)
	}
	return out
}
