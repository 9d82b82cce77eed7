package mesh

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

type meshtest struct {
	name string
	m    Mesh
	p    []float64
	want []float64
}

func TestNearest(t *testing.T) {
	tests := []meshtest{
		{
			name: "continuous",
			m:    &Infinite{},
			p:    []float64{1.3, -2.7},
			want: []float64{1.3, -2.7},
		},
		{
			name: "grid",
			m:    &Infinite{Step: 0.5},
			p:    []float64{1.3, -2.7, 0.1},
			want: []float64{1.5, -2.5, 0},
		},
		{
			name: "grid-origin",
			m:    &Infinite{Origin: []float64{0.1, 0.1}, Step: 1},
			p:    []float64{1.3, -2.7},
			want: []float64{1.1, -2.9},
		},
		{
			name: "box",
			m:    NewBox(3, -10, 10),
			p:    []float64{-11, 4, 25},
			want: []float64{-10, 4, 10},
		},
		{
			name: "bounded-grid",
			m:    NewBounded(&Infinite{Step: 1}, []float64{0, 0}, []float64{2.4, 2.6}),
			p:    []float64{2.45, 2.55},
			want: []float64{2, 2.6},
		},
		{
			name: "fixed",
			m:    Fixed{Index: 1, Value: 3},
			p:    []float64{1, 2, 4},
			want: []float64{1, 3, 4},
		},
		{
			name: "chain",
			m:    Chain{NewBox(2, -1, 1), Fixed{Index: 0, Value: 0.5}},
			p:    []float64{-4, 4},
			want: []float64{0.5, 1},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			orig := append([]float64{}, test.p...)
			got := test.m.Nearest(test.p)
			if diff := cmp.Diff(test.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Nearest(%v) mismatch (-want +got):\n%s", test.p, diff)
			}
			assert.Equal(t, orig, test.p, "Nearest must not modify its input")
		})
	}
}

func TestIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	meshes := map[string]Mesh{
		"grid":         &Infinite{Origin: []float64{0.1, -0.3, 0.7}, Step: 0.3},
		"box":          NewBox(3, -5, 5),
		"bounded-grid": NewBounded(&Infinite{Step: 0.7}, []float64{-5, -5, -5}, []float64{5, 4.9, 5.2}),
		"chain":        Chain{NewBox(3, -5, 5), Fixed{Index: 2, Value: 1}},
	}

	for name, m := range meshes {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				p := []float64{20 * (rng.Float64() - 0.5), 20 * (rng.Float64() - 0.5), 20 * (rng.Float64() - 0.5)}
				once := m.Nearest(p)
				twice := m.Nearest(once)
				if !cmp.Equal(once, twice) {
					t.Fatalf("[FAIL] %v: project(project(x)) = %v != project(x) = %v", p, twice, once)
				}
			}
		})
	}
}

func TestApply(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{
		-3, 0.5,
		2, 12,
	})
	got := Apply(x, NewBox(2, -1, 1))
	assert.Same(t, x, got)
	assert.Equal(t, []float64{-1, 0.5, 1, 1}, got.RawMatrix().Data)
}

func TestMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { NewBox(2, 0, 1).Nearest([]float64{1, 2, 3}) })
	assert.Panics(t, func() { (&Infinite{Origin: []float64{0}, Step: 1}).Nearest([]float64{1, 2}) })
	assert.Panics(t, func() { NewBounded(&Infinite{}, []float64{0}, []float64{1, 2}) })
}
