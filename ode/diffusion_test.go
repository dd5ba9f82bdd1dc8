package ode

import (
	"math"
	"strconv"
	"testing"

	"github.com/adicksonlab/openrxn/grid"
	"github.com/adicksonlab/openrxn/model"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/state"
)

// TestDiffusionGaussianSpreading reproduces the "1D diffusion" scenario:
// K=40 compartments over L=1mm, only compartments 16 and 17 initialized to
// 500 each, transport k=0.16 s^-1 per face. At t=240s the profile must
// match the analytical Gaussian spreading sigma^2 = 2*D*t (plus the
// initial condition's own width) with D = k*h^2, h = L/K, reflected at the
// chain's closed ends, to within 1% relative error at each position
// holding appreciable mass.
func TestDiffusionGaussianSpreading(t *testing.T) {
	const (
		K    = 40
		L    = 1.0
		k    = 0.16
		tEnd = 240.0
	)
	h := L / K
	D := k * h * h

	a := rxn.New("A")
	arr, err := grid.Line("chain", K, h, map[*rxn.Species]float64{a: D}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := model.New()
	if err := m.AddArray(arr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := state.New(fm)
	if err := st.Set("chain-16", a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Set("chain-17", a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sys, err := Compile(fm, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Integrate(sys, 0, tEnd, st.Values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The initial condition is two adjacent impulses of 500 at cells 16/17,
	// centered between them at x0 = 17*h (cell i spans [i*h, (i+1)*h),
	// center (i+0.5)*h; the center of mass sits at the shared face between
	// cell 16 and 17, x = 17*h). Each half of the mass lies h/2 from x0, so
	// the profile starts with variance h^2/4 on top of the spreading 2*D*t.
	sigma2 := 2*D*tEnd + h*h/4
	total := 1000.0
	x0 := 17 * h
	g := func(u float64) float64 {
		return total * h / math.Sqrt(2*math.Pi*sigma2) * math.Exp(-u*u/(2*sigma2))
	}
	// The chain's ends at x=0 and x=L have no outgoing edge, so mass is
	// reflected there: image sources at -x0 and 2L-x0.
	analytic := func(x float64) float64 {
		return g(x-x0) + g(x+x0) + g(x-(2*L-x0))
	}

	for i := 0; i < K; i++ {
		idx, ok := st.Index("chain-"+strconv.Itoa(i), a)
		if !ok {
			continue
		}
		x := (float64(i) + 0.5) * h
		want := analytic(x)
		if want < 1.0 {
			// Tails carrying negligible mass are dominated by discretization
			// effects; the 1% bound only applies where the Gaussian
			// approximation itself is meaningful.
			continue
		}
		if rel := math.Abs(got[idx]-want) / want; rel > 0.01 {
			t.Errorf("position %d: Q=%g, want ~%g (relative error %g)", i, got[idx], want, rel)
		}
	}
}

// TestReactionDiffusionMonotonic reproduces the "1D reaction-diffusion"
// scenario: K=40, synthesis only in x <= L/5, first-order degradation
// everywhere with k_deg=1e-3 s^-1. At t=1800s the profile must be
// monotonically decreasing from x=0.
func TestReactionDiffusionMonotonic(t *testing.T) {
	const (
		K    = 40
		L    = 1.0
		tEnd = 1800.0
		kDeg = 1e-3
	)
	h := L / K
	D := 0.16 * h * h

	a := rxn.New("A")
	arr, err := grid.Line("chain", K, h, map[*rxn.Species]float64{a: D}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	synthCutoff := int(K / 5)
	for i, c := range arr.Members() {
		deg, err := rxn.NewReaction("degrade", []*rxn.Species{a}, []int{1}, nil, nil, perSecond(kDeg), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.AddReaction(deg)
		if i < synthCutoff {
			synth, err := rxn.NewReaction("synth", nil, nil, []*rxn.Species{a}, []int{1}, rate(0.05, 0), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c.AddReaction(synth)
		}
	}

	m := model.New()
	if err := m.AddArray(arr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := state.New(fm)

	sys, err := Compile(fm, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Integrate(sys, 0, tEnd, st.Values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := math.Inf(1)
	for i := 0; i < K; i++ {
		idx, ok := st.Index("chain-"+strconv.Itoa(i), a)
		if !ok {
			t.Fatalf("position %d has no active slot for A", i)
		}
		if got[idx] > prev+1e-6 {
			t.Errorf("profile not monotonically decreasing: position %d (%g) > position %d (%g)", i, got[idx], i-1, prev)
		}
		prev = got[idx]
	}
}

// TestPeriodicDiffusionConservesMass reproduces the "Periodic boundary
// sanity" scenario: a 1D periodic array initialized with a delta at index
// 0 produces, under pure diffusion at large t, a spatially uniform
// profile with total count conserved to floating-point tolerance.
func TestPeriodicDiffusionConservesMass(t *testing.T) {
	const (
		K    = 8
		h    = 1.0
		D    = 0.2
		tEnd = 2000.0
	)
	a := rxn.New("A")
	arr, err := grid.Line("ring", K, h, map[*rxn.Species]float64{a: D}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := model.New()
	if err := m.AddArray(arr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := state.New(fm)
	if err := st.Set("ring-0", a, 800); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sys, err := Compile(fm, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Integrate(sys, 0, tEnd, st.Values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0.0
	want := 800.0 / K
	for i := 0; i < K; i++ {
		idx, ok := st.Index("ring-"+strconv.Itoa(i), a)
		if !ok {
			t.Fatalf("position %d has no active slot for A", i)
		}
		total += got[idx]
		if math.Abs(got[idx]-want) > 1e-2 {
			t.Errorf("position %d = %g, want ~%g (uniform profile)", i, got[idx], want)
		}
	}
	if math.Abs(total-800) > 1e-6 {
		t.Errorf("total mass = %g, want 800 (conservation)", total)
	}
}

