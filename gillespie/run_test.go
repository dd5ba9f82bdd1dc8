package gillespie

import (
	"math"
	"testing"

	"github.com/ctessum/unit"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/model"
	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/state"
)

func perSecond(v float64) *unit.Unit {
	return unit.New(v, quantity.RateDimension(1))
}

func birthDeathSystem(t *testing.T) (*System, *state.State, *rxn.Species) {
	t.Helper()
	a := rxn.New("A")
	r, err := rxn.NewReaction("birth-death", nil, nil, []*rxn.Species{a}, []int{1}, unit.New(0.1, quantity.RateDimension(0)), perSecond(1.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := compartment.New(compartment.StringID("c"))
	c.AddReaction(r)
	m := model.New()
	m.AddCompartment(c)
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := state.New(fm)
	sys, err := Compile(fm, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sys, st, a
}

// TestDeterminism reproduces the determinism invariant: given a seed and
// an identical FlatModel, two Gillespie runs produce identical (Q, t)
// trajectories.
func TestDeterminism(t *testing.T) {
	sys1, st1, _ := birthDeathSystem(t)
	sys2, st2, _ := birthDeathSystem(t)

	Q1 := append([]float64(nil), st1.Values...)
	Q2 := append([]float64(nil), st2.Values...)

	t1, Q1, err := Propagate(sys1, 0, 50, Q1, NewRand(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, Q2, err := Propagate(sys2, 0, 50, Q2, NewRand(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if t1 != t2 {
		t.Errorf("t1=%g != t2=%g", t1, t2)
	}
	for i := range Q1 {
		if Q1[i] != Q2[i] {
			t.Errorf("Q1[%d]=%g != Q2[%d]=%g", i, Q1[i], i, Q2[i])
		}
	}
}

// TestBirthDeathEnsembleMean reproduces the "Birth-death" scenario's
// stochastic half: an ensemble mean over several runs at t=100s should
// land near the deterministic steady state kf/kr=0.1 within sampling
// error.
func TestBirthDeathEnsembleMean(t *testing.T) {
	const runs = 20
	var sum float64
	for seed := int64(0); seed < runs; seed++ {
		sys, st, a := birthDeathSystem(t)
		Q := append([]float64(nil), st.Values...)
		_, Q, err := Propagate(sys, 0, 100, Q, NewRand(seed))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		i, _ := st.Index("c", a)
		sum += Q[i]
	}
	mean := sum / runs
	if math.Abs(mean-0.1) > 0.2 {
		t.Errorf("ensemble mean = %g, want close to 0.1", mean)
	}
}

// TestPropensityIntegrity reproduces the propensity-integrity invariant:
// after any firing, recomputing all propensities from scratch equals the
// incrementally maintained vector to within floating-point tolerance.
func TestPropensityIntegrity(t *testing.T) {
	sys, st, _ := birthDeathSystem(t)
	Q := append([]float64(nil), st.Values...)
	rng := NewRand(7)

	tcur := 0.0
	pr := newPropensities(sys, tcur, Q)
	for i := 0; i < 25; i++ {
		if pr.total <= 0 {
			break
		}
		u1, u2 := rng.Float64(), rng.Float64()
		dt := -math.Log(u2) / pr.total
		tcur += dt
		target := u1 * pr.total
		chosen := selectProcess(pr.a, target)
		p := sys.processes[chosen]
		for _, e := range p.effects {
			Q[e.idx] += e.delta
		}
		touched := map[int]bool{chosen: true}
		for _, e := range p.effects {
			for _, dep := range sys.depends[e.idx] {
				touched[dep] = true
			}
		}
		for idx := range touched {
			pr.refresh(sys, tcur, Q, idx)
		}

		fresh := sys.Recompute(tcur, Q)
		for j := range fresh {
			if math.Abs(fresh[j]-pr.a[j]) > 1e-9 {
				t.Fatalf("step %d: incremental propensity[%d]=%g, recomputed=%g", i, j, pr.a[j], fresh[j])
			}
		}
	}
}

// TestPropagateStopsAtHorizon verifies Propagate never advances time
// past t1.
func TestPropagateStopsAtHorizon(t *testing.T) {
	sys, st, _ := birthDeathSystem(t)
	Q := append([]float64(nil), st.Values...)
	tOut, _, err := Propagate(sys, 0, 10, Q, NewRand(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tOut > 10 {
		t.Errorf("Propagate advanced past horizon: t=%g", tOut)
	}
}

// TestFallingFactorial checks the combinatorial count used for
// higher-order self-reaction propensities.
func TestFallingFactorial(t *testing.T) {
	cases := []struct {
		q    float64
		pow  int
		want float64
	}{
		{5, 0, 1},
		{5, 1, 5},
		{5, 2, 20},
		{1, 2, 0},
		{0, 1, 0},
	}
	for _, c := range cases {
		if got := fallingFactorial(c.q, c.pow); got != c.want {
			t.Errorf("fallingFactorial(%g, %d) = %g, want %g", c.q, c.pow, got, c.want)
		}
	}
}
