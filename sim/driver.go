package sim

import (
	"math"
	"math/rand"
	"sort"

	"github.com/adicksonlab/openrxn/gillespie"
	"github.com/adicksonlab/openrxn/ode"
	"github.com/adicksonlab/openrxn/simerr"
)

// Backend advances Q from t0 to t1 in place, returning the time actually
// reached (an ODE backend always reaches t1 exactly; a Gillespie backend
// may stop earlier, at its last firing at or before t1).
type Backend interface {
	Propagate(t0, t1 float64, Q []float64) (float64, error)
}

// ODEBackend adapts a compiled ode.System into a Backend by driving
// ode.Integrate over each checkpoint interval.
type ODEBackend struct {
	Sys  *ode.System
	Opts *ode.Options
}

func (b *ODEBackend) Propagate(t0, t1 float64, Q []float64) (float64, error) {
	out, err := ode.Integrate(b.Sys, t0, t1, Q, b.Opts)
	if err != nil {
		return t0, err
	}
	copy(Q, out)
	return t1, nil
}

// GillespieBackend adapts a compiled gillespie.System into a Backend by
// driving gillespie.Propagate over each checkpoint interval with a
// single, System-owned random source (so replicate runs are
// reproducible from one seed across the whole simulation, not reseeded
// per segment).
type GillespieBackend struct {
	Sys *gillespie.System
	Rng *rand.Rand
}

func NewGillespieBackend(sys *gillespie.System, seed int64) *GillespieBackend {
	return &GillespieBackend{Sys: sys, Rng: gillespie.NewRand(seed)}
}

func (b *GillespieBackend) Propagate(t0, t1 float64, Q []float64) (float64, error) {
	t, _, err := gillespie.Propagate(b.Sys, t0, t1, Q, b.Rng)
	return t, err
}

// checkpointEpsilon bounds how close t*freq^-1 must be to an integer to
// count as a multiple of freq, avoiding the exact-float-divisibility
// trap a naive modulo comparison would hit.
const checkpointEpsilon = 1e-9

// schedule builds the sorted, deduplicated checkpoint times: the union
// of {0, tEnd} with every reporter's {k*freq : k*freq <= tEnd}.
func schedule(tEnd float64, reporters []Reporter) []float64 {
	set := map[float64]bool{0: true, tEnd: true}
	for _, r := range reporters {
		freq := r.Frequency()
		if freq <= 0 {
			continue
		}
		for k := 0.0; k*freq <= tEnd+checkpointEpsilon; k++ {
			set[k*freq] = true
		}
	}
	out := make([]float64, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// dividesAt reports whether t is within checkpointEpsilon of a multiple
// of freq.
func dividesAt(t, freq float64) bool {
	if freq <= 0 {
		return true
	}
	k := math.Round(t / freq)
	return math.Abs(t-k*freq) < checkpointEpsilon
}

// Run drives backend forward from Q0 (modified in place) to tEnd,
// pausing at the checkpoint schedule built from reporters and firing
// every reporter whose frequency divides the checkpoint time. It returns
// the final state vector.
func Run(backend Backend, tEnd float64, Q []float64, reporters []Reporter) ([]float64, error) {
	const op = "sim.Run"
	if tEnd < 0 {
		return Q, simerr.Semanticf(op, "tEnd must be non-negative, got %g", tEnd)
	}

	checkpoints := schedule(tEnd, reporters)
	for _, r := range reporters {
		if dividesAt(0, r.Frequency()) {
			r.Report(0, Q)
		}
	}

	t := 0.0
	for _, cp := range checkpoints {
		if cp <= t {
			continue
		}
		reached, err := backend.Propagate(t, cp, Q)
		if err != nil {
			return Q, simerr.Numericf(op, "backend propagation failed between t=%g and t=%g: %v", t, cp, err)
		}
		t = reached
		// Divisibility is tested against the scheduled checkpoint cp, not
		// the backend's actual reached time: a Gillespie backend's reached
		// time is a continuous, essentially-never-exactly-divisible random
		// stopping time, so keying the test on it would mean a periodic
		// reporter almost never fires. Reported records still carry the
		// actual reached time as their timestamp, matching
		// original_source/src/openrxn/systems/system.py's run loop (which
		// tests final_t for divisibility but reports the propagator's
		// actual returned time).
		for _, r := range reporters {
			if dividesAt(cp, r.Frequency()) {
				r.Report(t, Q)
			}
		}
	}

	return Q, nil
}
