// Package gillespie compiles a FlatModel into an exact stochastic
// simulation: a table of elementary processes (reaction firings and
// transport hops), each with a propensity function and a fixed effect on
// the shared count vector, driven by the direct method (Gillespie 1977).
// This mirrors package ode's compiled-term-list approach (see
// ode.Compile) rather than re-deriving propensities from the FlatModel
// at every step.
package gillespie

import (
	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/model"
	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
	"github.com/adicksonlab/openrxn/state"
)

// reactant is one term in a process's propensity: the falling-factorial
// power applied to the count at idx.
type reactant struct {
	idx   int
	power int
}

// effect is one entry in a process's state delta: the count at idx
// changes by delta when the process fires.
type effect struct {
	idx   int
	delta float64
}

// timeSource is a reservoir-driven process whose propensity is
// rate*conc(t) rather than a function of the count vector — it can never
// be found via the dependency index, since it depends on nothing the
// engine tracks, so every process carrying one is refreshed on every
// step regardless of what just fired.
type timeSource struct {
	coef float64
	conc compartment.TimeFunc
}

// process is one elementary event: a reaction firing in a compartment,
// or a transport hop along a flattened transfer.
type process struct {
	reactants []reactant
	effects   []effect
	rate      float64
	timeDep   *timeSource
}

func (p *process) propensity(t float64, Q []float64) float64 {
	if p.timeDep != nil {
		return p.timeDep.coef * p.timeDep.conc(t)
	}
	a := p.rate
	for _, r := range p.reactants {
		a *= fallingFactorial(Q[r.idx], r.power)
		if a == 0 {
			return 0
		}
	}
	return a
}

// fallingFactorial computes q*(q-1)*...*(q-power+1), floored at zero
// once any factor goes non-positive — the combinatorial count of ordered
// power-tuples drawable without replacement from a pool of q, used for a
// reaction order >= 2 self-reaction's discrete propensity in place of
// the continuum's q^power.
func fallingFactorial(q float64, power int) float64 {
	if power <= 0 {
		return 1
	}
	prod := 1.0
	for i := 0; i < power; i++ {
		v := q - float64(i)
		if v <= 0 {
			return 0
		}
		prod *= v
	}
	return prod
}

// System is a compiled Gillespie process table over a shared count
// vector of length st.Len().
type System struct {
	fm        *model.FlatModel
	st        *state.State
	processes []*process
	// depends maps a state position to the processes whose propensity
	// reads that position, so firing a process only requires refreshing
	// its dependents rather than every process in the table.
	depends [][]int
	// alwaysRefresh lists processes driven by a reservoir's time
	// function; their propensity can change between firings with no
	// state change to trigger it, so they are refreshed every step.
	alwaysRefresh []int
}

// Len returns the length of the count vector this System operates on.
func (sys *System) Len() int { return sys.st.Len() }

// Compile builds a System from fm and the state layout st (built via
// state.New(fm)).
func Compile(fm *model.FlatModel, st *state.State) (*System, error) {
	sys := &System{fm: fm, st: st, depends: make([][]int, st.Len())}

	for _, key := range fm.Keys {
		c := fm.Compartments[key]
		volume, hasVolume := compartmentVolume(c)
		for _, r := range c.Reactions() {
			if err := sys.addReactionProcesses(key, r, volume, hasVolume); err != nil {
				return nil, err
			}
		}
	}
	for _, tr := range fm.Transfers {
		if err := sys.addTransferProcess(fm, tr); err != nil {
			return nil, err
		}
	}

	return sys, nil
}

func compartmentVolume(c *compartment.Compartment) (float64, bool) {
	if c.Kind() == compartment.Point {
		return 0, false
	}
	return c.Volume(), true
}

func (sys *System) addReactionProcesses(key string, r *rxn.Reaction, volume float64, hasVolume bool) error {
	if r.Kf > 0 {
		if err := sys.addDirectedProcess(key, r.Reactants, r.Products, r.Kf, r.ForwardOrd, volume, hasVolume); err != nil {
			return err
		}
	}
	if r.Kr > 0 {
		if err := sys.addDirectedProcess(key, r.Products, r.Reactants, r.Kr, r.ReverseOrd, volume, hasVolume); err != nil {
			return err
		}
	}
	return nil
}

// addDirectedProcess registers one firing direction of a reaction:
// consume from, produce into, at the given rate constant (already
// converted from its concentration basis via quantity.HigherOrderDivisor
// so both this package and package ode apply the identical conversion).
func (sys *System) addDirectedProcess(key string, from, into []rxn.Term, rateConst float64, order int, volume float64, hasVolume bool) error {
	const op = "gillespie.addDirectedProcess"
	p := &process{rate: rateConst / quantity.HigherOrderDivisor(order, volume, hasVolume)}

	deltas := make(map[int]float64)
	for _, t := range from {
		i, ok := sys.st.Index(key, t.Species)
		if !ok {
			return simerr.Structuralf(op, "species %q is not active in compartment %q", t.Species.ID, key)
		}
		p.reactants = append(p.reactants, reactant{idx: i, power: t.Stoich})
		deltas[i] -= float64(t.Stoich)
	}
	for _, t := range into {
		i, ok := sys.st.Index(key, t.Species)
		if !ok {
			return simerr.Structuralf(op, "species %q is not active in compartment %q", t.Species.ID, key)
		}
		deltas[i] += float64(t.Stoich)
	}
	for idx, d := range deltas {
		if d != 0 {
			p.effects = append(p.effects, effect{idx: idx, delta: d})
		}
	}

	sys.register(p)
	return nil
}

// addTransferProcess registers a transport hop. Unlike package ode's
// addTransferTerms, this deliberately consumes only KOut: spec.md §4.8's
// discrete process table has no neighbor-driven source term, just one
// directed hop per edge (rate KOut, driven by the source compartment's
// own count) that moves a single unit from From to To — KIn is read only
// when To is a reservoir, where it plays the same role the ODE side
// gives it (the rate at which the reservoir's prescribed concentration
// drives a stochastic influx), a supplemented extension spec.md §4.8
// itself is silent on.
func (sys *System) addTransferProcess(fm *model.FlatModel, tr model.FlatTransfer) error {
	const op = "gillespie.addTransferProcess"
	fromIdx, ok := sys.st.Index(tr.From, tr.Species)
	if !ok {
		return simerr.Structuralf(op, "species %q is not active in compartment %q", tr.Species.ID, tr.From)
	}

	efflux := &process{
		rate:      tr.KOut,
		reactants: []reactant{{idx: fromIdx, power: 1}},
		effects:   []effect{{idx: fromIdx, delta: -1}},
	}
	sys.register(efflux)

	if res, ok := fm.Reservoirs[tr.To]; ok {
		influx := &process{
			effects: []effect{{idx: fromIdx, delta: +1}},
			timeDep: &timeSource{
				coef: tr.KIn,
				conc: func(t float64) float64 {
					v, _ := res.Value(tr.Species, t)
					return v
				},
			},
		}
		sys.registerAlways(influx)
		return nil
	}

	toIdx, ok := sys.st.Index(tr.To, tr.Species)
	if !ok {
		return simerr.Structuralf(op, "species %q is not active in compartment %q", tr.Species.ID, tr.To)
	}
	efflux.effects = append(efflux.effects, effect{idx: toIdx, delta: +1})
	return nil
}

func (sys *System) register(p *process) {
	idx := len(sys.processes)
	sys.processes = append(sys.processes, p)
	for _, r := range p.reactants {
		sys.depends[r.idx] = append(sys.depends[r.idx], idx)
	}
}

func (sys *System) registerAlways(p *process) {
	idx := len(sys.processes)
	sys.processes = append(sys.processes, p)
	sys.alwaysRefresh = append(sys.alwaysRefresh, idx)
}
