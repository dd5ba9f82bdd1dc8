// Package ode compiles a FlatModel into a derivative function dQ/dt and
// drives it forward in time with an adaptive embedded Runge-Kutta
// integrator, mirroring the teacher repo's preference for a compiled,
// allocation-free hot loop (framework.go's dense per-cell advection/
// chemistry step) over re-deriving rate expressions at every call.
package ode

import (
	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/model"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
	"github.com/adicksonlab/openrxn/state"
)

// term is one contribution to dQ[i]/dt: rate * Π Q[idx] for idx in
// indices (a reactant/product position repeated by its stoichiometry),
// with the given sign.
type term struct {
	rate    float64
	indices []int
	sign    float64
}

// reservoirTerm is a time-dependent source: rate(t) = coef * conc(t),
// added unconditionally (it does not depend on Q).
type reservoirTerm struct {
	coef float64
	conc compartment.TimeFunc
}

// System is a compiled ODE derivative: one []term (plus any
// reservoirTerm) per state position.
type System struct {
	fm    *model.FlatModel
	st    *state.State
	terms [][]term
	resv  [][]reservoirTerm
}

// Compile builds a System from fm and the state layout st. st must have
// been built from fm (via state.New(fm)).
func Compile(fm *model.FlatModel, st *state.State) (*System, error) {
	const op = "ode.Compile"
	n := st.Len()
	sys := &System{fm: fm, st: st, terms: make([][]term, n), resv: make([][]reservoirTerm, n)}

	for key, c := range fm.Compartments {
		volume, hasVolume := compartmentVolume(c)
		for _, r := range c.Reactions() {
			if err := sys.addReactionTerms(key, c, r, volume, hasVolume); err != nil {
				return nil, err
			}
		}
	}

	for _, tr := range fm.Transfers {
		if err := sys.addTransferTerms(fm, tr); err != nil {
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

// addReactionTerms adds this reaction's mass-action contribution to
// every reactant and product position it touches in compartment key. A
// reaction's velocity is rate * Π(reactant positions, each repeated by
// its own stoichiometry); each affected position's derivative changes by
// that velocity times its own stoichiometric coefficient, negative for a
// species being consumed, positive for one being produced.
func (sys *System) addReactionTerms(key string, c *compartment.Compartment, r *rxn.Reaction, volume float64, hasVolume bool) error {
	if r.Kf > 0 {
		monomial, err := sys.flatten(key, r.Reactants)
		if err != nil {
			return err
		}
		rate := r.Kf / quantity.HigherOrderDivisor(r.ForwardOrd, volume, hasVolume)
		if err := sys.addVelocity(key, r.Reactants, monomial, rate, -1); err != nil {
			return err
		}
		if err := sys.addVelocity(key, r.Products, monomial, rate, +1); err != nil {
			return err
		}
	}
	if r.Kr > 0 {
		monomial, err := sys.flatten(key, r.Products)
		if err != nil {
			return err
		}
		rate := r.Kr / quantity.HigherOrderDivisor(r.ReverseOrd, volume, hasVolume)
		if err := sys.addVelocity(key, r.Products, monomial, rate, -1); err != nil {
			return err
		}
		if err := sys.addVelocity(key, r.Reactants, monomial, rate, +1); err != nil {
			return err
		}
	}
	return nil
}

// addVelocity adds, to every position in terms, a term driven by
// monomial at the given rate, signed and scaled by that position's own
// stoichiometric coefficient.
func (sys *System) addVelocity(key string, terms []rxn.Term, monomial []int, rate, sign float64) error {
	for _, t := range terms {
		i, ok := sys.st.Index(key, t.Species)
		if !ok {
			return simerr.Structuralf("ode.addVelocity", "species %q is not active in compartment %q", t.Species.ID, key)
		}
		sys.terms[i] = append(sys.terms[i], term{rate: rate, indices: monomial, sign: sign * float64(t.Stoich)})
	}
	return nil
}

// flatten resolves terms to a flat index list, each species position
// repeated by its stoichiometry, used as a reaction's velocity monomial.
func (sys *System) flatten(key string, terms []rxn.Term) ([]int, error) {
	var idx []int
	for _, t := range terms {
		i, ok := sys.st.Index(key, t.Species)
		if !ok {
			return nil, simerr.Structuralf("ode.flatten", "species %q is not active in compartment %q", t.Species.ID, key)
		}
		for m := 0; m < t.Stoich; m++ {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// addTransferTerms adds an edge's pair of transport terms, both credited
// to the edge's own From position (spec.md §4.7): a sink driven by
// From's own population at rate KOut, and a source driven by To's
// population (or, if To is a reservoir, its prescribed concentration)
// at rate KIn. No term is added at To's position — a reciprocal edge
// registered the other way (e.g. package grid wiring both directions of
// a neighbor pair) is what credits To its own sink/source pair.
func (sys *System) addTransferTerms(fm *model.FlatModel, tr model.FlatTransfer) error {
	const op = "ode.addTransferTerms"
	fromIdx, ok := sys.st.Index(tr.From, tr.Species)
	if !ok {
		return simerr.Structuralf(op, "species %q is not active in compartment %q", tr.Species.ID, tr.From)
	}
	if tr.KOut != 0 {
		sys.terms[fromIdx] = append(sys.terms[fromIdx], term{rate: tr.KOut, indices: []int{fromIdx}, sign: -1})
	}

	if res, ok := fm.Reservoirs[tr.To]; ok {
		if tr.KIn != 0 {
			sys.resv[fromIdx] = append(sys.resv[fromIdx], reservoirTerm{
				coef: tr.KIn,
				conc: func(t float64) float64 {
					v, _ := res.Value(tr.Species, t)
					return v
				},
			})
		}
		return nil
	}

	toIdx, ok := sys.st.Index(tr.To, tr.Species)
	if !ok {
		return simerr.Structuralf(op, "species %q is not active in compartment %q", tr.Species.ID, tr.To)
	}
	if tr.KIn != 0 {
		sys.terms[fromIdx] = append(sys.terms[fromIdx], term{rate: tr.KIn, indices: []int{toIdx}, sign: +1})
	}
	return nil
}

// Eval evaluates dQ/dt at (t, Q) into dQ (which must have the same
// length as Q). Terms with a zero prefactor are skipped, matching
// spec.md's "terms with zero prefactor are dropped" rule (they are
// simply never materialized at Compile time here, since Kf/Kr <= 0
// reactions and zero-rate transfers are excluded above).
func (sys *System) Eval(t float64, Q, dQ []float64) {
	for i := range dQ {
		dQ[i] = 0
		for _, tm := range sys.terms[i] {
			prod := tm.rate
			for _, idx := range tm.indices {
				prod *= Q[idx]
			}
			dQ[i] += tm.sign * prod
		}
		for _, rt := range sys.resv[i] {
			dQ[i] += rt.coef * rt.conc(t)
		}
	}
}

// Len returns the state vector length this System operates on.
func (sys *System) Len() int { return sys.st.Len() }
