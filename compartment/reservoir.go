package compartment

import (
	"github.com/ctessum/unit"

	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// TimeFunc computes a boundary concentration at simulation time t
// (seconds).
type TimeFunc func(t float64) float64

// ConcSource is the tagged-variant concentration a Reservoir holds for
// one species: either a fixed value or a function of time. It replaces
// the "maybe it's a number, maybe it's a callable" duck typing of the
// original model with an explicit sum type.
type ConcSource interface {
	isConcSource()
	value(t float64) float64
}

// ConstantConc is a time-independent boundary concentration.
type ConstantConc struct {
	Value float64
}

func (ConstantConc) isConcSource()            {}
func (c ConstantConc) value(float64) float64 { return c.Value }

// TimeVaryingConc is a boundary concentration driven by an arbitrary
// function of simulation time.
type TimeVaryingConc struct {
	Fn TimeFunc
}

func (TimeVaryingConc) isConcSource()         {}
func (c TimeVaryingConc) value(t float64) float64 { return c.Fn(t) }

// Reservoir is a Node that supplies a boundary concentration for each
// species it is configured for, rather than holding its own evolving
// state. A simulation never updates a Reservoir's concentrations; they are
// read only through the transfers of connections that target the
// reservoir (a Res connection, or a directly rated Isotropic,
// Anisotropic or DivByV one; the flattener rejects a plain Ficks
// connection to a reservoir).
type Reservoir struct {
	id   ID
	conc map[*rxn.Species]ConcSource
}

// NewReservoir constructs an empty reservoir with the given id.
func NewReservoir(id ID) *Reservoir {
	return &Reservoir{id: id, conc: make(map[*rxn.Species]ConcSource)}
}

// ID returns the reservoir's id.
func (r *Reservoir) ID() ID { return r.id }

// FlatKey implements Node. Reservoirs are never array members, so their
// flat key is always their bare id.
func (r *Reservoir) FlatKey() string { return r.id.Key() }

// AddConstant registers a fixed boundary concentration for species s. It
// is a Semantic error to register the same species twice, whether as a
// constant or a time-varying source (spec.md §7).
func (r *Reservoir) AddConstant(s *rxn.Species, conc *unit.Unit) error {
	const op = "compartment.Reservoir.AddConstant"
	if _, exists := r.conc[s]; exists {
		return simerr.Semanticf(op, "reservoir %q: species %q already has a concentration source", r.id.Key(), s.ID)
	}
	v, err := quantity.CoerceConcentration(conc)
	if err != nil {
		return simerr.Dimensionalf(op, "reservoir %q: species %q: %v", r.id.Key(), s.ID, err)
	}
	if v < 0 {
		return simerr.Semanticf(op, "reservoir %q: species %q: negative concentration %g", r.id.Key(), s.ID, v)
	}
	r.conc[s] = ConstantConc{Value: v}
	return nil
}

// AddTimeFunc registers a time-varying boundary concentration for species
// s. fn is expected to return a concentration in the engine's canonical
// units (mol/L) for any t >= 0; it is the caller's responsibility to
// ensure fn never returns a negative value.
func (r *Reservoir) AddTimeFunc(s *rxn.Species, fn TimeFunc) error {
	const op = "compartment.Reservoir.AddTimeFunc"
	if _, exists := r.conc[s]; exists {
		return simerr.Semanticf(op, "reservoir %q: species %q already has a concentration source", r.id.Key(), s.ID)
	}
	if fn == nil {
		return simerr.Structuralf(op, "reservoir %q: species %q: nil time function", r.id.Key(), s.ID)
	}
	r.conc[s] = TimeVaryingConc{Fn: fn}
	return nil
}

// Value returns the reservoir's concentration for species s at time t,
// and whether the species has a registered source at all.
func (r *Reservoir) Value(s *rxn.Species, t float64) (float64, bool) {
	src, ok := r.conc[s]
	if !ok {
		return 0, false
	}
	return src.value(t), true
}

// Species returns the set of species this reservoir has a concentration
// source for.
func (r *Reservoir) Species() []*rxn.Species {
	out := make([]*rxn.Species, 0, len(r.conc))
	for s := range r.conc {
		out = append(out, s)
	}
	return out
}
