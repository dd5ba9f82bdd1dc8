package compartment

import (
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"

	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Connection describes how species move between a compartment and one of
// its neighbors. It is a closed set of concrete variants — Isotropic,
// Anisotropic, DivByV, Ficks, Res — dispatched by type switch rather than
// by a single field-soup struct with "maybe populated" members, per the
// REDESIGN FLAGS.
type Connection interface {
	isConnection()
}

// Pair is a per-species (k_out, k_in) rate pair attached to one directed
// Edge. Pair[0] (k_out) drives the sink term at the edge's own source
// compartment, proportional to that compartment's own population.
// Pair[1] (k_in) drives a second, independent source term credited to
// that SAME position but proportional to the neighbor's population (or,
// for a Res edge, the reservoir's prescribed concentration) — package
// model's flattener carries both all the way to FlatTransfer and package
// ode consumes both (spec.md §4.7). An Isotropic connection sets
// Pair[0] == Pair[1], which collapses to ordinary symmetric diffusion;
// Anisotropic is the only variant where the two may legitimately differ.
// Package gillespie consumes only Pair[0] for a compartment-to-compartment
// edge (see gillespie.addTransferProcess): spec.md §4.8's discrete process
// table has no neighbor-driven source term, only a directed hop. It reads
// Pair[1] only for an edge into a reservoir, as the reservoir-driven
// influx rate.
type Pair [2]float64

// ResolvedConnection is a Connection whose per-species rates are already
// known in canonical units (1/time). Isotropic and Anisotropic satisfy it
// directly; DivByV does not, since its rates depend on the source volume
// (see DivByV.ResolveByVolume), and Ficks and Res must be resolved first
// (see ficks.go).
type ResolvedConnection interface {
	Connection
	Pairs() map[*rxn.Species]Pair
}

// Isotropic is a connection whose rate does not depend on direction: the
// same canonical rate applies to flux leaving and flux entering. Per
// spec.md's Open Question on scalar input, NewIsotropic accepts a single
// rate per species and broadcasts it to both slots of the Pair.
type Isotropic struct {
	rates map[*rxn.Species]Pair
}

func (Isotropic) isConnection() {}

// Pairs implements ResolvedConnection.
func (c Isotropic) Pairs() map[*rxn.Species]Pair { return c.rates }

// NewIsotropic builds an Isotropic connection from a per-species rate
// map. Each rate must coerce to 1/time; a zero-length map is accepted
// with a logged warning, and such a connection yields no transfers when
// the model is flattened (no species transported).
func NewIsotropic(rates map[*rxn.Species]*unit.Unit) (Isotropic, error) {
	const op = "compartment.NewIsotropic"
	out := make(map[*rxn.Species]Pair, len(rates))
	for s, q := range rates {
		v, err := quantity.CoerceTransportRate(q)
		if err != nil {
			return Isotropic{}, simerr.Dimensionalf(op, "species %q: %v", s.ID, err)
		}
		if v < 0 {
			return Isotropic{}, simerr.Semanticf(op, "species %q: negative transport rate %g", s.ID, v)
		}
		out[s] = Pair{v, v}
	}
	if len(out) == 0 {
		logrus.Warn("compartment: Isotropic connection created with no species")
	}
	return Isotropic{rates: out}, nil
}

// Anisotropic is a connection whose outgoing and incoming rates may
// differ by species.
type Anisotropic struct {
	rates map[*rxn.Species]Pair
}

func (Anisotropic) isConnection() {}

// Pairs implements ResolvedConnection.
func (c Anisotropic) Pairs() map[*rxn.Species]Pair { return c.rates }

// NewAnisotropic builds an Anisotropic connection from explicit
// (outgoing, incoming) rate pairs per species.
func NewAnisotropic(rates map[*rxn.Species][2]*unit.Unit) (Anisotropic, error) {
	const op = "compartment.NewAnisotropic"
	out := make(map[*rxn.Species]Pair, len(rates))
	for s, qp := range rates {
		out_, err := quantity.CoerceTransportRate(qp[0])
		if err != nil {
			return Anisotropic{}, simerr.Dimensionalf(op, "species %q: outgoing rate: %v", s.ID, err)
		}
		in_, err := quantity.CoerceTransportRate(qp[1])
		if err != nil {
			return Anisotropic{}, simerr.Dimensionalf(op, "species %q: incoming rate: %v", s.ID, err)
		}
		if out_ < 0 || in_ < 0 {
			return Anisotropic{}, simerr.Semanticf(op, "species %q: negative transport rate", s.ID)
		}
		out[s] = Pair{out_, in_}
	}
	return Anisotropic{rates: out}, nil
}

// NewAnisotropicScalar builds an Anisotropic connection from a single
// scalar rate per species, broadcast to both directions. This is the
// scalar-broadcast-with-warning form spec.md §9 calls for when a caller
// asks for directional bookkeeping but only supplies one number.
func NewAnisotropicScalar(rates map[*rxn.Species]*unit.Unit) (Anisotropic, error) {
	const op = "compartment.NewAnisotropicScalar"
	out := make(map[*rxn.Species]Pair, len(rates))
	for s, q := range rates {
		v, err := quantity.CoerceTransportRate(q)
		if err != nil {
			return Anisotropic{}, simerr.Dimensionalf(op, "species %q: %v", s.ID, err)
		}
		if v < 0 {
			return Anisotropic{}, simerr.Semanticf(op, "species %q: negative transport rate %g", s.ID, v)
		}
		logrus.WithField("species", s.ID).Warn("compartment: scalar rate broadcast to both directions of an Anisotropic connection")
		out[s] = Pair{v, v}
	}
	return Anisotropic{rates: out}, nil
}

// DivByV is a connection whose authored coefficient has units of
// length^dim/time (a "conductance"), divided by the source compartment's
// volume measure when the model is flattened to obtain a canonical
// 1/time rate. Dim must match the number of spatial axes the conductance
// was authored against (1 for a linear conductance across a Linear
// compartment's face, 2 for a planar one, 3 for a volumetric one).
type DivByV struct {
	coef map[*rxn.Species]Pair
	dim  int
}

func (DivByV) isConnection() {}

// Dim returns the spatial dimension the DivByV coefficients were
// authored against.
func (c DivByV) Dim() int { return c.dim }

// Coef returns the raw, unresolved (outgoing, incoming) coefficients —
// NOT yet divided by a volume. DivByV does not satisfy ResolvedConnection
// because its Pairs depend on the source compartment's volume, which it
// does not itself know; the flattener performs that division.
func (c DivByV) Coef() map[*rxn.Species]Pair { return c.coef }

// NewDivByV builds a DivByV connection from per-species (outgoing,
// incoming) length^dim/time coefficients.
func NewDivByV(coef map[*rxn.Species][2]*unit.Unit, dim int) (DivByV, error) {
	const op = "compartment.NewDivByV"
	if dim < 1 || dim > 3 {
		return DivByV{}, simerr.Structuralf(op, "dim must be 1, 2, or 3, got %d", dim)
	}
	out := make(map[*rxn.Species]Pair, len(coef))
	for s, qp := range coef {
		out_, err := quantity.CoerceDivByV(qp[0], dim)
		if err != nil {
			return DivByV{}, simerr.Dimensionalf(op, "species %q: outgoing coefficient: %v", s.ID, err)
		}
		in_, err := quantity.CoerceDivByV(qp[1], dim)
		if err != nil {
			return DivByV{}, simerr.Dimensionalf(op, "species %q: incoming coefficient: %v", s.ID, err)
		}
		if out_ < 0 || in_ < 0 {
			return DivByV{}, simerr.Semanticf(op, "species %q: negative conductance", s.ID)
		}
		out[s] = Pair{out_, in_}
	}
	return DivByV{coef: out, dim: dim}, nil
}

// NewDivByVScalar builds a DivByV connection from a single coefficient
// per species, broadcast to both directions.
func NewDivByVScalar(coef map[*rxn.Species]*unit.Unit, dim int) (DivByV, error) {
	const op = "compartment.NewDivByVScalar"
	if dim < 1 || dim > 3 {
		return DivByV{}, simerr.Structuralf(op, "dim must be 1, 2, or 3, got %d", dim)
	}
	out := make(map[*rxn.Species]Pair, len(coef))
	for s, q := range coef {
		v, err := quantity.CoerceDivByV(q, dim)
		if err != nil {
			return DivByV{}, simerr.Dimensionalf(op, "species %q: %v", s.ID, err)
		}
		if v < 0 {
			return DivByV{}, simerr.Semanticf(op, "species %q: negative conductance %g", s.ID, v)
		}
		logrus.WithField("species", s.ID).Warn("compartment: scalar coefficient broadcast to both directions of a DivByV connection")
		out[s] = Pair{v, v}
	}
	return DivByV{coef: out, dim: dim}, nil
}

// NewDivByVResolved builds a DivByV connection directly from already
// dimensionless (outgoing, incoming) coefficients, bypassing unit
// coercion. Used by callers (such as package grid's Line constructor)
// that compute a coefficient programmatically rather than authoring it
// as a *unit.Unit.
func NewDivByVResolved(coef map[*rxn.Species]Pair, dim int) DivByV {
	return DivByV{coef: coef, dim: dim}
}

// resolveByVolume divides each coefficient by the source compartment's
// volume measure, producing canonical 1/time rates. Called by the
// flattener (package model), not by user code.
func (c DivByV) resolveByVolume(sourceVolume float64) (map[*rxn.Species]Pair, error) {
	if sourceVolume <= 0 {
		return nil, simerr.Semanticf("compartment.DivByV.resolveByVolume", "source compartment has non-positive volume %g", sourceVolume)
	}
	out := make(map[*rxn.Species]Pair, len(c.coef))
	for s, p := range c.coef {
		out[s] = Pair{p[0] / sourceVolume, p[1] / sourceVolume}
	}
	return out, nil
}

// ResolveByVolume is the exported form of resolveByVolume, used by
// package model's flattener.
func (c DivByV) ResolveByVolume(sourceVolume float64) (map[*rxn.Species]Pair, error) {
	return c.resolveByVolume(sourceVolume)
}
