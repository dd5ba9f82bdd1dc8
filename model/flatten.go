package model

import (
	"fmt"
	"math"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// FlatTransfer is one fully-resolved, directed transport term: species s
// moves between compartment From and neighbor To. KOut is the canonical
// (1/time) rate driving a sink at From proportional to From's own
// population. KIn is the canonical rate driving a second, independent
// source credited to that same From position, proportional to To's
// population (or, when To is a reservoir, its prescribed concentration)
// — not a term at To, which gets no automatic contribution from this
// edge alone; a reciprocal edge registered the other way is what credits
// To its own sink/source pair (spec.md §4.7).
type FlatTransfer struct {
	From, To  string
	Species   *rxn.Species
	KOut, KIn float64
}

// FlatModel is the read-only, fully validated result of flattening a
// Model. Every id is resolved, every connection is reduced to a
// canonical 1/time rate, and every neighbor reference is confirmed to
// exist. Both simulation backends (package ode and package gillespie)
// are built directly from a FlatModel; neither ever sees a Model.
type FlatModel struct {
	// Keys lists every compartment's flat key in a stable order; this
	// order is the state vector's index order (package state).
	Keys []string
	// Compartments maps flat key to compartment, for every ordinary
	// compartment (not reservoirs).
	Compartments map[string]*compartment.Compartment
	// Reservoirs maps flat key to reservoir.
	Reservoirs map[string]*compartment.Reservoir
	// Transfers lists every resolved transport term in the model.
	Transfers []FlatTransfer
	// Species lists every distinct species referenced by the model.
	Species []*rxn.Species
}

// Flatten validates and compiles m into a FlatModel. It implements the
// four-step algorithm: (1) insert stand-alone compartments and array
// members under their flat keys, checking for collisions; (2) insert
// reservoirs; (3) verify every edge's neighbor exists among the inserted
// nodes; (4) resolve every connection (Isotropic, Anisotropic, and
// DivByV directly; Ficks/Res via geometric resolution followed by the
// same volume division) into a canonical 1/time FlatTransfer.
func (m *Model) Flatten() (*FlatModel, error) {
	const op = "model.Flatten"

	fm := &FlatModel{
		Compartments: make(map[string]*compartment.Compartment),
		Reservoirs:   make(map[string]*compartment.Reservoir),
	}
	nodes := make(map[string]compartment.Node)

	for _, c := range m.allCompartments() {
		key := c.FlatKey()
		if _, exists := nodes[key]; exists {
			return nil, simerr.Structuralf(op, "duplicate compartment flat key %q", key)
		}
		nodes[key] = c
		fm.Compartments[key] = c
		fm.Keys = append(fm.Keys, key)
	}
	for _, r := range m.reservoirs {
		key := r.FlatKey()
		if _, exists := nodes[key]; exists {
			return nil, simerr.Structuralf(op, "duplicate flat key %q (reservoir collides with a compartment)", key)
		}
		nodes[key] = r
		fm.Reservoirs[key] = r
	}

	for _, c := range m.allCompartments() {
		from := c.FlatKey()
		for neighbor, edge := range c.Edges() {
			to := neighbor.FlatKey()
			if _, exists := nodes[to]; !exists {
				return nil, simerr.Structuralf(op, "compartment %q connects to unknown neighbor %q", from, to)
			}
			transfers, err := resolveEdge(c, edge, m.periodicLen)
			if err != nil {
				return nil, fmt.Errorf("%s: edge %s -> %s: %w", op, from, to, err)
			}
			for s, p := range transfers {
				fm.Transfers = append(fm.Transfers, FlatTransfer{From: from, To: to, Species: s, KOut: p[0], KIn: p[1]})
			}
		}
	}

	fm.Species = m.Species()
	seen := make(map[*rxn.Species]bool, len(fm.Species))
	for _, s := range fm.Species {
		seen[s] = true
	}
	for _, tr := range fm.Transfers {
		if !seen[tr.Species] {
			seen[tr.Species] = true
			fm.Species = append(fm.Species, tr.Species)
		}
	}
	return fm, nil
}

// resolveEdge reduces a single edge's Connection to a per-species
// canonical (k_out, k_in) rate pair, applying geometric and volumetric
// resolution as needed. Both rate components survive to FlatTransfer —
// neither is discarded here.
func resolveEdge(from *compartment.Compartment, edge *compartment.Edge, periodicLen map[int]float64) (map[*rxn.Species]compartment.Pair, error) {
	const op = "model.resolveEdge"
	switch conn := edge.Conn.(type) {
	case compartment.Isotropic:
		return conn.Pairs(), nil
	case compartment.Anisotropic:
		return conn.Pairs(), nil
	case compartment.DivByV:
		return conn.ResolveByVolume(from.Volume())
	case compartment.Res:
		if _, ok := edge.To.(*compartment.Reservoir); !ok {
			return nil, simerr.Structuralf(op, "Res connection's neighbor is not a reservoir")
		}
		dv, err := conn.Resolve(0, 0) // reservoirs carry no extent; geometry must come from explicit overrides
		if err != nil {
			return nil, fmt.Errorf("Res connection requires explicit surface area and center distance overrides: %w", err)
		}
		return dv.ResolveByVolume(from.Volume())
	case compartment.Ficks:
		to, ok := edge.To.(*compartment.Compartment)
		if !ok {
			return nil, simerr.Structuralf(op, "Ficks connection's neighbor is not an ordinary compartment (use Res for a reservoir boundary)")
		}
		area, dist, err := geometry(from, to, periodicLen)
		if err != nil {
			return nil, err
		}
		dv, err := conn.Resolve(area, dist)
		if err != nil {
			return nil, err
		}
		return dv.ResolveByVolume(from.Volume())
	default:
		return nil, simerr.Structuralf(op, "unknown connection type %T", edge.Conn)
	}
}

// geometry infers the face area and center-to-center distance between
// two neighboring compartments from their authored extents: the axis
// along which their intervals do not coincide is taken to be the axis of
// adjacency, its center-to-center distance is the separation, and the
// face area is the product of the other axes' sizes (or 1, for a Linear
// compartment with no other axes to multiply). When the adjacency axis
// is one of the model's periodic axes, the raw center-to-center
// separation is corrected to its minimum image (spec.md §4.5, §8): if
// the raw separation exceeds half the periodic box length, the two
// compartments are in fact closer by wrapping the other way around the
// box, and the shorter distance is used instead.
func geometry(from, to *compartment.Compartment, periodicLen map[int]float64) (area, dist float64, err error) {
	const op = "model.geometry"
	fe, te := from.Extent(), to.Extent()
	if len(fe) == 0 || len(fe) != len(te) {
		return 0, 0, simerr.Structuralf(op, "compartments do not share a compatible extent for geometric resolution")
	}
	axis := -1
	area = 1
	for i := range fe {
		if math.Abs(fe[i].Lo-te[i].Lo) > 1e-9 || math.Abs(fe[i].Hi-te[i].Hi) > 1e-9 {
			if axis != -1 {
				return 0, 0, simerr.Structuralf(op, "compartments differ along more than one axis; not face-adjacent")
			}
			axis = i
			continue
		}
		area *= fe[i].Hi - fe[i].Lo
	}
	if axis == -1 {
		return 0, 0, simerr.Structuralf(op, "compartments occupy the same extent; not adjacent")
	}
	fc, _ := from.Center(axis)
	tc, _ := to.Center(axis)
	delta := fc - tc
	if boxLen, ok := periodicLen[axis]; ok && boxLen > 0 {
		delta = minimumImage(delta, boxLen)
	}
	dist = math.Abs(delta)
	return area, dist, nil
}

// minimumImage shifts delta by one periodic box length whenever the raw
// separation is more than half the box away, so the returned distance is
// always the shorter of the two paths around a periodic axis (spec.md
// §4.5: "if |Δ·2| > box_len, shift by box_len").
func minimumImage(delta, boxLen float64) float64 {
	if math.Abs(delta*2) > boxLen {
		if delta > 0 {
			delta -= boxLen
		} else {
			delta += boxLen
		}
	}
	return delta
}
