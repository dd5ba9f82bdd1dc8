// Package model assembles authored compartments, grid arrays, and
// reservoirs into a FlatModel: a flat, validated, fully-resolved graph
// ready for either simulation backend. This mirrors the teacher repo's
// framework.go, which likewise takes a loosely assembled set of nested
// Cells and flattens it into the dense index arrays the solver actually
// walks.
package model

import (
	"math"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/grid"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Model is the mutable authoring surface: a bag of stand-alone
// compartments, grid arrays, and reservoirs, wired together by the
// caller before a single call to Flatten locks the topology down.
type Model struct {
	standalone []*compartment.Compartment
	arrays     []*grid.Array
	reservoirs []*compartment.Reservoir

	// periodicLen maps a spatial axis to its periodic box length, for
	// every axis any added array declared periodic. Flatten consults
	// this to apply minimum-image correction when resolving a Ficks
	// connection's center-to-center distance across that axis (spec.md
	// §4.5, §8).
	periodicLen map[int]float64
}

// New returns an empty Model.
func New() *Model {
	return &Model{}
}

// AddCompartment registers a stand-alone compartment (one not belonging
// to any grid array).
func (m *Model) AddCompartment(c *compartment.Compartment) {
	m.standalone = append(m.standalone, c)
}

// AddArray registers every member of a grid array, recording the box
// length of any axis the array declares periodic. A later array
// declaring a different box length for an axis already recorded
// periodic is a structural error (spec.md §3: periodicity and box
// length "must be consistent across added arrays along periodic
// axes").
func (m *Model) AddArray(a *grid.Array) error {
	const op = "model.Model.AddArray"
	for axis := range a.Shape() {
		if !a.Periodic(axis) {
			continue
		}
		length := a.AxisLength(axis)
		if m.periodicLen == nil {
			m.periodicLen = make(map[int]float64)
		}
		if existing, ok := m.periodicLen[axis]; ok {
			if math.Abs(existing-length) > 1e-9 {
				return simerr.Structuralf(op, "array %q: periodic axis %d box length %g conflicts with a previously added array's %g", a.ID(), axis, length, existing)
			}
		} else {
			m.periodicLen[axis] = length
		}
	}
	m.arrays = append(m.arrays, a)
	return nil
}

// AddReservoir registers a reservoir.
func (m *Model) AddReservoir(r *compartment.Reservoir) {
	m.reservoirs = append(m.reservoirs, r)
}

// allCompartments returns every compartment the model knows about,
// stand-alone or array member, in a stable order (stand-alone first, in
// the order added, then arrays in the order added, each in row-major
// member order).
func (m *Model) allCompartments() []*compartment.Compartment {
	out := append([]*compartment.Compartment(nil), m.standalone...)
	for _, a := range m.arrays {
		out = append(out, a.Members()...)
	}
	return out
}

// Species returns the set of distinct species referenced anywhere in the
// model: by a compartment's reactions, or by a reservoir's concentration
// sources.
func (m *Model) Species() []*rxn.Species {
	seen := make(map[*rxn.Species]bool)
	var out []*rxn.Species
	add := func(s *rxn.Species) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, c := range m.allCompartments() {
		for _, r := range c.Reactions() {
			for _, s := range r.Species() {
				add(s)
			}
		}
	}
	for _, res := range m.reservoirs {
		for _, s := range res.Species() {
			add(s)
		}
	}
	return out
}
