// Package state holds the flat concentration/count vector both
// simulation backends operate on, plus the bookkeeping to translate
// between a (compartment, species) pair and its position in that
// vector. This is the same role the teacher repo's dense per-cell
// pollutant arrays play in framework.go, generalized from a fixed
// pollutant list to an arbitrary compiled species set.
package state

import (
	"sort"

	"github.com/adicksonlab/openrxn/model"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// State is a flat vector of per-(compartment, species) values, indexed
// in a fixed, deterministic order: compartments in FlatModel.Keys order,
// species in a stable sorted-by-ID order within each compartment. Only
// species *active* in a compartment — appearing in one of its reactions,
// or in a transport edge touching it — get a slot there; this matches
// the per-compartment active-species invariant the flattener's
// downstream consumers (package ode, package gillespie) rely on to avoid
// allocating derivative or propensity terms for (compartment, species)
// pairs that can never change.
type State struct {
	fm      *model.FlatModel
	species []*rxn.Species
	index   map[string]map[*rxn.Species]int
	Values  []float64
}

// New builds a zeroed State over every active (compartment, species)
// pair in fm.
func New(fm *model.FlatModel) *State {
	allSpecies := append([]*rxn.Species(nil), fm.Species...)
	sort.Slice(allSpecies, func(i, j int) bool { return allSpecies[i].ID < allSpecies[j].ID })

	active := make(map[string]map[*rxn.Species]bool, len(fm.Keys))
	touch := func(key string, s *rxn.Species) {
		if _, ok := fm.Compartments[key]; !ok {
			return // reservoirs carry no state slots
		}
		if active[key] == nil {
			active[key] = make(map[*rxn.Species]bool)
		}
		active[key][s] = true
	}
	for key, c := range fm.Compartments {
		for _, r := range c.Reactions() {
			for _, s := range r.Species() {
				touch(key, s)
			}
		}
	}
	for _, tr := range fm.Transfers {
		touch(tr.From, tr.Species)
		touch(tr.To, tr.Species)
	}

	index := make(map[string]map[*rxn.Species]int, len(fm.Keys))
	n := 0
	for _, key := range fm.Keys {
		perSpecies := make(map[*rxn.Species]int)
		for _, s := range allSpecies {
			if active[key][s] {
				perSpecies[s] = n
				n++
			}
		}
		index[key] = perSpecies
	}
	return &State{fm: fm, species: allSpecies, index: index, Values: make([]float64, n)}
}

// Len returns the state vector's length.
func (st *State) Len() int { return len(st.Values) }

// Species returns the state's species ordering.
func (st *State) Species() []*rxn.Species { return st.species }

// Index returns the flat vector position for (compartmentKey, s), and
// whether that pair exists in the state.
func (st *State) Index(compartmentKey string, s *rxn.Species) (int, bool) {
	perSpecies, ok := st.index[compartmentKey]
	if !ok {
		return 0, false
	}
	i, ok := perSpecies[s]
	return i, ok
}

// Get returns the value at (compartmentKey, s).
func (st *State) Get(compartmentKey string, s *rxn.Species) (float64, error) {
	i, ok := st.Index(compartmentKey, s)
	if !ok {
		return 0, simerr.Structuralf("state.State.Get", "no state slot for compartment %q, species %q", compartmentKey, s.ID)
	}
	return st.Values[i], nil
}

// Set writes the value at (compartmentKey, s).
func (st *State) Set(compartmentKey string, s *rxn.Species, v float64) error {
	i, ok := st.Index(compartmentKey, s)
	if !ok {
		return simerr.Structuralf("state.State.Set", "no state slot for compartment %q, species %q", compartmentKey, s.ID)
	}
	st.Values[i] = v
	return nil
}

// FlatModel returns the FlatModel this state was built from.
func (st *State) FlatModel() *model.FlatModel { return st.fm }
