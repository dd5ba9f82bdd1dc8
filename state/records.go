package state

import (
	"github.com/sirupsen/logrus"

	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Record is one (compartment, species, value) observation — the unit of
// exchange for round-tripping a State through a tabular, dataframe-style
// representation without this package owning any file I/O itself (that
// stays a caller concern, e.g. a CSV writer built on top of ToRecords).
type Record struct {
	Compartment string
	Species     string
	Value       float64
}

// ToRecords flattens the state into one Record per (compartment,
// species) slot, in the state's canonical order.
func (st *State) ToRecords() []Record {
	out := make([]Record, 0, len(st.Values))
	for _, key := range st.fm.Keys {
		for _, s := range st.species {
			i, ok := st.Index(key, s)
			if !ok {
				continue // s is not active in this compartment
			}
			out = append(out, Record{Compartment: key, Species: s.ID, Value: st.Values[i]})
		}
	}
	return out
}

// LoadRecords overwrites the state's values from records. A record
// naming an unknown compartment or species is a Structural error (the
// records don't match this state's compiled model). A (compartment,
// species) pair in the state with no matching record is left at its
// current value and logged at warn level — callers loading a partial
// snapshot (e.g. a checkpoint that omitted unchanged species) get that
// rather than a hard failure.
func (st *State) LoadRecords(records []Record) error {
	const op = "state.State.LoadRecords"
	bySpeciesID := make(map[string]*rxn.Species, len(st.species))
	for _, s := range st.species {
		bySpeciesID[s.ID] = s
	}

	seen := make(map[int]bool, len(records))
	for _, rec := range records {
		s, ok := bySpeciesID[rec.Species]
		if !ok {
			return simerr.Structuralf(op, "record names unknown species %q", rec.Species)
		}
		i, ok := st.Index(rec.Compartment, s)
		if !ok {
			return simerr.Structuralf(op, "record names unknown compartment %q", rec.Compartment)
		}
		st.Values[i] = rec.Value
		seen[i] = true
	}
	if len(seen) < len(st.Values) {
		logrus.WithFields(logrus.Fields{"missing": len(st.Values) - len(seen)}).Warn("state: LoadRecords left some (compartment, species) slots unset")
	}
	return nil
}
