package rxn

import (
	"fmt"
	"strings"

	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"

	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/simerr"
)

// Term is one side of a Reaction: a species with its stoichiometric
// multiplicity.
type Term struct {
	Species *Species
	Stoich  int
}

// Reaction is an immutable description of a reversible (or one-way)
// chemical reaction. Construct with NewReaction; once built, a Reaction's fields
// must not be mutated — Compartments hold shared references to the same
// Reaction value, per spec.md §3.
type Reaction struct {
	ID          string
	Reactants   []Term
	Products    []Term
	Kf, Kr      float64 // canonical bare magnitudes (1/s, 1/(M*s), ...)
	ForwardOrd  int     // sum of reactant stoichiometries
	ReverseOrd  int     // sum of product stoichiometries
}

// NewReaction validates and constructs a Reaction. reactants/reactantStoich
// and products/productStoich must have matching lengths; every
// stoichiometry must be a positive integer; kf and kr must be non-negative
// quantities with the dimensional signature appropriate to their reaction
// order (spec.md §4.2). kf or kr may be nil to mean "this direction does
// not occur" (equivalent to a zero rate, but skips dimensional validation
// entirely since there is no rate to check).
func NewReaction(id string, reactants []*Species, reactantStoich []int, products []*Species, productStoich []int, kf, kr *unit.Unit) (*Reaction, error) {
	const op = "rxn.NewReaction"
	if len(reactants) != len(reactantStoich) {
		return nil, simerr.Semanticf(op, "reaction %q: %d reactants but %d stoichiometries", id, len(reactants), len(reactantStoich))
	}
	if len(products) != len(productStoich) {
		return nil, simerr.Semanticf(op, "reaction %q: %d products but %d stoichiometries", id, len(products), len(productStoich))
	}

	rTerms, err := buildTerms(op, id, "reactant", reactants, reactantStoich)
	if err != nil {
		return nil, err
	}
	pTerms, err := buildTerms(op, id, "product", products, productStoich)
	if err != nil {
		return nil, err
	}

	forwardOrd := sumStoich(rTerms)
	reverseOrd := sumStoich(pTerms)

	kfVal, err := coerceRate(op, id, "kf", kf, forwardOrd)
	if err != nil {
		return nil, err
	}
	krVal, err := coerceRate(op, id, "kr", kr, reverseOrd)
	if err != nil {
		return nil, err
	}

	if kfVal == 0 && krVal == 0 {
		logrus.WithField("reaction", id).Warn("rxn: both kf and kr are zero; this reaction will never fire")
	}

	return &Reaction{
		ID:         id,
		Reactants:  rTerms,
		Products:   pTerms,
		Kf:         kfVal,
		Kr:         krVal,
		ForwardOrd: forwardOrd,
		ReverseOrd: reverseOrd,
	}, nil
}

func buildTerms(op, reactionID, role string, species []*Species, stoich []int) ([]Term, error) {
	terms := make([]Term, len(species))
	for i, s := range species {
		if s == nil {
			return nil, simerr.Semanticf(op, "reaction %q: %s %d is nil", reactionID, role, i)
		}
		if stoich[i] <= 0 {
			return nil, simerr.Semanticf(op, "reaction %q: %s %q has non-positive stoichiometry %d", reactionID, role, s.ID, stoich[i])
		}
		terms[i] = Term{Species: s, Stoich: stoich[i]}
	}
	return terms, nil
}

func sumStoich(terms []Term) int {
	sum := 0
	for _, t := range terms {
		sum += t.Stoich
	}
	return sum
}

func coerceRate(op, reactionID, which string, q *unit.Unit, order int) (float64, error) {
	if q == nil {
		return 0, nil
	}
	v, err := quantity.CoerceRate(q, order)
	if err != nil {
		return 0, simerr.Dimensionalf(op, "reaction %q: %s: %v", reactionID, which, err)
	}
	if v < 0 {
		return 0, simerr.Semanticf(op, "reaction %q: %s is negative (%g)", reactionID, which, v)
	}
	return v, nil
}

// Display renders a stable, human-readable description of the reaction,
// used only for diagnostics (spec.md §4.2); it is never parsed back.
func (r *Reaction) Display() string {
	var b strings.Builder
	writeTerms(&b, r.Reactants)
	b.WriteString(" -> ")
	writeTerms(&b, r.Products)
	fmt.Fprintf(&b, " (kf=%g, kr=%g)", r.Kf, r.Kr)
	return b.String()
}

func writeTerms(b *strings.Builder, terms []Term) {
	if len(terms) == 0 {
		b.WriteString("∅")
		return
	}
	for i, t := range terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		if t.Stoich > 1 {
			fmt.Fprintf(b, "%d ", t.Stoich)
		}
		b.WriteString(t.Species.ID)
	}
}

// Involves reports whether species s appears as a reactant or product.
func (r *Reaction) Involves(s *Species) bool {
	for _, t := range r.Reactants {
		if t.Species == s {
			return true
		}
	}
	for _, t := range r.Products {
		if t.Species == s {
			return true
		}
	}
	return false
}

// Species returns the set of distinct species (reactants ∪ products)
// participating in the reaction.
func (r *Reaction) Species() []*Species {
	seen := make(map[*Species]bool)
	var out []*Species
	for _, t := range r.Reactants {
		if !seen[t.Species] {
			seen[t.Species] = true
			out = append(out, t.Species)
		}
	}
	for _, t := range r.Products {
		if !seen[t.Species] {
			seen[t.Species] = true
			out = append(out, t.Species)
		}
	}
	return out
}
