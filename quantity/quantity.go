// Package quantity carries dimension-checked physical quantities through
// model construction and strips them to bare floats once, at compilation,
// the way the rest of this engine's hot loops expect. See the design notes
// in DESIGN.md for why this replaces a duck-typed "units on demand"
// approach.
package quantity

import (
	"fmt"

	"github.com/ctessum/unit"
)

// AmountDim is a domain-specific dimension representing moles of chemical
// substance. The upstream unit package reserves the "mol" symbol but does
// not define a base dimension for it, so one is registered here the way
// the package documentation recommends for domain-specific problems.
var AmountDim = unit.NewDimension("mol")

// Concentration is the dimensional signature of "amount per volume":
// mol/L when expressed in Molar, or count/nm^3 when expressed as a
// reciprocal cubic-nanometer number density. Both forms share this
// signature; only the magnitude scale differs, and that scale is applied
// explicitly during model flattening (see package model), never folded
// into the Dimensions type itself.
var Concentration = unit.Dimensions{AmountDim: 1, unit.LengthDim: -3}

// Canonical unit conversion factors. Time is canonically seconds and needs
// no conversion. Length is canonically nanometers; Avogadro scaling
// converts between Molar concentrations (mol/L) and cubic-nanometer count
// densities.
const (
	// AvogadroNumber is Avogadro's number, count per mole.
	AvogadroNumber = 6.02214076e23
	// NM3PerLiter is the number of cubic nanometers in one liter
	// (1 L = 1e-3 m^3 = 1e-3 * (1e9 nm)^3).
	NM3PerLiter = 1e24
)

// RateDimension returns the dimensional signature expected of a reaction
// rate constant of the given order, per spec: (concentration)^(1-order) *
// time^-1. order is the sum of reactant (or product) stoichiometries for
// the direction the rate drives.
func RateDimension(order int) unit.Dimensions {
	d := unit.Dimensions{unit.TimeDim: -1}
	p := 1 - order
	if p != 0 {
		d[AmountDim] = p
		d[unit.LengthDim] = -3 * p
	}
	return d
}

// CoerceRate validates that q carries the dimensional signature of a rate
// constant for a reaction of the given order and returns its bare
// magnitude. It is the single point where a dimensioned rate constant
// loses its units on the way into a Reaction or Connection.
func CoerceRate(q *unit.Unit, order int) (float64, error) {
	want := RateDimension(order)
	if err := q.Check(want); err != nil {
		return 0, fmt.Errorf("quantity: rate constant for order %d has the wrong dimensions: %v", order, err)
	}
	return q.Value(), nil
}

// CoerceConcentration validates that q is a concentration (amount per
// volume, in either Molar or count-density form) and returns its bare
// magnitude.
func CoerceConcentration(q *unit.Unit) (float64, error) {
	if err := q.Check(Concentration); err != nil {
		return 0, fmt.Errorf("quantity: expected a concentration: %v", err)
	}
	return q.Value(), nil
}

// CoerceTime validates that q is a duration and returns its magnitude in
// seconds.
func CoerceTime(q *unit.Unit) (float64, error) {
	if err := q.Check(unit.Second); err != nil {
		return 0, fmt.Errorf("quantity: expected a time: %v", err)
	}
	return q.Value(), nil
}

// CoerceLength validates that q is a length and returns its magnitude in
// canonical nanometers.
func CoerceLength(q *unit.Unit) (float64, error) {
	if err := q.Check(unit.Meter); err != nil {
		return 0, fmt.Errorf("quantity: expected a length: %v", err)
	}
	return q.Value(), nil
}

// CoerceTransportRate validates a per-species transport coefficient for an
// Isotropic or Anisotropic connection (dimension 1/time) and returns its
// magnitude.
func CoerceTransportRate(q *unit.Unit) (float64, error) {
	if err := q.Check(unit.Dimensions{unit.TimeDim: -1}); err != nil {
		return 0, fmt.Errorf("quantity: expected a 1/time transport rate: %v", err)
	}
	return q.Value(), nil
}

// divByVDimension is length^dim / time, for DivByV connections before they
// are divided by a source volume.
func divByVDimension(spatialDim int) unit.Dimensions {
	return unit.Dimensions{unit.LengthDim: spatialDim, unit.TimeDim: -1}
}

// CoerceDivByV validates a DivByV transport coefficient (length^spatialDim
// / time) and returns its magnitude.
func CoerceDivByV(q *unit.Unit, spatialDim int) (float64, error) {
	want := divByVDimension(spatialDim)
	if err := q.Check(want); err != nil {
		return 0, fmt.Errorf("quantity: expected a length^%d/time transport coefficient: %v", spatialDim, err)
	}
	return q.Value(), nil
}

// CoerceDiffusion validates a Fick's-law diffusion constant (length^2 /
// time) and returns its magnitude.
func CoerceDiffusion(q *unit.Unit) (float64, error) {
	if err := q.Check(unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}); err != nil {
		return 0, fmt.Errorf("quantity: expected a diffusion constant (length^2/time): %v", err)
	}
	return q.Value(), nil
}

// HigherOrderDivisor returns (N_A*V)^(order-1): the factor a reaction
// rate constant authored on a concentration (molar) basis must be
// divided by, once order >= 2 and a compartment volume is known, to
// convert it to the per-discrete-count basis both simulation backends
// operate on (they share the same compiled state vector of raw species
// counts). volumeNM3 is the compartment's volume in canonical cubic
// nanometers. hasVolume false (a Point compartment with no defined
// volume) returns 1 unconditionally — the reaction's rate constant is
// used as authored.
func HigherOrderDivisor(order int, volumeNM3 float64, hasVolume bool) float64 {
	if order < 2 || !hasVolume {
		return 1
	}
	navV := AvogadroNumber * (volumeNM3 / NM3PerLiter)
	d := 1.0
	for i := 1; i < order; i++ {
		d *= navV
	}
	return d
}
