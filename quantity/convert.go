package quantity

import "github.com/ctessum/unit"

// The constructors below follow the same pattern as the upstream package's
// badunit sub-package: a thin wrapper that multiplies a convenient input
// value by a fixed conversion factor and tags it with the right
// Dimensions. They exist so model authors never have to hand-build a
// *unit.Unit with the right magnitude themselves.

// PerSecond creates a first-order-or-higher rate constant expressed as a
// bare 1/s magnitude; callers combine it with a concentration power using
// Mul/Div when the order is not 1.
func PerSecond(v float64) *unit.Unit {
	return unit.New(v, unit.Dimensions{unit.TimeDim: -1})
}

// PerMinute creates a 1/s rate constant from a 1/min magnitude.
func PerMinute(v float64) *unit.Unit {
	return unit.New(v/60, unit.Dimensions{unit.TimeDim: -1})
}

// PerHour creates a 1/s rate constant from a 1/h magnitude.
func PerHour(v float64) *unit.Unit {
	return unit.New(v/3600, unit.Dimensions{unit.TimeDim: -1})
}

// Molar creates a concentration quantity (mol/L) from a molar magnitude.
func Molar(v float64) *unit.Unit {
	return unit.New(v, Concentration)
}

// Micromolar creates a concentration quantity from a micromolar magnitude.
func Micromolar(v float64) *unit.Unit {
	return unit.New(v*1e-6, Concentration)
}

// CountPerCubicNanometer creates a concentration quantity directly in the
// engine's discrete-backend canonical units (count density per nm^3).
func CountPerCubicNanometer(v float64) *unit.Unit {
	return unit.New(v, Concentration)
}

// PerMolarPerSecond creates a second-order rate constant (1/(M*s)).
func PerMolarPerSecond(v float64) *unit.Unit {
	return unit.New(v, RateDimension(2))
}

// Seconds creates a duration quantity.
func Seconds(v float64) *unit.Unit {
	return unit.New(v, unit.Second)
}

// Minutes creates a duration quantity from a minutes magnitude.
func Minutes(v float64) *unit.Unit {
	return unit.New(v*60, unit.Second)
}

// Nanometers creates a length quantity in the engine's canonical length
// unit.
func Nanometers(v float64) *unit.Unit {
	return unit.New(v, unit.Meter)
}

// Micrometers creates a length quantity from a micrometer magnitude.
func Micrometers(v float64) *unit.Unit {
	return unit.New(v*1e3, unit.Meter)
}

// Millimeters creates a length quantity from a millimeter magnitude.
func Millimeters(v float64) *unit.Unit {
	return unit.New(v*1e6, unit.Meter)
}

// DiffusionConstant creates a Fick's-law diffusion quantity (nm^2/s) from
// a magnitude already expressed in the canonical length unit.
func DiffusionConstant(v float64) *unit.Unit {
	return unit.New(v, unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1})
}

// LengthPerTime creates a DivByV transport coefficient of dimension
// length^spatialDim/time.
func LengthPerTime(v float64, spatialDim int) *unit.Unit {
	return unit.New(v, divByVDimension(spatialDim))
}
