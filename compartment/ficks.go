package compartment

import (
	"github.com/ctessum/unit"

	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Ficks is an unresolved diffusive connection: a per-species diffusion
// constant D, plus optional geometric overrides (surface area, center
// distance) to use instead of the values the flattener would otherwise
// infer from the two compartments' extents and centers. Ficks must be
// resolved to a DivByV connection (via Resolve) before a simulation
// backend can use it; the flattener performs this resolution as part of
// building a FlatModel.
type Ficks struct {
	d    map[*rxn.Species]float64 // diffusion constant, length^2/time
	dim  int
	area *float64 // optional override, length^(dim-1)
	dist *float64 // optional override, length
}

func (Ficks) isConnection() {}

// NewFicks builds a Ficks connection from per-species diffusion
// constants. dim is the spatial dimension of the compartments the
// connection spans (1, 2, or 3).
func NewFicks(d map[*rxn.Species]*unit.Unit, dim int) (Ficks, error) {
	const op = "compartment.NewFicks"
	if dim < 1 || dim > 3 {
		return Ficks{}, simerr.Structuralf(op, "dim must be 1, 2, or 3, got %d", dim)
	}
	out := make(map[*rxn.Species]float64, len(d))
	for s, q := range d {
		v, err := quantity.CoerceDiffusion(q)
		if err != nil {
			return Ficks{}, simerr.Dimensionalf(op, "species %q: %v", s.ID, err)
		}
		if v < 0 {
			return Ficks{}, simerr.Semanticf(op, "species %q: negative diffusion constant %g", s.ID, v)
		}
		out[s] = v
	}
	return Ficks{d: out, dim: dim}, nil
}

// WithSurfaceArea overrides the face area the flattener would otherwise
// infer geometrically.
func (f Ficks) WithSurfaceArea(area *unit.Unit) (Ficks, error) {
	v, err := quantity.CoerceLength(area)
	if err != nil {
		return Ficks{}, simerr.Dimensionalf("compartment.Ficks.WithSurfaceArea", "%v", err)
	}
	f.area = &v
	return f, nil
}

// WithCenterDistance overrides the center-to-center distance the
// flattener would otherwise infer geometrically.
func (f Ficks) WithCenterDistance(dist *unit.Unit) (Ficks, error) {
	v, err := quantity.CoerceLength(dist)
	if err != nil {
		return Ficks{}, simerr.Dimensionalf("compartment.Ficks.WithCenterDistance", "%v", err)
	}
	f.dist = &v
	return f, nil
}

// D returns the connection's per-species diffusion constants.
func (f Ficks) D() map[*rxn.Species]float64 { return f.d }

// Dim returns the connection's spatial dimension.
func (f Ficks) Dim() int { return f.dim }

// Geometry returns the connection's area/distance overrides, if any set.
func (f Ficks) Geometry() (area, dist *float64) { return f.area, f.dist }

// Resolve converts the diffusive constant into a DivByV connection using
// k = D * area / distance (spec.md §4.3), isotropic in direction since
// Fick's law carries no directional asymmetry of its own. area and dist
// are the geometric values to use when the connection carries no
// override of its own.
func (f Ficks) Resolve(area, dist float64) (DivByV, error) {
	const op = "compartment.Ficks.Resolve"
	if f.area != nil {
		area = *f.area
	}
	if f.dist != nil {
		dist = *f.dist
	}
	if area <= 0 {
		return DivByV{}, simerr.Semanticf(op, "non-positive face area %g", area)
	}
	if dist <= 0 {
		return DivByV{}, simerr.Semanticf(op, "non-positive center distance %g", dist)
	}
	coef := make(map[*rxn.Species]Pair, len(f.d))
	for s, d := range f.d {
		k := d * area / dist
		coef[s] = Pair{k, k}
	}
	return DivByV{coef: coef, dim: f.dim}, nil
}

// Res is a Ficks connection bound to a reservoir face: it carries the
// same diffusive description but resolves directionally against a fixed
// boundary concentration rather than a neighboring compartment's state,
// per spec.md §4.3's reservoir-connection variant.
type Res struct {
	Ficks
}

func (Res) isConnection() {}

// NewRes builds a Res connection from per-species diffusion constants.
func NewRes(d map[*rxn.Species]*unit.Unit, dim int) (Res, error) {
	f, err := NewFicks(d, dim)
	if err != nil {
		return Res{}, err
	}
	return Res{Ficks: f}, nil
}
