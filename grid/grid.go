// Package grid builds regular 1D, 2D, and 3D arrays of compartments and
// wires their nearest-neighbor transport connections, the way the
// teacher repo's vargrid.go builds a nested grid of Cells. Every member
// compartment is tagged with the array's id via
// (*compartment.Compartment).SetArrayID, so its flat key is
// "{array_id}-{indices}" with no separate rekey pass needed once the
// model is flattened.
package grid

import (
	"github.com/ctessum/sparse"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Array is a regular grid of compartments sharing one array id. Members
// are addressable by integer index tuple (length 1, 2, or 3, matching
// the array's dimensionality).
type Array struct {
	id      string
	shape   []int
	boxLen  []float64 // edge length per axis, canonical length units
	periodic []bool
	index   *sparse.DenseArray // maps an index tuple -> position in members
	members []*compartment.Compartment
}

// ID returns the array's id.
func (a *Array) ID() string { return a.id }

// Shape returns the array's extent along each axis.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Members returns every compartment in the array, in row-major order.
func (a *Array) Members() []*compartment.Compartment { return a.members }

// Periodic reports whether the array wraps around along the given axis.
func (a *Array) Periodic(axis int) bool {
	if axis < 0 || axis >= len(a.periodic) {
		return false
	}
	return a.periodic[axis]
}

// AxisLength returns the array's total domain extent along the given
// axis (cell count times per-cell edge length) — the periodic box
// length package model needs for minimum-image distance correction when
// resolving a Ficks connection across a wrapped boundary.
func (a *Array) AxisLength(axis int) float64 {
	if axis < 0 || axis >= len(a.shape) {
		return 0
	}
	return float64(a.shape[axis]) * a.boxLen[axis]
}

// At returns the compartment at the given index tuple.
func (a *Array) At(idx ...int) (*compartment.Compartment, error) {
	if len(idx) != len(a.shape) {
		return nil, simerr.Structuralf("grid.Array.At", "array %q: want %d indices, got %d", a.id, len(a.shape), len(idx))
	}
	flat := int(a.index.Get(idx...))
	return a.members[flat], nil
}

// New1D builds a 1D array of id with n compartments, each a Linear
// compartment of length boxLen, covering positions [0, n*boxLen) along
// axis 0. Adjacent members are wired in both directions with the
// Connection rate returns for each ordered pair (a nil rate leaves the
// array unwired); if periodic is true the array wraps around.
func New1D(id string, n int, boxLen float64, rate func(*compartment.Compartment, *compartment.Compartment) (compartment.Connection, error), periodic bool) (*Array, error) {
	const op = "grid.New1D"
	if n < 1 {
		return nil, simerr.Structuralf(op, "array %q: n must be >= 1, got %d", id, n)
	}
	a := &Array{id: id, shape: []int{n}, boxLen: []float64{boxLen}, periodic: []bool{periodic}}
	a.index = sparse.ZerosDense(n)
	a.members = make([]*compartment.Compartment, n)
	for i := 0; i < n; i++ {
		c, err := compartment.NewWithExtent(compartment.IntID(i), []compartment.AxisExtent{{float64(i) * boxLen, float64(i+1) * boxLen}})
		if err != nil {
			return nil, err
		}
		c.SetArrayID(id)
		c.SetFaceArea("x", 1) // unit cross-section, recorded for callers; flattening infers areas from extents
		a.members[i] = c
		a.index.Set(float64(i), i)
	}
	if rate == nil {
		return a, nil
	}
	for i := 0; i < n; i++ {
		j := i + 1
		if j >= n {
			if !periodic {
				continue
			}
			j = 0
		}
		if err := wire(a.members[i], a.members[j], rate); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// New2D builds an nx-by-ny array of Planar compartments, each of size
// boxLen[0] x boxLen[1], with axis-aligned nearest-neighbor wiring along
// both axes.
func New2D(id string, nx, ny int, boxLen [2]float64, rate func(*compartment.Compartment, *compartment.Compartment) (compartment.Connection, error), periodic [2]bool) (*Array, error) {
	const op = "grid.New2D"
	if nx < 1 || ny < 1 {
		return nil, simerr.Structuralf(op, "array %q: shape must be >= 1 on every axis, got (%d, %d)", id, nx, ny)
	}
	a := &Array{id: id, shape: []int{nx, ny}, boxLen: boxLen[:], periodic: periodic[:]}
	a.index = sparse.ZerosDense(nx, ny)
	a.members = make([]*compartment.Compartment, 0, nx*ny)
	grid := make(map[[2]int]*compartment.Compartment, nx*ny)
	n := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			ext := []compartment.AxisExtent{
				{float64(i) * boxLen[0], float64(i+1) * boxLen[0]},
				{float64(j) * boxLen[1], float64(j+1) * boxLen[1]},
			}
			c, err := compartment.NewWithExtent(compartment.TupleID{i, j}, ext)
			if err != nil {
				return nil, err
			}
			c.SetArrayID(id)
			a.members = append(a.members, c)
			grid[[2]int{i, j}] = c
			a.index.Set(float64(n), i, j)
			n++
		}
	}
	if rate != nil {
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				here := grid[[2]int{i, j}]
				if ni, ok := neighborIndex(i, nx, periodic[0]); ok {
					if err := wire(here, grid[[2]int{ni, j}], rate); err != nil {
						return nil, err
					}
				}
				if nj, ok := neighborIndex(j, ny, periodic[1]); ok {
					if err := wire(here, grid[[2]int{i, nj}], rate); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return a, nil
}

// New3D builds an nx-by-ny-by-nz array of Volumetric compartments with
// axis-aligned nearest-neighbor wiring along all three axes, and records
// each member's face areas (readable via FaceArea; the flattener infers a
// Ficks connection's face area from extents instead).
func New3D(id string, nx, ny, nz int, boxLen [3]float64, rate func(*compartment.Compartment, *compartment.Compartment) (compartment.Connection, error), periodic [3]bool) (*Array, error) {
	const op = "grid.New3D"
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, simerr.Structuralf(op, "array %q: shape must be >= 1 on every axis, got (%d, %d, %d)", id, nx, ny, nz)
	}
	a := &Array{id: id, shape: []int{nx, ny, nz}, boxLen: boxLen[:], periodic: periodic[:]}
	a.index = sparse.ZerosDense(nx, ny, nz)
	a.members = make([]*compartment.Compartment, 0, nx*ny*nz)
	grid := make(map[[3]int]*compartment.Compartment, nx*ny*nz)
	n := 0
	faceXY := boxLen[0] * boxLen[1]
	faceYZ := boxLen[1] * boxLen[2]
	faceXZ := boxLen[0] * boxLen[2]
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				ext := []compartment.AxisExtent{
					{float64(i) * boxLen[0], float64(i+1) * boxLen[0]},
					{float64(j) * boxLen[1], float64(j+1) * boxLen[1]},
					{float64(k) * boxLen[2], float64(k+1) * boxLen[2]},
				}
				c, err := compartment.NewWithExtent(compartment.TupleID{i, j, k}, ext)
				if err != nil {
					return nil, err
				}
				c.SetArrayID(id)
				c.SetFaceArea("yz", faceYZ)
				c.SetFaceArea("xz", faceXZ)
				c.SetFaceArea("xy", faceXY)
				a.members = append(a.members, c)
				grid[[3]int{i, j, k}] = c
				a.index.Set(float64(n), i, j, k)
				n++
			}
		}
	}
	if rate != nil {
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				for k := 0; k < nz; k++ {
					here := grid[[3]int{i, j, k}]
					if ni, ok := neighborIndex(i, nx, periodic[0]); ok {
						if err := wire(here, grid[[3]int{ni, j, k}], rate); err != nil {
							return nil, err
						}
					}
					if nj, ok := neighborIndex(j, ny, periodic[1]); ok {
						if err := wire(here, grid[[3]int{i, nj, k}], rate); err != nil {
							return nil, err
						}
					}
					if nk, ok := neighborIndex(k, nz, periodic[2]); ok {
						if err := wire(here, grid[[3]int{i, j, nk}], rate); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}
	return a, nil
}

// neighborIndex returns the next index along an axis of the given
// length, wrapping if periodic is true, and false if there is no
// neighbor (the array ends and is not periodic).
func neighborIndex(i, length int, periodic bool) (int, bool) {
	j := i + 1
	if j >= length {
		if !periodic {
			return 0, false
		}
		j = 0
	}
	return j, true
}

func wire(from, to *compartment.Compartment, rate func(*compartment.Compartment, *compartment.Compartment) (compartment.Connection, error)) error {
	fwd, err := rate(from, to)
	if err != nil {
		return err
	}
	from.Connect(to, fwd)
	back, err := rate(to, from)
	if err != nil {
		return err
	}
	to.Connect(from, back)
	return nil
}

// AddReactionAll attaches r to every compartment in the array.
func (a *Array) AddReactionAll(r *rxn.Reaction) {
	for _, c := range a.members {
		c.AddReaction(r)
	}
}

// Line is convenience sugar over New1D for the common case of a
// homogeneous diffusive chain: every species in diffusion gets the same
// Ficks connection between every adjacent pair, resolved eagerly to
// DivByV using a face area of 1 (Linear compartments carry a unit
// cross-section by convention) and boxLen as the center-to-center
// distance.
func Line(id string, n int, boxLen float64, diffusion map[*rxn.Species]float64, periodic bool) (*Array, error) {
	rate := func(from, to *compartment.Compartment) (compartment.Connection, error) {
		coef := make(map[*rxn.Species]compartment.Pair, len(diffusion))
		for s, d := range diffusion {
			k := d / boxLen // D * unitArea / boxLen
			coef[s] = compartment.Pair{k, k}
		}
		return compartment.NewDivByVResolved(coef, 1), nil
	}
	return New1D(id, n, boxLen, rate, periodic)
}
