package compartment

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

// Kind is the explicit compartment variant named in the REDESIGN FLAGS:
// a compartment carries exactly one of these, and the volume measure that
// goes with it, instead of being duck-typed by which attributes happen to
// be set.
type Kind int

const (
	// Point compartments have no spatial extent and no volume measure
	// (Volume returns 0); only connections keyed directly by a rate
	// resolve for them, since DivByV, Ficks and Res all divide by the
	// source compartment's volume.
	Point Kind = iota
	// Linear compartments carry a length (one axis of extent).
	Linear
	// Planar compartments carry an area (two axes of extent).
	Planar
	// Volumetric compartments carry a volume (three axes of extent).
	Volumetric
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Linear:
		return "linear"
	case Planar:
		return "planar"
	case Volumetric:
		return "volumetric"
	default:
		return "unknown"
	}
}

// AxisExtent is the (lo, hi) interval a compartment occupies along one
// spatial axis, in the engine's canonical length unit (nanometers).
type AxisExtent struct {
	Lo, Hi float64
}

func (a AxisExtent) mid() float64 { return (a.Lo + a.Hi) / 2 }
func (a AxisExtent) size() float64 {
	return a.Hi - a.Lo
}

// Node is anything a Connection can target: an ordinary Compartment or a
// Reservoir. Both know their own flat key.
type Node interface {
	FlatKey() string
}

// Edge is a directed transport rule attached to a Compartment, pairing a
// target Node with the Connection describing per-species rates.
type Edge struct {
	To   Node
	Conn Connection
}

// Compartment is a well-mixed spatial region: a Kind-tagged volume
// measure, an optional positional extent, a deduplicated reaction set,
// and a set of outgoing transport edges. Compartments are mutable during
// model construction and become read-only once copied into a FlatModel
// (package model) — see spec.md §3 lifecycle.
type Compartment struct {
	id      ID
	arrayID string

	kind    Kind
	measure float64 // length, area, or volume, depending on kind
	extent  []AxisExtent

	// faceArea holds named face areas (e.g. "xy", "yz", "xz" for a
	// Volumetric grid member, or "x" for a Linear one). The flattener
	// does not read them: it infers a Ficks connection's face area from
	// the two compartments' extents (see model.geometry).
	faceArea map[string]float64

	reactions []*rxn.Reaction
	edges     map[Node]*Edge // keyed by neighbor Node identity
}

// New constructs a Point compartment (no extent, no volume) with the
// given id.
func New(id ID) *Compartment {
	return &Compartment{id: id, kind: Point, edges: make(map[Node]*Edge)}
}

// NewWithExtent constructs a compartment whose Kind and volume measure are
// derived from the number of axes in extent: one axis makes a Linear
// compartment (measure = length), two a Planar compartment (measure =
// area), three a Volumetric compartment (measure = volume). Any other
// axis count is a structural error.
func NewWithExtent(id ID, extent []AxisExtent) (*Compartment, error) {
	c := &Compartment{id: id, extent: extent, edges: make(map[Node]*Edge)}
	switch len(extent) {
	case 0:
		c.kind = Point
	case 1:
		c.kind = Linear
		c.measure = extent[0].size()
	case 2:
		c.kind = Planar
		c.measure = extent[0].size() * extent[1].size()
	case 3:
		c.kind = Volumetric
		c.measure = extent[0].size() * extent[1].size() * extent[2].size()
	default:
		return nil, simerr.Structuralf("compartment.NewWithExtent", "compartment %q: %d axes of extent is not supported (want 0-3)", id.Key(), len(extent))
	}
	for _, a := range extent {
		if a.Hi < a.Lo {
			return nil, simerr.Semanticf("compartment.NewWithExtent", "compartment %q: axis extent hi (%g) < lo (%g)", id.Key(), a.Hi, a.Lo)
		}
	}
	return c, nil
}

// ID returns the compartment's local id (without any array prefix).
func (c *Compartment) ID() ID { return c.id }

// ArrayID returns the tag of the grid array that owns this compartment,
// or "" if it is a stand-alone compartment.
func (c *Compartment) ArrayID() string { return c.arrayID }

// SetArrayID tags the compartment as belonging to the named grid array.
// Grid constructors (package grid) call this when instantiating members.
func (c *Compartment) SetArrayID(arrayID string) { c.arrayID = arrayID }

// FlatKey implements Node: "{array_id}-{id}" if the compartment belongs
// to an array, otherwise the bare id.
func (c *Compartment) FlatKey() string {
	if c.arrayID == "" {
		return c.id.Key()
	}
	return c.arrayID + "-" + c.id.Key()
}

// Kind returns the compartment's volume variant.
func (c *Compartment) Kind() Kind { return c.kind }

// Extent returns the compartment's positional extent, or nil if unset.
func (c *Compartment) Extent() []AxisExtent { return c.extent }

// Volume returns the compartment's volume measure (length, area, or
// volume, according to Kind), or 0 for a Point compartment.
func (c *Compartment) Volume() float64 { return c.measure }

// SetFaceArea records the area of a named face plane. Package grid sets
// these on its members; they are read back through FaceArea and are not
// consulted when the flattener resolves Ficks connections.
func (c *Compartment) SetFaceArea(face string, area float64) {
	if c.faceArea == nil {
		c.faceArea = make(map[string]float64)
	}
	c.faceArea[face] = area
}

// FaceArea returns the recorded area of the named face plane, and whether
// it was set.
func (c *Compartment) FaceArea(face string) (float64, bool) {
	a, ok := c.faceArea[face]
	return a, ok
}

// Center returns the compartment's midpoint coordinate along axis i.
func (c *Compartment) Center(axis int) (float64, bool) {
	if axis < 0 || axis >= len(c.extent) {
		return 0, false
	}
	return c.extent[axis].mid(), true
}

// NumAxes returns the number of spatial axes this compartment has extent
// on.
func (c *Compartment) NumAxes() int { return len(c.extent) }

// AddReaction attaches a reaction to the compartment. Adding the same
// reaction twice is a no-op but logs a warning (spec.md §7); reactions are
// compared by pointer identity since Reaction values are shared,
// immutable catalog entries.
func (c *Compartment) AddReaction(r *rxn.Reaction) {
	for _, existing := range c.reactions {
		if existing == r {
			logrus.WithFields(logrus.Fields{"compartment": c.FlatKey(), "reaction": r.ID}).Warn("compartment: reaction already added to this compartment")
			return
		}
	}
	c.reactions = append(c.reactions, r)
}

// Reactions returns the compartment's attached reactions.
func (c *Compartment) Reactions() []*rxn.Reaction { return c.reactions }

// Connect writes a directed transport edge from c to other, keyed by
// other's identity. A repeated call for the same neighbor overwrites the
// previous Connection and logs a warning, matching spec.md §4.3.
func (c *Compartment) Connect(other Node, conn Connection) {
	if c.edges == nil {
		c.edges = make(map[Node]*Edge)
	}
	if _, exists := c.edges[other]; exists {
		logrus.WithFields(logrus.Fields{"from": c.FlatKey(), "to": other.FlatKey()}).Warn("compartment: overwriting existing connection")
	}
	c.edges[other] = &Edge{To: other, Conn: conn}
}

// RemoveConnection deletes the edge to other, if any. It is a tolerant
// delete: removing an edge that does not exist logs a warning rather than
// failing.
func (c *Compartment) RemoveConnection(other Node) {
	if _, exists := c.edges[other]; !exists {
		logrus.WithFields(logrus.Fields{"from": c.FlatKey(), "to": fmt.Sprint(other)}).Warn("compartment: no connection to remove")
		return
	}
	delete(c.edges, other)
}

// Edges returns the compartment's outgoing transport edges.
func (c *Compartment) Edges() map[Node]*Edge { return c.edges }

// Copy duplicates the compartment, preserving reactions, edges, and
// volume. If newID is non-nil the copy is rekeyed; if dropArrayID is true
// the copy's array tag is cleared. This is the explicit rekey builder
// operation the REDESIGN FLAGS call for, replacing ad hoc selective-field
// copying.
func (c *Compartment) Copy(newID ID, dropArrayID bool) *Compartment {
	cp := &Compartment{
		id:      pickID(newID, c.id),
		kind:    c.kind,
		measure: c.measure,
	}
	if !dropArrayID {
		cp.arrayID = c.arrayID
	}
	if c.extent != nil {
		cp.extent = append([]AxisExtent(nil), c.extent...)
	}
	if c.faceArea != nil {
		cp.faceArea = make(map[string]float64, len(c.faceArea))
		for k, v := range c.faceArea {
			cp.faceArea[k] = v
		}
	}
	cp.reactions = append([]*rxn.Reaction(nil), c.reactions...)
	cp.edges = make(map[Node]*Edge, len(c.edges))
	for n, e := range c.edges {
		cp.edges[n] = &Edge{To: e.To, Conn: e.Conn}
	}
	return cp
}

func pickID(newID, old ID) ID {
	if newID != nil {
		return newID
	}
	return old
}
