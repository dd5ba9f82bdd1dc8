// Package graphexport projects a flattened model onto a 2D node/edge
// graph for visualization, out-of-core to the simulation itself (no
// backend consults it) but specified because downstream tooling
// observes it, mirroring the teacher's JSON-serializable diagnostic
// exports (e.g. inmap.go's scene/output encoders) rather than the
// original Python implementation's networkx DiGraph.
package graphexport

import (
	"encoding/json"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/model"
)

// Projection coefficients for the orthographic (x,y,z) -> (vis_x,vis_y)
// mapping: vis_x = x - alpha*y, vis_y = z + beta*y.
const (
	alpha = 0.7
	beta  = 1.2
)

// Node is one flat compartment's projected position.
type Node struct {
	ID    string  `json:"id"`
	VisX  float64 `json:"vis_x"`
	VisY  float64 `json:"vis_y"`
}

// Edge carries one species' resolved transport rates along a directed
// transfer: KOut drives the sink at From (proportional to From's own
// population), KIn drives the independent source credited to that same
// From position (proportional to To's population or, for a reservoir
// boundary, its prescribed concentration) — see model.FlatTransfer.
type Edge struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Species string  `json:"species"`
	KOut    float64 `json:"k_out"`
	KIn     float64 `json:"k_in"`
}

// Graph is the exported node/edge structure.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build projects every compartment in fm (reservoirs included, at the
// origin, since they carry no extent) and carries every flattened
// transfer over as a directed, per-species edge.
func Build(fm *model.FlatModel) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(fm.Keys)),
		Edges: make([]Edge, 0, len(fm.Transfers)),
	}
	for _, key := range fm.Keys {
		x, y, z := centerXYZ(fm.Compartments[key])
		g.Nodes = append(g.Nodes, Node{
			ID:   key,
			VisX: x - alpha*y,
			VisY: z + beta*y,
		})
	}
	for key := range fm.Reservoirs {
		g.Nodes = append(g.Nodes, Node{ID: key})
	}
	for _, tr := range fm.Transfers {
		g.Edges = append(g.Edges, Edge{
			From:    tr.From,
			To:      tr.To,
			Species: tr.Species.ID,
			KOut:    tr.KOut,
			KIn:     tr.KIn,
		})
	}
	return g
}

// centerXYZ reads a compartment's center along axes 0, 1, 2
// (x, y, z), defaulting any axis the compartment doesn't carry to 0 —
// a Point compartment (or any lower-dimensional one) simply projects
// flat along the axes it lacks.
func centerXYZ(c *compartment.Compartment) (x, y, z float64) {
	if c == nil {
		return 0, 0, 0
	}
	if v, ok := c.Center(0); ok {
		x = v
	}
	if v, ok := c.Center(1); ok {
		y = v
	}
	if v, ok := c.Center(2); ok {
		z = v
	}
	return x, y, z
}

// JSON renders g as indented JSON, the same way the teacher's HTTP
// diagnostic endpoints marshal their output structures.
func (g *Graph) JSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}
