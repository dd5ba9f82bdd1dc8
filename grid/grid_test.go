package grid

import (
	"testing"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/rxn"
)

func rateFn(rate float64) func(*compartment.Compartment, *compartment.Compartment) (compartment.Connection, error) {
	return func(from, to *compartment.Compartment) (compartment.Connection, error) {
		return compartment.NewDivByVResolved(nil, 1), nil
	}
}

func TestNew1DShapeAndWiring(t *testing.T) {
	a, err := New1D("chain", 4, 10, rateFn(1), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Members()) != 4 {
		t.Fatalf("Members() len = %d, want 4", len(a.Members()))
	}
	first := a.Members()[0]
	if len(first.Edges()) != 1 {
		t.Errorf("non-periodic end member Edges() len = %d, want 1", len(first.Edges()))
	}
	mid := a.Members()[1]
	if len(mid.Edges()) != 2 {
		t.Errorf("interior member Edges() len = %d, want 2", len(mid.Edges()))
	}
}

func TestNew1DPeriodicWiring(t *testing.T) {
	a, err := New1D("ring", 3, 10, rateFn(1), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range a.Members() {
		if len(c.Edges()) != 2 {
			t.Errorf("periodic member Edges() len = %d, want 2", len(c.Edges()))
		}
	}
}

func TestNew1DFlatKeys(t *testing.T) {
	a, err := New1D("chain", 2, 5, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := a.Members()[0].FlatKey(), "chain-0"; got != want {
		t.Errorf("FlatKey() = %q, want %q", got, want)
	}
	if got, want := a.Members()[1].FlatKey(), "chain-1"; got != want {
		t.Errorf("FlatKey() = %q, want %q", got, want)
	}
}

func TestNew2DInteriorHasFourNeighbors(t *testing.T) {
	a, err := New2D("plane", 3, 3, [2]float64{1, 1}, rateFn(1), [2]bool{false, false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	center, err := a.At(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(center.Edges()) != 4 {
		t.Errorf("center Edges() len = %d, want 4", len(center.Edges()))
	}
	corner, err := a.At(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corner.Edges()) != 2 {
		t.Errorf("corner Edges() len = %d, want 2", len(corner.Edges()))
	}
}

func TestNew3DFaceAreasRecorded(t *testing.T) {
	a, err := New3D("box", 2, 2, 2, [3]float64{1, 2, 3}, nil, [3]bool{false, false, false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := a.Members()[0]
	if area, ok := c.FaceArea("xy"); !ok || area != 2 {
		t.Errorf("xy face area = %g, %v, want 2, true", area, ok)
	}
	if area, ok := c.FaceArea("yz"); !ok || area != 6 {
		t.Errorf("yz face area = %g, %v, want 6, true", area, ok)
	}
}

func TestLineDiffusiveChain(t *testing.T) {
	s := rxn.New("A")
	a, err := Line("chain", 3, 2, map[*rxn.Species]float64{s: 4}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mid := a.Members()[1]
	for _, e := range mid.Edges() {
		resolved, ok := e.Conn.(compartment.DivByV)
		if !ok {
			t.Fatalf("connection is %T, want DivByV", e.Conn)
		}
		if got, want := resolved.Coef()[s][0], 2.0; got != want {
			t.Errorf("coef = %g, want %g", got, want)
		}
	}
}
