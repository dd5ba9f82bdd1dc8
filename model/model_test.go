package model

import (
	"math"
	"testing"

	"github.com/ctessum/unit"

	"github.com/adicksonlab/openrxn/compartment"
	"github.com/adicksonlab/openrxn/grid"
	"github.com/adicksonlab/openrxn/quantity"
	"github.com/adicksonlab/openrxn/rxn"
	"github.com/adicksonlab/openrxn/simerr"
)

func TestFlattenStandaloneNoEdges(t *testing.T) {
	a := compartment.New(compartment.StringID("a"))
	b := compartment.New(compartment.StringID("b"))
	m := New()
	m.AddCompartment(a)
	m.AddCompartment(b)
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fm.Keys) != 2 {
		t.Fatalf("Keys len = %d, want 2", len(fm.Keys))
	}
	if len(fm.Transfers) != 0 {
		t.Fatalf("Transfers len = %d, want 0", len(fm.Transfers))
	}
}

func TestFlattenUnknownNeighborIsStructuralError(t *testing.T) {
	a := compartment.New(compartment.StringID("a"))
	ghost := compartment.New(compartment.StringID("ghost"))
	a.Connect(ghost, Isotropic(t))
	m := New()
	m.AddCompartment(a)
	_, err := m.Flatten()
	if !simerr.Is(err, simerr.Structural) {
		t.Fatalf("expected a Structural error, got %v", err)
	}
}

// Isotropic builds a minimal, empty Isotropic connection for tests that
// only need a well-typed Connection value and don't care about its
// per-species rates.
func Isotropic(t *testing.T) compartment.Isotropic {
	t.Helper()
	conn, err := compartment.NewIsotropic(map[*rxn.Species]*unit.Unit{})
	if err != nil {
		t.Fatalf("unexpected error building Isotropic: %v", err)
	}
	return conn
}

func TestFlattenDivByVDividesByVolume(t *testing.T) {
	s := rxn.New("A")
	a, err := compartment.NewWithExtent(compartment.StringID("a"), []compartment.AxisExtent{{0, 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := compartment.New(compartment.StringID("b"))
	conn, err := compartment.NewDivByVScalar(map[*rxn.Species]*unit.Unit{s: quantity.LengthPerTime(10, 1)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Connect(b, conn)
	m := New()
	m.AddCompartment(a)
	m.AddCompartment(b)
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fm.Transfers) != 1 {
		t.Fatalf("Transfers len = %d, want 1", len(fm.Transfers))
	}
	if got, want := fm.Transfers[0].KOut, 2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("KOut = %g, want %g", got, want)
	}
	if got, want := fm.Transfers[0].KIn, 2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("KIn = %g, want %g", got, want)
	}
}

func TestFlattenFicksResolvesGeometrically(t *testing.T) {
	s := rxn.New("A")
	a, err := compartment.NewWithExtent(compartment.StringID("a"), []compartment.AxisExtent{{0, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := compartment.NewWithExtent(compartment.StringID("b"), []compartment.AxisExtent{{2, 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := compartment.NewFicks(map[*rxn.Species]*unit.Unit{s: quantity.DiffusionConstant(4)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Connect(b, f)
	m := New()
	m.AddCompartment(a)
	m.AddCompartment(b)
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fm.Transfers) != 1 {
		t.Fatalf("Transfers len = %d, want 1", len(fm.Transfers))
	}
	// area=1 (no other axes), dist=|1-3|=2, k=D*area/dist=4*1/2=2, /volume(a)=2 -> rate=1
	if got, want := fm.Transfers[0].KOut, 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("KOut = %g, want %g", got, want)
	}
	if got, want := fm.Transfers[0].KIn, 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("KIn = %g, want %g", got, want)
	}
}

func TestFlattenResRequiresOverride(t *testing.T) {
	s := rxn.New("A")
	a, err := compartment.NewWithExtent(compartment.StringID("a"), []compartment.AxisExtent{{0, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := compartment.NewReservoir(compartment.StringID("boundary"))
	r, err := compartment.NewRes(map[*rxn.Species]*unit.Unit{s: quantity.DiffusionConstant(4)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Connect(res, r)
	m := New()
	m.AddCompartment(a)
	m.AddReservoir(res)
	_, err = m.Flatten()
	if !simerr.Is(err, simerr.Semantic) {
		t.Fatalf("expected a Semantic error (missing geometry override), got %v", err)
	}
}

// TestFlattenPeriodicMinimumImage exercises spec.md's minimum-image
// invariant: the wrap-around edge of a periodic 1D array must resolve
// its Ficks distance to one cell width (the short way around the box),
// not the naive coordinate difference spanning almost the whole domain.
func TestFlattenPeriodicMinimumImage(t *testing.T) {
	s := rxn.New("A")
	const boxLen = 10.0
	ficks := func(from, to *compartment.Compartment) (compartment.Connection, error) {
		return compartment.NewFicks(map[*rxn.Species]*unit.Unit{s: quantity.DiffusionConstant(4)}, 1)
	}
	a, err := grid.New1D("ring", 4, boxLen, ficks, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := New()
	if err := m.AddArray(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wrapRate float64
	found := false
	for _, tr := range fm.Transfers {
		if tr.From == "ring-3" && tr.To == "ring-0" {
			wrapRate = tr.KOut
			found = true
		}
	}
	if !found {
		t.Fatalf("no wrap-around transfer ring-3 -> ring-0 found")
	}
	// Naive (non-minimum-image) distance between cell 3's and cell 0's
	// centers is 30; minimum-image correction must instead use 10 (one
	// cell width, the short way around the periodic box): k = D*area/dist
	// = 4*1/10 = 0.4, rate = k / volume(10) = 0.04.
	if want := 0.04; math.Abs(wrapRate-want) > 1e-9 {
		t.Errorf("wrap-around rate = %g, want %g (minimum-image distance not applied)", wrapRate, want)
	}
}

// TestAddArrayRejectsInconsistentPeriodicBoxLength checks spec.md §3's
// cross-array consistency rule: two arrays cannot declare conflicting
// box lengths for the same periodic axis.
func TestAddArrayRejectsInconsistentPeriodicBoxLength(t *testing.T) {
	a, err := grid.New1D("ring1", 4, 10, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := grid.New1D("ring2", 5, 10, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := New()
	if err := m.AddArray(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddArray(b); !simerr.Is(err, simerr.Structural) {
		t.Fatalf("expected a Structural error for conflicting periodic box lengths, got %v", err)
	}
}

func TestFlattenResWithOverrideSucceeds(t *testing.T) {
	s := rxn.New("A")
	a, err := compartment.NewWithExtent(compartment.StringID("a"), []compartment.AxisExtent{{0, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := compartment.NewReservoir(compartment.StringID("boundary"))
	r, err := compartment.NewRes(map[*rxn.Species]*unit.Unit{s: quantity.DiffusionConstant(4)}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Ficks, err = r.Ficks.WithSurfaceArea(quantity.Nanometers(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Ficks, err = r.Ficks.WithCenterDistance(quantity.Nanometers(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Connect(res, r)
	m := New()
	m.AddCompartment(a)
	m.AddReservoir(res)
	fm, err := m.Flatten()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fm.Transfers) != 1 {
		t.Fatalf("Transfers len = %d, want 1", len(fm.Transfers))
	}
}
