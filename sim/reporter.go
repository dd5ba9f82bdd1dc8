// Package sim drives a compiled backend (an ode.System or a
// gillespie.System, wrapped to satisfy Backend) forward to a final time,
// pausing at a checkpoint schedule built from the union of every
// reporter's sampling frequency so each reporter samples (t, Q) at its
// own cadence within a single run.
package sim

import (
	"math"

	"github.com/adicksonlab/openrxn/model"
)

// Record is one (t, payload) sample a Reporter has accumulated.
type Record struct {
	T       float64
	Payload interface{}
}

// Reporter samples the state vector at its own frequency (a period on
// simulation time; 0 means "every checkpoint", since the driver's
// checkpoint schedule always includes 0 and t_end regardless of any
// reporter's frequency).
type Reporter interface {
	Frequency() float64
	Report(t float64, Q []float64)
	Records() []Record
}

type base struct {
	freq    float64
	records []Record
}

func (b *base) Frequency() float64   { return b.freq }
func (b *base) Records() []Record    { return b.records }
func (b *base) push(t float64, p interface{}) {
	b.records = append(b.records, Record{T: t, Payload: p})
}

// All reports a full copy of Q at every checkpoint matching its
// frequency.
type All struct{ base }

func NewAll(freq float64) *All { return &All{base{freq: freq}} }

func (r *All) Report(t float64, Q []float64) {
	r.push(t, append([]float64(nil), Q...))
}

// Selection reports a copy of Q restricted to the given indices.
type Selection struct {
	base
	Indices []int
}

func NewSelection(freq float64, indices []int) *Selection {
	return &Selection{base: base{freq: freq}, Indices: indices}
}

func (r *Selection) Report(t float64, Q []float64) {
	out := make([]float64, len(r.Indices))
	for i, idx := range r.Indices {
		out[i] = Q[idx]
	}
	r.push(t, out)
}

// Sum reports the sum of Q over the given indices (or all of Q if
// Indices is nil).
type Sum struct {
	base
	Indices []int
}

func NewSum(freq float64, indices []int) *Sum {
	return &Sum{base: base{freq: freq}, Indices: indices}
}

func (r *Sum) Report(t float64, Q []float64) {
	r.push(t, reduce(Q, r.Indices, 0, func(acc, v float64) float64 { return acc + v }))
}

// Avg reports the mean of Q over the given indices (or all of Q if
// Indices is nil).
type Avg struct {
	base
	Indices []int
}

func NewAvg(freq float64, indices []int) *Avg {
	return &Avg{base: base{freq: freq}, Indices: indices}
}

func (r *Avg) Report(t float64, Q []float64) {
	n := len(r.Indices)
	if n == 0 {
		n = len(Q)
	}
	sum := reduce(Q, r.Indices, 0, func(acc, v float64) float64 { return acc + v })
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	r.push(t, avg)
}

// ExtremumPayload is the payload Max and Min report: the extremal value
// and its index into Q (or into Indices, if restricted).
type ExtremumPayload struct {
	Value float64
	Index int
}

// Max reports the maximum value over the given indices (or all of Q)
// and its index.
type Max struct {
	base
	Indices []int
}

func NewMax(freq float64, indices []int) *Max {
	return &Max{base: base{freq: freq}, Indices: indices}
}

func (r *Max) Report(t float64, Q []float64) {
	r.push(t, extremum(Q, r.Indices, math.Inf(-1), func(a, b float64) bool { return b > a }))
}

// Min reports the minimum value over the given indices (or all of Q)
// and its index.
type Min struct {
	base
	Indices []int
}

func NewMin(freq float64, indices []int) *Min {
	return &Min{base: base{freq: freq}, Indices: indices}
}

func (r *Min) Report(t float64, Q []float64) {
	r.push(t, extremum(Q, r.Indices, math.Inf(1), func(a, b float64) bool { return b < a }))
}

// TopologyReporter fires exactly once, at the run's first checkpoint
// (t=0), and records the compiled model's full transport graph instead
// of sampling the count vector at all — supplemented from
// original_source/reporters.py, which records the dependency graph once
// for the same debugging purpose (SPEC_FULL.md §6). Its Frequency is 0,
// which the driver's checkpoint-divisibility check treats as "fire at
// every checkpoint"; the reporter's own fired flag is what makes it
// one-shot rather than the scheduling layer.
type TopologyReporter struct {
	base
	fm    *model.FlatModel
	fired bool
}

// NewTopologyReporter builds a TopologyReporter over the given compiled
// model.
func NewTopologyReporter(fm *model.FlatModel) *TopologyReporter {
	return &TopologyReporter{fm: fm}
}

// Report records fm.Transfers once; every call after the first is a
// no-op.
func (r *TopologyReporter) Report(t float64, Q []float64) {
	if r.fired {
		return
	}
	r.fired = true
	r.push(t, append([]model.FlatTransfer(nil), r.fm.Transfers...))
}

func reduce(Q []float64, indices []int, init float64, f func(acc, v float64) float64) float64 {
	acc := init
	if len(indices) == 0 {
		for _, v := range Q {
			acc = f(acc, v)
		}
		return acc
	}
	for _, idx := range indices {
		acc = f(acc, Q[idx])
	}
	return acc
}

func extremum(Q []float64, indices []int, init float64, better func(best, candidate float64) bool) ExtremumPayload {
	best := init
	bestIdx := -1
	if len(indices) == 0 {
		for i, v := range Q {
			if better(best, v) {
				best, bestIdx = v, i
			}
		}
		return ExtremumPayload{Value: best, Index: bestIdx}
	}
	for i, idx := range indices {
		if v := Q[idx]; better(best, v) {
			best, bestIdx = v, i
		}
	}
	return ExtremumPayload{Value: best, Index: bestIdx}
}
