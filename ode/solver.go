package ode

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/adicksonlab/openrxn/simerr"
)

// Tableau is a Runge-Kutta-Fehlberg-style tableau: C holds the stage
// nodes, A the lower-triangular stage coefficients, B the solution
// weights, and BHat the embedded lower-order weights used to estimate
// local truncation error. Order is the higher-order solution's order,
// used to scale the adaptive step-size controller.
type Tableau struct {
	Order int
	C     []float64
	A     [][]float64
	B     []float64
	BHat  []float64
}

// DormandPrince54 is the embedded Dormand-Prince RK5(4) pair: the
// default tableau for Integrate, chosen for the same reason the teacher
// picks an adaptive embedded method over a fixed-step one — reaction
// rates span wide timescales and a fixed step either wastes work on the
// slow regime or destabilizes on the fast one.
func DormandPrince54() *Tableau {
	return &Tableau{
		Order: 5,
		C:     []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
		A: [][]float64{
			{},
			{1.0 / 5},
			{3.0 / 40, 9.0 / 40},
			{44.0 / 45, -56.0 / 15, 32.0 / 9},
			{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
			{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
			{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
		},
		B:    []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
		BHat: []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40},
	}
}

// Options configures an adaptive integration run.
type Options struct {
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	AbsTol      float64
	RelTol      float64
	MaxSteps    int
	Tableau     *Tableau
}

// DefaultOptions returns reasonable adaptive-stepping defaults; the
// caller is expected to tighten AbsTol/RelTol for stiffer systems.
func DefaultOptions() *Options {
	return &Options{
		InitialStep: 1e-3,
		MinStep:     1e-10,
		MaxStep:     math.Inf(1),
		AbsTol:      1e-9,
		RelTol:      1e-6,
		MaxSteps:    1_000_000,
		Tableau:     DormandPrince54(),
	}
}

// Evaluator is anything that can compute dQ/dt at (t, Q) into dQ, the
// interface System.Eval satisfies. Integrate depends on this rather than
// *System directly so it can drive any compiled derivative, not only
// ones built by this package's own Compile.
type Evaluator interface {
	Eval(t float64, Q, dQ []float64)
}

// Integrate advances y0 from t0 to t1 under f using an adaptive embedded
// Runge-Kutta step with step accept/reject driven by an error estimate
// against opts' tolerances (Dormand-Prince 5(4) by default). It returns
// the state at t1; y0 is left untouched. A nil opts uses DefaultOptions.
//
// Integrate takes a single [t0, t1] hop rather than building a dense
// trajectory itself — package sim drives it once per checkpoint interval
// and owns the reporter schedule, keeping this package's job limited to
// "propagate the state forward" the way the teacher's framework.go keeps
// its physics step decoupled from its output cadence.
func Integrate(f Evaluator, t0, t1 float64, y0 []float64, opts *Options) ([]float64, error) {
	const op = "ode.Integrate"
	if opts == nil {
		opts = DefaultOptions()
	}
	tab := opts.Tableau
	if tab == nil {
		tab = DormandPrince54()
	}

	n := len(y0)
	y := append([]float64(nil), y0...)
	if t1 == t0 {
		return y, nil
	}
	dir := 1.0
	if t1 < t0 {
		dir = -1.0
	}

	h := dir * math.Abs(opts.InitialStep)
	if max := dir * math.Abs(opts.MaxStep); math.Abs(h) > math.Abs(max) {
		h = max
	}

	stages := len(tab.C)
	k := make([][]float64, stages)
	for i := range k {
		k[i] = make([]float64, n)
	}
	ystage := make([]float64, n)
	ynext := make([]float64, n)

	t := t0
	steps := 0
	for dir*(t1-t) > 0 {
		if dir*(t+h-t1) > 0 {
			h = t1 - t
		}

		f.Eval(t, y, k[0])
		for s := 1; s < stages; s++ {
			copy(ystage, y)
			for j := 0; j < s && j < len(tab.A[s]); j++ {
				if tab.A[s][j] != 0 {
					floats.AddScaled(ystage, h*tab.A[s][j], k[j])
				}
			}
			f.Eval(t+tab.C[s]*h, ystage, k[s])
		}

		copy(ynext, y)
		errEst := make([]float64, n)
		for s := 0; s < stages; s++ {
			if tab.B[s] != 0 {
				floats.AddScaled(ynext, h*tab.B[s], k[s])
			}
			if d := tab.B[s] - tab.BHat[s]; d != 0 {
				floats.AddScaled(errEst, h*d, k[s])
			}
		}

		errNorm := 0.0
		for i := 0; i < n; i++ {
			scale := opts.AbsTol + opts.RelTol*math.Max(math.Abs(y[i]), math.Abs(ynext[i]))
			if scale <= 0 {
				scale = opts.AbsTol
			}
			if v := math.Abs(errEst[i]) / scale; v > errNorm {
				errNorm = v
			}
		}

		accept := errNorm <= 1.0 || math.Abs(h) <= opts.MinStep
		if accept {
			t += h
			copy(y, ynext)
			steps++
		}

		factor := 5.0
		if errNorm > 0 {
			factor = 0.9 * math.Pow(1.0/errNorm, 1.0/float64(tab.Order+1))
			if accept {
				factor = math.Min(factor, 5.0)
			} else {
				factor = math.Max(factor, 0.1)
			}
		}
		h *= factor
		if math.Abs(h) > math.Abs(opts.MaxStep) {
			h = dir * math.Abs(opts.MaxStep)
		}
		if math.Abs(h) < opts.MinStep {
			h = dir * opts.MinStep
		}

		if steps >= opts.MaxSteps {
			break
		}
	}

	if dir*(t1-t) > 0 {
		return y, simerr.Numericf(op, "exhausted MaxSteps (%d) at t=%g before reaching t1=%g", opts.MaxSteps, t, t1)
	}
	return y, nil
}
