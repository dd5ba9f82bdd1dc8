// Package config decodes the TOML run configuration this engine takes in
// place of the CLI flags spec.md places out of scope: the final
// simulation time, the checkpoint-divisibility tolerance, each reporter's
// firing frequency, and the RNG seed for a Gillespie run.
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/adicksonlab/openrxn/sim"
	"github.com/adicksonlab/openrxn/simerr"
)

// ReporterConfig names one reporter to attach to a run: Kind selects the
// variant ("all", "selection", "sum", "avg", "max", "min"), Indices is
// required by "selection" and, for "sum", "avg", "max" and "min",
// restricts the reduction to those positions (all of Q when empty;
// "all" ignores it), and Frequency is the reporter's own
// firing cadence in the same time units as RunConfig.FinalTime.
type ReporterConfig struct {
	Kind      string
	Indices   []int
	Frequency float64
}

// RunConfig is the decoded shape of a run's TOML configuration file,
// mirroring the teacher's own ConfigData in inmap/cmd/config.go: a flat
// struct decoded wholesale by toml.Decode, with defaults applied by the
// caller rather than by struct tags.
type RunConfig struct {
	// FinalTime is the simulation end time; the run always starts at 0.
	FinalTime float64

	// CheckpointEpsilon bounds how close a checkpoint time must be to an
	// exact multiple of a reporter's frequency to count as a hit. Zero
	// means "use the package default" (see sim.checkpointEpsilon).
	CheckpointEpsilon float64

	// Seed is the RNG seed for a Gillespie run; ignored by ODE runs.
	Seed int64

	// Backend selects "ode" or "gillespie".
	Backend string

	// Reporters lists the reporters to attach to the run.
	Reporters []ReporterConfig
}

// Read reads and parses a TOML run-configuration file, the same
// open-read-decode sequence as the teacher's ReadConfigFile.
func Read(filename string) (*RunConfig, error) {
	const op = "config.Read"
	file, err := os.Open(filename)
	if err != nil {
		return nil, simerr.Structuralf(op, "configuration file %q does not exist: %v", filename, err)
	}
	defer file.Close()

	bytes, err := ioutil.ReadAll(file)
	if err != nil {
		return nil, simerr.Structuralf(op, "reading configuration file %q: %v", filename, err)
	}

	return Decode(string(bytes))
}

// Decode parses a TOML run-configuration document already held in
// memory, the path Read delegates to and tests exercise directly.
func Decode(doc string) (*RunConfig, error) {
	const op = "config.Decode"
	cfg := new(RunConfig)
	if _, err := toml.Decode(doc, cfg); err != nil {
		return nil, simerr.Structuralf(op, "parsing configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the decoded configuration against the semantic rules
// a run needs before it can be compiled into a backend: a non-negative
// final time and a recognized backend name.
func (c *RunConfig) Validate() error {
	const op = "config.Validate"
	if c.FinalTime < 0 {
		return simerr.Semanticf(op, "FinalTime must be non-negative, got %g", c.FinalTime)
	}
	switch c.Backend {
	case "", "ode", "gillespie":
	default:
		return simerr.Semanticf(op, "unrecognized Backend %q, want \"ode\" or \"gillespie\"", c.Backend)
	}
	for i, r := range c.Reporters {
		switch r.Kind {
		case "all", "selection", "sum", "avg", "max", "min":
		default:
			return simerr.Semanticf(op, "reporter %d: unrecognized Kind %q", i, r.Kind)
		}
		if r.Kind == "selection" && len(r.Indices) == 0 {
			return simerr.Semanticf(op, "reporter %d: Kind \"selection\" requires Indices", i)
		}
	}
	return nil
}

// Epsilon returns the configured checkpoint epsilon, or def if the
// configuration left it at its zero value.
func (c *RunConfig) Epsilon(def float64) float64 {
	if c.CheckpointEpsilon > 0 {
		return c.CheckpointEpsilon
	}
	return def
}

// BuildReporters instantiates the sim.Reporter set this configuration
// describes, in declaration order, so callers can hand the result
// straight to sim.Run.
func (c *RunConfig) BuildReporters() ([]sim.Reporter, error) {
	const op = "config.BuildReporters"
	out := make([]sim.Reporter, 0, len(c.Reporters))
	for i, r := range c.Reporters {
		switch r.Kind {
		case "all":
			out = append(out, sim.NewAll(r.Frequency))
		case "selection":
			out = append(out, sim.NewSelection(r.Frequency, r.Indices))
		case "sum":
			out = append(out, sim.NewSum(r.Frequency, r.Indices))
		case "avg":
			out = append(out, sim.NewAvg(r.Frequency, r.Indices))
		case "max":
			out = append(out, sim.NewMax(r.Frequency, r.Indices))
		case "min":
			out = append(out, sim.NewMin(r.Frequency, r.Indices))
		default:
			return nil, simerr.Semanticf(op, "reporter %d: unrecognized Kind %q", i, r.Kind)
		}
	}
	return out, nil
}

// String renders a RunConfig for diagnostics, in the teacher's
// field-by-field summary style.
func (c *RunConfig) String() string {
	return fmt.Sprintf("RunConfig{FinalTime: %g, Backend: %q, Seed: %d, Reporters: %d}",
		c.FinalTime, c.Backend, c.Seed, len(c.Reporters))
}
