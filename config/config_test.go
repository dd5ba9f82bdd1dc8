package config

import (
	"testing"
)

func TestDecodeValidConfig(t *testing.T) {
	doc := `
FinalTime = 100.0
CheckpointEpsilon = 1e-6
Seed = 42
Backend = "gillespie"

[[Reporters]]
Kind = "sum"
Frequency = 1.0

[[Reporters]]
Kind = "selection"
Indices = [0, 2]
Frequency = 0.5
`
	cfg, err := Decode(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FinalTime != 100.0 {
		t.Errorf("FinalTime = %g, want 100", cfg.FinalTime)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Backend != "gillespie" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "gillespie")
	}
	if len(cfg.Reporters) != 2 {
		t.Fatalf("got %d reporters, want 2", len(cfg.Reporters))
	}
	if cfg.Reporters[1].Kind != "selection" || len(cfg.Reporters[1].Indices) != 2 {
		t.Errorf("unexpected second reporter: %+v", cfg.Reporters[1])
	}

	reporters, err := cfg.BuildReporters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reporters) != 2 {
		t.Fatalf("got %d built reporters, want 2", len(reporters))
	}
	if reporters[0].Frequency() != 1.0 {
		t.Errorf("first reporter frequency = %g, want 1.0", reporters[0].Frequency())
	}
}

func TestDecodeRejectsNegativeFinalTime(t *testing.T) {
	_, err := Decode(`FinalTime = -1.0`)
	if err == nil {
		t.Fatal("expected error for negative FinalTime, got nil")
	}
}

func TestDecodeRejectsUnknownBackend(t *testing.T) {
	_, err := Decode(`
FinalTime = 10.0
Backend = "euler"
`)
	if err == nil {
		t.Fatal("expected error for unrecognized Backend, got nil")
	}
}

func TestDecodeRejectsUnknownReporterKind(t *testing.T) {
	_, err := Decode(`
FinalTime = 10.0

[[Reporters]]
Kind = "median"
Frequency = 1.0
`)
	if err == nil {
		t.Fatal("expected error for unrecognized reporter Kind, got nil")
	}
}

func TestDecodeRejectsSelectionWithoutIndices(t *testing.T) {
	_, err := Decode(`
FinalTime = 10.0

[[Reporters]]
Kind = "selection"
Frequency = 1.0
`)
	if err == nil {
		t.Fatal("expected error for selection reporter without Indices, got nil")
	}
}

func TestEpsilonDefault(t *testing.T) {
	cfg, err := Decode(`FinalTime = 10.0`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Epsilon(1e-9); got != 1e-9 {
		t.Errorf("Epsilon(1e-9) = %g, want 1e-9 (zero-value fallback)", got)
	}

	cfg2, err := Decode(`
FinalTime = 10.0
CheckpointEpsilon = 1e-4
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg2.Epsilon(1e-9); got != 1e-4 {
		t.Errorf("Epsilon(1e-9) = %g, want configured 1e-4", got)
	}
}
