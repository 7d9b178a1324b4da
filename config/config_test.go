package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseEmptyAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Reasoner.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.Reasoner.Provider)
	}
	if cfg.Loop.MaxIterations != 40 {
		t.Errorf("max_iterations = %d, want 40", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.DetectorCadence != 5 {
		t.Errorf("detector_cadence = %d, want 5", cfg.Loop.DetectorCadence)
	}
	if cfg.Detector.ExactRepeatThreshold != 3 {
		t.Errorf("exact_repeat_threshold = %d, want 3", cfg.Detector.ExactRepeatThreshold)
	}
	if cfg.Detector.TimeWindow != 5*time.Minute {
		t.Errorf("time_window = %v, want 5m", cfg.Detector.TimeWindow)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
reasoner:
  provider: openai
  model: gpt-4o
  temperature: 0.5
loop:
  max_iterations: 10
  detector_cadence: 2
detector:
  exact_repeat_threshold: 4
  time_window: 2m
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Reasoner.Provider != "openai" || cfg.Reasoner.Model != "gpt-4o" {
		t.Errorf("reasoner = %+v", cfg.Reasoner)
	}
	if cfg.Loop.MaxIterations != 10 {
		t.Errorf("max_iterations = %d, want 10", cfg.Loop.MaxIterations)
	}
	if cfg.Detector.TimeWindow != 2*time.Minute {
		t.Errorf("time_window = %v, want 2m", cfg.Detector.TimeWindow)
	}
	// Untouched keys keep their defaults.
	if cfg.Loop.ErrorThreshold != 2 {
		t.Errorf("error_threshold = %d, want 2", cfg.Loop.ErrorThreshold)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown provider", "reasoner:\n  provider: carrier_pigeon\n", "not supported"},
		{"temperature range", "reasoner:\n  temperature: 3.0\n", "temperature"},
		{"threshold above window", "loop:\n  error_window: 3\n  error_threshold: 5\n", "error_threshold"},
		{"timeout ordering", "loop:\n  default_command_timeout_ms: 5000\n  max_command_timeout_ms: 1000\n", "max_command_timeout_ms"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte(":\n  - not valid")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	if err := os.WriteFile(path, []byte("loop:\n  max_iterations: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Loop.MaxIterations != 7 {
		t.Errorf("max_iterations = %d, want 7", cfg.Loop.MaxIterations)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSessionConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Loop.MaxIterations = 12
	cfg.Loop.SystemPrompt = "custom prompt"
	cfg.Detector.ExactRepeatThreshold = 4

	session := cfg.SessionConfig()
	if session.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d, want 12", session.MaxIterations)
	}
	if session.SystemPrompt != "custom prompt" {
		t.Errorf("SystemPrompt = %q", session.SystemPrompt)
	}
	if session.Detector.ExactRepeatThreshold != 4 {
		t.Errorf("Detector.ExactRepeatThreshold = %d, want 4", session.Detector.ExactRepeatThreshold)
	}
}
