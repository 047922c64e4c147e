package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/dynamo"
)

func TestListings(t *testing.T) {
	r := NewRegistry()
	if got := r.ListPhysics(); len(got) != 3 || got[0] != "moving_coil" {
		t.Errorf("unexpected physics %v", got)
	}
	if got := r.ListTasks(); len(got) != 2 || got[0] != "hold_target" {
		t.Errorf("unexpected tasks %v", got)
	}
	if got := r.ListControllers(); len(got) != 4 {
		t.Errorf("expected 4 controllers, got %v", got)
	}
}

func TestUnknownNames(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetPhysics("pendulum", nil); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	m, _ := r.GetPhysics("tank", nil)
	if _, err := r.GetTask("swing_up", m, nil); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	tk, _ := r.GetTask("step", m, nil)
	if _, err := r.GetController(config.ControllerConfig{Type: "mpc"}, m, tk); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestTaskMatchesPhysics(t *testing.T) {
	r := NewRegistry()
	m, err := r.GetPhysics("tank", map[string]any{"alpha": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	tk, err := r.GetTask("step", m, map[string]any{"h_goal2": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !tk.Params().Has("maxinflow") {
		t.Error("expected tank task parameters")
	}
}

func TestControllerValidation(t *testing.T) {
	r := NewRegistry()
	m, _ := r.GetPhysics("moving_coil", nil)
	tk, _ := r.GetTask("hold_target", m, nil)

	tests := []struct {
		name string
		cfg  config.ControllerConfig
	}{
		{"short constant", config.ControllerConfig{Type: "constant", Action: []float64{1}}},
		{"short bias", config.ControllerConfig{Type: "pid", Bias: []float64{1}}},
		{"missing gain", config.ControllerConfig{Type: "lqr"}},
		{"narrow gain", config.ControllerConfig{Type: "lqr", Gain: [][]float64{{1}, {1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.GetController(tt.cfg, m, tk); !errors.Is(err, dynamo.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}

	lqr := config.ControllerConfig{Type: "lqr", Gain: [][]float64{{1, 1}, {-1, -1}}, Clip: true}
	if _, err := r.GetController(lqr, m, tk); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExperimentRunsPresets(t *testing.T) {
	for env, names := range config.Presets {
		for name := range names {
			cfg := config.GetPreset(env, name)
			cfg.TimeLimit = 1
			cfg.Episodes = 2

			results, runs, err := New(cfg, nil).Run(context.Background())
			if err != nil {
				t.Fatalf("%s/%s: %v", env, name, err)
			}
			if len(results) != 2 || len(runs) != 2 {
				t.Fatalf("%s/%s: expected 2 results, got %d", env, name, len(results))
			}
			if _, ok := results[0].Metrics["discounted_return"]; !ok {
				t.Errorf("%s/%s: expected return metric", env, name)
			}
		}
	}
}

func TestExperimentRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Physics = map[string]any{"hmax": 3}
	if _, _, err := New(cfg, nil).Run(context.Background()); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.DtCtr = 0.15
	if _, _, err := New(cfg, nil).Run(context.Background()); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
