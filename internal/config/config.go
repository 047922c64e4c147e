package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

const (
	DefaultEnvironment = "moving_coil"
	DefaultTask        = "hold_target"
	DefaultTimeLimit   = 10.0
	DefaultEpisodes    = 1
	DefaultDiscount    = 1.0
	DefaultKp          = 10.0
	DefaultKi          = 0.1
	DefaultKd          = 5.0
)

// Config describes one run: which physics and task to build, the overrides
// applied to their parameter sets, the episode settings and the policy.
type Config struct {
	Environment string           `yaml:"environment"`
	Task        string           `yaml:"task"`
	TimeLimit   float64          `yaml:"time_limit"`
	DtCtr       float64          `yaml:"dt_ctr,omitempty"`
	Episodes    int              `yaml:"episodes"`
	Workers     int              `yaml:"workers,omitempty"`
	Discount    float64          `yaml:"discount"`
	Controller  ControllerConfig `yaml:"controller"`
	Physics     map[string]any   `yaml:"physics,omitempty"`
	TaskParams  map[string]any   `yaml:"task_params,omitempty"`
}

type ControllerConfig struct {
	Type   string      `yaml:"type"`
	Action []float64   `yaml:"action,omitempty"`
	Kp     float64     `yaml:"kp,omitempty"`
	Ki     float64     `yaml:"ki,omitempty"`
	Kd     float64     `yaml:"kd,omitempty"`
	Bias   []float64   `yaml:"bias,omitempty"`
	Gain   [][]float64 `yaml:"gain,omitempty"`
	Clip   bool        `yaml:"clip"`
}

func DefaultConfig() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Task:        DefaultTask,
		TimeLimit:   DefaultTimeLimit,
		Episodes:    DefaultEpisodes,
		Discount:    DefaultDiscount,
		Controller: ControllerConfig{
			Type: "zero",
			Kp:   DefaultKp,
			Ki:   DefaultKi,
			Kd:   DefaultKd,
			Clip: true,
		},
	}
}

// Load reads a YAML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the episode settings. Names and overrides are checked
// when the physics and task are built.
func (c *Config) Validate() error {
	if c.Environment == "" || c.Task == "" {
		return fmt.Errorf("%w: environment and task are required", dynamo.ErrConfiguration)
	}
	if !(c.TimeLimit > 0) {
		return fmt.Errorf("%w: time_limit must be positive, got %v", dynamo.ErrConfiguration, c.TimeLimit)
	}
	if c.DtCtr < 0 {
		return fmt.Errorf("%w: dt_ctr must not be negative, got %v", dynamo.ErrConfiguration, c.DtCtr)
	}
	if c.Episodes < 1 {
		return fmt.Errorf("%w: episodes must be at least 1, got %d", dynamo.ErrConfiguration, c.Episodes)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("%w: discount must be in [0, 1], got %v", dynamo.ErrConfiguration, c.Discount)
	}
	return nil
}

// Clone copies the config deeply enough that overrides can be edited
// without touching a preset.
func (c *Config) Clone() *Config {
	out := *c
	out.Controller.Action = append([]float64(nil), c.Controller.Action...)
	out.Controller.Bias = append([]float64(nil), c.Controller.Bias...)
	out.Controller.Gain = make([][]float64, len(c.Controller.Gain))
	for i, row := range c.Controller.Gain {
		out.Controller.Gain[i] = append([]float64(nil), row...)
	}
	out.Physics = cloneMap(c.Physics)
	out.TaskParams = cloneMap(c.TaskParams)
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
