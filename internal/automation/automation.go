package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/env"
	"github.com/san-kum/ctrlenv/internal/experiment"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset given as environment/name, or an inline
// config decoded on top of the defaults.
type ScenarioStep struct {
	Name   string         `yaml:"name"`
	Preset string         `yaml:"preset,omitempty"`
	Config *config.Config `yaml:"config,omitempty"`
}

func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name   string    `yaml:"name"`
		Preset string    `yaml:"preset"`
		Config yaml.Node `yaml:"config"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.Name, s.Preset = raw.Name, raw.Preset
	if raw.Config.Kind != 0 {
		cfg := config.DefaultConfig()
		if err := raw.Config.Decode(cfg); err != nil {
			return err
		}
		s.Config = cfg
	}
	return nil
}

// Resolve returns the config the step runs.
func (s *ScenarioStep) Resolve() (*config.Config, error) {
	switch {
	case s.Preset != "" && s.Config != nil:
		return nil, fmt.Errorf("%w: step %q sets both preset and config", dynamo.ErrConfiguration, s.Name)
	case s.Preset != "":
		envName, name, _ := strings.Cut(s.Preset, "/")
		cfg := config.GetPreset(envName, name)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrConfiguration, s.Preset)
		}
		return cfg, nil
	case s.Config != nil:
		return s.Config.Clone(), nil
	}
	return nil, fmt.Errorf("%w: step %q sets neither preset nor config", dynamo.ErrConfiguration, s.Name)
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrConfiguration, path, err)
	}
	return &scenario, nil
}

// StepResult is what one scenario step produced.
type StepResult struct {
	Name    string
	Config  *config.Config
	Runs    []env.Run
	Results []*env.Result
}

// RunScenario executes all steps in order. It stops at the first failing
// step and returns the steps completed so far.
func RunScenario(ctx context.Context, scenario *Scenario, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.String("name", step.Name),
			zap.String("environment", cfg.Environment),
		)

		res, runs, err := experiment.New(cfg, logger).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: step.Name, Config: cfg, Runs: runs, Results: res})
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of the base config uniformly
// by up to Perturbation in every component.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID   int
	InitState dynamo.State
	Return    float64
	Diverged  bool
}

// MonteCarloSummary covers the trials that ran. Skipped counts trials whose
// perturbed initial state the physics rejected, such as a negative tank
// height.
type MonteCarloSummary struct {
	Trials       []MonteCarloResult
	Skipped      int
	MeanReturn   float64
	StdReturn    float64
	DivergedRate float64
}

// RunMonteCarlo executes the trials. A zero seed draws one from the clock.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *zap.Logger) (*MonteCarloSummary, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: need at least one trial", dynamo.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := baseState(cfg.Base)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	summary := &MonteCarloSummary{Trials: make([]MonteCarloResult, 0, cfg.NumTrials)}
	returns := make([]float64, 0, cfg.NumTrials)
	diverged := 0

	for trial := 0; trial < cfg.NumTrials; trial++ {
		initState := make(dynamo.State, len(base))
		for i, v := range base {
			initState[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}

		trialCfg := cfg.Base.Clone()
		trialCfg.Episodes = 1
		if trialCfg.Physics == nil {
			trialCfg.Physics = make(map[string]any)
		}
		trialCfg.Physics["init_state"] = []float64(initState)

		results, _, err := experiment.New(trialCfg, logger).Run(ctx)
		if errors.Is(err, dynamo.ErrConfiguration) {
			logger.Debug("monte carlo trial skipped", zap.Int("trial", trial), zap.Error(err))
			summary.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		r := MonteCarloResult{
			TrialID:   trial,
			InitState: initState,
			Return:    results[0].Return,
			Diverged:  results[0].Divergence != nil,
		}
		if r.Diverged {
			diverged++
		}
		if !math.IsNaN(r.Return) {
			returns = append(returns, r.Return)
		}
		summary.Trials = append(summary.Trials, r)
	}

	switch len(returns) {
	case 0:
	case 1:
		summary.MeanReturn = returns[0]
	default:
		summary.MeanReturn, summary.StdReturn = stat.MeanStdDev(returns, nil)
	}
	if len(summary.Trials) == 0 {
		return nil, fmt.Errorf("%w: all %d trials started from an invalid state", dynamo.ErrConfiguration, cfg.NumTrials)
	}
	summary.DivergedRate = float64(diverged) / float64(len(summary.Trials))
	return summary, nil
}

// baseState is the initial state the base config would start from. Building
// the whole run here keeps base config errors from being taken for rejected
// perturbations.
func baseState(cfg *config.Config) (dynamo.State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	run, err := experiment.New(cfg, nil).Build(0)
	if err != nil {
		return nil, err
	}
	return run.Env.Physics().State(), nil
}
