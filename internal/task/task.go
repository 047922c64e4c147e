package task

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/episode"
	"github.com/san-kum/ctrlenv/internal/param"
	"github.com/san-kum/ctrlenv/internal/physics"
)

// Task derives references, observations and rewards from a physics model.
// It holds no physics state; the only mutation it performs is forwarding an
// action in BeforeStep. Methods assume the model has been reset.
type Task interface {
	Name() string
	InitializeEpisode(m physics.Model)
	Reference(m physics.Model) []float64
	Observation(m physics.Model) []float64
	Reward(m physics.Model) float64
	BeforeStep(u dynamo.Control, m physics.Model) error
	ObservationSpec(m physics.Model) Spec
	ActionSpec(m physics.Model) BoundedSpec

	// Recorder is nil until the first episode of a debug task.
	Recorder() *episode.Recorder
	Params() *param.Set
	WriteConfig(path string) error
	ReadConfig(path string) error
}

// tracking is the part shared by every task: a Gaussian reward around a
// reference, full-state observations and optional debug recording. The
// embedding task decides the reference.
type tracking struct {
	variant Variant
	params  *param.Set

	reference func(m physics.Model) []float64

	debug    bool
	minA     float64
	maxA     float64
	recorder *episode.Recorder
}

func (t *tracking) Name() string { return t.params.Text("task_name") }

func (t *tracking) Params() *param.Set { return t.params.Clone() }

func (t *tracking) WriteConfig(path string) error { return t.params.WriteFile(path) }

func (t *tracking) Recorder() *episode.Recorder { return t.recorder }

func (t *tracking) InitializeEpisode(m physics.Model) {
	if t.debug {
		t.ensureRecorder(m)
		t.recorder.Reset()
	}
	m.Reset()
}

func (t *tracking) Reference(m physics.Model) []float64 {
	return t.reference(m)
}

// Observation is the reference followed by the raw state.
func (t *tracking) Observation(m physics.Model) []float64 {
	ref := t.reference(m)
	return append(ref, m.State()...)
}

// gaussian is exp(-|p - ref|^2 / (2 sigma^2)): 1 on target, decaying with
// the Euclidean distance in the position subspace.
func (t *tracking) gaussian(m physics.Model) float64 {
	d := floats.Distance(m.Position(), t.reference(m), 2)
	s := t.variant.Sigma
	return math.Exp(-d * d / (2 * s * s))
}

func (t *tracking) forward(u dynamo.Control, m physics.Model, reward func(physics.Model) float64) error {
	if err := m.SetControl(u); err != nil {
		return err
	}
	if !t.debug {
		return nil
	}
	t.ensureRecorder(m)
	t.recorder.Append(episode.Record{
		episode.State:       m.State(),
		episode.Action:      m.Control(),
		episode.Time:        {m.Time()},
		episode.Observation: t.Observation(m),
		episode.Reward:      {reward(m)},
		episode.Reference:   t.reference(m),
	})
	return nil
}

func (t *tracking) ensureRecorder(m physics.Model) {
	if t.recorder == nil {
		t.recorder = episode.NewRecorder(episode.StepFields(m.StateDim(), m.ControlDim(), t.variant.RefDim)...)
	}
}

func (t *tracking) ObservationSpec(m physics.Model) Spec {
	return Spec{Name: "observation", Shape: []int{t.variant.RefDim + m.StateDim()}, DType: Float32}
}

func (t *tracking) ActionSpec(m physics.Model) BoundedSpec {
	return bounded("action", m.ControlDim(), t.minA, t.maxA)
}

func (t *tracking) readConfig(path string, apply func(*param.Set) error) error {
	next := t.params.Clone()
	if err := next.ReadFile(path); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return apply(next)
}

func (t *tracking) setCommon(p *param.Set) error {
	lo, hi, err := t.variant.bounds(p)
	if err != nil {
		return err
	}
	t.params = p
	t.minA, t.maxA = lo, hi
	t.debug = p.Bool("debug")
	return nil
}
