package task_test

import (
	"math"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/episode"
	"github.com/san-kum/ctrlenv/internal/physics"
	"github.com/san-kum/ctrlenv/internal/task"
)

func coil(overrides map[string]any) *physics.MovingCoil {
	m, err := physics.NewMovingCoil(overrides)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Step", func() {
	It("declares its parameters in order", func() {
		Expect(task.StepDefaults(task.CoilVariant()).Names()).To(Equal([]string{
			"task_name", "maxIp", "minIp", "x_goal1", "x_goal2", "t_step", "debug",
		}))
		Expect(task.StepDefaults(task.TankVariant()).Names()).To(Equal([]string{
			"task_name", "maxinflow", "h_goal1", "h_goal2", "t_step", "debug",
		}))
	})

	It("never switches with the default t_step", func() {
		s, err := task.NewStep(task.CoilVariant(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Params().Float("t_step")).To(Equal(math.Inf(1)))
		Expect(s.Name()).To(Equal("Step"))

		m := coil(nil)
		s.InitializeEpisode(m)
		for i := 0; i < 50; i++ {
			m.Step()
		}
		Expect(s.Reference(m)).To(Equal([]float64{0}))
	})

	It("switches to the second goal at t_step", func() {
		s, err := task.NewStep(task.CoilVariant(), map[string]any{"t_step": 0.25, "x_goal2": 0.2})
		Expect(err).NotTo(HaveOccurred())

		m := coil(nil)
		s.InitializeEpisode(m)
		Expect(s.Reference(m)).To(Equal([]float64{0}))
		m.Step()
		m.Step()
		Expect(s.Reference(m)).To(Equal([]float64{0}))
		m.Step()
		Expect(s.Reference(m)).To(Equal([]float64{0.2}))
	})

	It("rewards 1 on target and decays with distance", func() {
		s, err := task.NewStep(task.CoilVariant(), nil)
		Expect(err).NotTo(HaveOccurred())

		m := coil(nil)
		s.InitializeEpisode(m)
		Expect(s.Reward(m)).To(Equal(1.0))

		// one sigma away
		m = coil(map[string]any{"init_state": []float64{0.05, 0}})
		s.InitializeEpisode(m)
		Expect(s.Reward(m)).To(BeNumerically("~", math.Exp(-0.5), 1e-12))
	})

	It("observes the reference followed by the state", func() {
		s, err := task.NewStep(task.CoilVariant(), map[string]any{"x_goal1": 0.3})
		Expect(err).NotTo(HaveOccurred())

		m := coil(map[string]any{"init_state": []float64{0.1, -0.2}})
		s.InitializeEpisode(m)
		Expect(s.Observation(m)).To(Equal([]float64{0.3, 0.1, -0.2}))
		Expect(s.ObservationSpec(m).Shape).To(Equal([]int{3}))
		Expect(s.ObservationSpec(m).DType).To(Equal(task.Float32))
	})

	It("exposes the action bounds", func() {
		s, err := task.NewStep(task.CoilVariant(), map[string]any{"maxIp": 2, "minIp": -3})
		Expect(err).NotTo(HaveOccurred())

		spec := s.ActionSpec(coil(nil))
		Expect(spec.Shape).To(Equal([]int{2}))
		Expect(spec.Bounds[0].Min).To(Equal(-3.0))
		Expect(spec.Bounds[1].Max).To(Equal(2.0))
		Expect(spec.Clip(dynamo.Control{5, -5})).To(Equal(dynamo.Control{2, -3}))
		Expect(spec.Contains(dynamo.Control{0, 1})).To(BeTrue())
		Expect(spec.Contains(dynamo.Control{0, 3})).To(BeFalse())
	})

	It("fixes the lower tank inflow at zero", func() {
		s, err := task.NewStep(task.TankVariant(), nil)
		Expect(err).NotTo(HaveOccurred())

		tk, err := physics.NewTank(nil)
		Expect(err).NotTo(HaveOccurred())
		spec := s.ActionSpec(tk)
		Expect(spec.Bounds).To(HaveLen(1))
		Expect(spec.Bounds[0].Min).To(Equal(0.0))
		Expect(spec.Bounds[0].Max).To(Equal(5.0))
	})

	It("forwards the action to the model", func() {
		s, err := task.NewStep(task.CoilVariant(), nil)
		Expect(err).NotTo(HaveOccurred())

		m := coil(nil)
		s.InitializeEpisode(m)
		Expect(s.BeforeStep(dynamo.Control{1, -1}, m)).To(Succeed())
		Expect(m.Control()).To(Equal(dynamo.Control{1, -1}))
		Expect(s.Recorder()).To(BeNil())

		Expect(s.BeforeStep(dynamo.Control{1}, m)).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("records every step when debugging", func() {
		s, err := task.NewStep(task.CoilVariant(), map[string]any{"debug": true})
		Expect(err).NotTo(HaveOccurred())

		m := coil(nil)
		s.InitializeEpisode(m)
		for i := 0; i < 3; i++ {
			Expect(s.BeforeStep(dynamo.Control{0.5, -0.5}, m)).To(Succeed())
			m.Step()
		}
		Expect(s.Recorder().Len()).To(Equal(3))

		packed, err := s.Recorder().Pack()
		Expect(err).NotTo(HaveOccurred())
		Expect(packed.Steps()).To(Equal(3))
		Expect(packed.Column(episode.Time, 0)).To(HaveLen(3))
		Expect(packed.Column(episode.Time, 0)[0]).To(Equal(0.0))
		Expect(packed.Row(episode.Action, 2)).To(Equal([]float64{0.5, -0.5}))
		Expect(packed.Row(episode.Reward, 0)).To(Equal([]float64{1}))

		s.InitializeEpisode(m)
		Expect(s.Recorder().Len()).To(BeZero())
	})

	DescribeTable("rejects invalid parameters",
		func(v task.Variant, overrides map[string]any, expected error) {
			_, err := task.NewStep(v, overrides)
			Expect(err).To(MatchError(expected))
		},
		Entry("inverted bounds", task.CoilVariant(), map[string]any{"maxIp": -1, "minIp": 1}, dynamo.ErrConfiguration),
		Entry("unknown key", task.CoilVariant(), map[string]any{"maxinflow": 1}, dynamo.ErrConfiguration),
		Entry("short 2D goal", task.Coil2DVariant(), map[string]any{"x_goal1": []float64{0}}, dynamo.ErrDimensionMismatch),
		Entry("negative tank maximum", task.TankVariant(), map[string]any{"maxinflow": -1}, dynamo.ErrConfiguration),
	)

	It("round-trips its parameters through a file", func() {
		s, err := task.NewStep(task.Coil2DVariant(), map[string]any{"x_goal2": []float64{0.1, -0.1}, "t_step": 2})
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "task.toml")
		Expect(s.WriteConfig(path)).To(Succeed())

		other, err := task.NewStep(task.Coil2DVariant(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(other.ReadConfig(path)).To(Succeed())
		Expect(other.Params().Equal(s.Params())).To(BeTrue())

		m, err := physics.NewMovingCoil2D(nil)
		Expect(err).NotTo(HaveOccurred())
		other.InitializeEpisode(m)
		Expect(other.Reference(m)).To(Equal([]float64{0, 0}))
	})
})
