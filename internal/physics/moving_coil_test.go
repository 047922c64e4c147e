package physics_test

import (
	"math"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/physics"
)

var _ = Describe("MovingCoil", func() {
	var coil *physics.MovingCoil

	BeforeEach(func() {
		var err error
		coil, err = physics.NewMovingCoil(nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("exposes exactly the default parameters", func() {
			Expect(coil.Params().Names()).To(Equal([]string{
				"phys_name", "x1", "x2", "Ip", "m", "dt_sim", "init_state",
			}))
			Expect(coil.Params().Float("dt_sim")).To(Equal(0.1))
			Expect(coil.Name()).To(Equal("MovingCoil"))
		})

		It("applies overrides and keeps the rest at default", func() {
			c, err := physics.NewMovingCoil(map[string]any{"Ip": 2.5, "init_state": []float64{0.2, 0}})
			Expect(err).NotTo(HaveOccurred())

			p := c.Params()
			Expect(p.Len()).To(Equal(7))
			Expect(p.Float("Ip")).To(Equal(2.5))
			Expect(p.Float("x1")).To(Equal(-1.0))
			Expect(c.State()).To(Equal(dynamo.State{0.2, 0}))
		})

		It("rejects unknown parameters", func() {
			_, err := physics.NewMovingCoil(map[string]any{"x3": 2.0})
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("rejects an initial state of the wrong length", func() {
			_, err := physics.NewMovingCoil(map[string]any{"init_state": []float64{0}})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects inverted fixed coils", func() {
			_, err := physics.NewMovingCoil(map[string]any{"x1": 1.0, "x2": -1.0})
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})
	})

	Describe("Reset", func() {
		It("restores the initial state, time and action", func() {
			Expect(coil.SetControl(dynamo.Control{1, 2})).To(Succeed())
			for i := 0; i < 5; i++ {
				coil.Step()
			}

			coil.Reset()
			coil.Reset()
			Expect(coil.State()).To(Equal(dynamo.State{0, 0}))
			Expect(coil.Time()).To(BeZero())
			Expect(coil.Control()).To(Equal(dynamo.Control{0, 0}))
		})
	})

	Describe("SetControl", func() {
		It("rejects an action of the wrong length", func() {
			Expect(coil.SetControl(dynamo.Control{1})).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("has no effect until the next step", func() {
			Expect(coil.SetControl(dynamo.Control{1, 2})).To(Succeed())
			Expect(coil.State()).To(Equal(dynamo.State{0, 0}))
			Expect(coil.Time()).To(BeZero())
		})
	})

	Describe("Step", func() {
		It("keeps a centred coil still under symmetric currents", func() {
			Expect(coil.SetControl(dynamo.Control{3, 3})).To(Succeed())
			for i := 0; i < 100; i++ {
				coil.Step()
				Expect(coil.State()).To(Equal(dynamo.State{0, 0}))
			}
		})

		It("integrates one explicit Euler step", func() {
			c, err := physics.NewMovingCoil(map[string]any{"init_state": []float64{0.5, 0.2}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetControl(dynamo.Control{1, 0})).To(Succeed())
			c.Step()

			// F1 = Ip*I1/(x1 - x) = 1/(-1.5)
			Expect(c.State()[0]).To(BeNumerically("~", 0.5+0.1*0.2, 1e-12))
			Expect(c.State()[1]).To(BeNumerically("~", 0.2+0.1*(1/-1.5), 1e-12))
		})

		It("stays finite for 30 steps of constant action", func() {
			Expect(coil.SetControl(dynamo.Control{1, 2})).To(Succeed())
			for i := 0; i < 30; i++ {
				coil.Step()
			}
			Expect(coil.State().IsValid()).To(BeTrue())
			Expect(coil.Time()).To(BeNumerically("~", 3.0, 1e-9))
		})

		It("sticks to a fixed coil with zero velocity", func() {
			c, err := physics.NewMovingCoil(map[string]any{"init_state": []float64{0.95, 1}})
			Expect(err).NotTo(HaveOccurred())
			c.Step()
			Expect(c.State()).To(Equal(dynamo.State{1, 0}))

			c, err = physics.NewMovingCoil(map[string]any{"init_state": []float64{-0.95, -1}})
			Expect(err).NotTo(HaveOccurred())
			c.Step()
			Expect(c.State()).To(Equal(dynamo.State{-1, 0}))
		})

		It("treats a coincident fixed coil as exerting no force", func() {
			c, err := physics.NewMovingCoil(map[string]any{"x2": 0.5, "init_state": []float64{0.5, 0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Derive(dynamo.State{0.5, 0}, dynamo.Control{0, 7}, 0)).To(Equal(dynamo.State{0, 0}))
		})
	})

	DescribeTable("CheckDivergence",
		func(init []float64, cause string) {
			c, err := physics.NewMovingCoil(map[string]any{"init_state": init})
			Expect(err).NotTo(HaveOccurred())

			err = c.CheckDivergence()
			if cause == "" {
				Expect(err).NotTo(HaveOccurred())
				return
			}
			Expect(err).To(MatchError(dynamo.ErrDivergence))
			var div *dynamo.Divergence
			Expect(err).To(BeAssignableToTypeOf(div))
			Expect(err.(*dynamo.Divergence).Cause).To(Equal(cause))
		},
		Entry("interior", []float64{0.3, 5}, ""),
		Entry("near coil 2", []float64{0.999, 0}, ""),
		Entry("at coil 1", []float64{-1, 0}, "moving coil reached fixed coil 1"),
		Entry("beyond coil 2", []float64{1.5, 0}, "moving coil reached fixed coil 2"),
		Entry("NaN position", []float64{math.NaN(), 0}, "system state not finite"),
		Entry("infinite velocity", []float64{0, math.Inf(1)}, "system state not finite"),
	)

	It("does not mutate state when checking divergence", func() {
		c, err := physics.NewMovingCoil(map[string]any{"init_state": []float64{1.5, 3}})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.CheckDivergence()).To(HaveOccurred())
		Expect(c.State()).To(Equal(dynamo.State{1.5, 3}))
	})

	Describe("configuration files", func() {
		It("round-trips parameters", func() {
			c, err := physics.NewMovingCoil(map[string]any{"m": 0.25, "init_state": []float64{0.1, -0.3}})
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(GinkgoT().TempDir(), "moving_coil.toml")
			Expect(c.WriteConfig(path)).To(Succeed())

			Expect(coil.ReadConfig(path)).To(Succeed())
			Expect(coil.Params().Equal(c.Params())).To(BeTrue())
			Expect(coil.State()).To(Equal(dynamo.State{0.1, -0.3}))
		})

		It("leaves the model unchanged on an invalid file", func() {
			c, err := physics.NewMovingCoil(map[string]any{"init_state": []float64{0, 0, 0}})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(c).To(BeNil())

			tank, err := physics.NewTank(nil)
			Expect(err).NotTo(HaveOccurred())
			path := filepath.Join(GinkgoT().TempDir(), "tank.toml")
			Expect(tank.WriteConfig(path)).To(Succeed())

			Expect(coil.ReadConfig(path)).To(MatchError(dynamo.ErrConfiguration))
			Expect(coil.Params().Equal(physics.MovingCoilDefaults())).To(BeTrue())
		})
	})
})
