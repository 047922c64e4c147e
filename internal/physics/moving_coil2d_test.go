package physics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/physics"
)

var _ = Describe("MovingCoil2D", func() {
	It("has four fixed coils by default", func() {
		c, err := physics.NewMovingCoil2D(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ControlDim()).To(Equal(4))
		Expect(c.StateDim()).To(Equal(4))
		Expect(c.Control()).To(Equal(dynamo.Control{0, 0, 0, 0}))
		Expect(c.Config().Coils).To(HaveLen(4))
	})

	It("sizes the action from the coil list", func() {
		c, err := physics.NewMovingCoil2D(map[string]any{
			"x_c":      []float64{2, 0, -2, 0, 0, 2},
			"I_c_init": []float64{0, 0, 1},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ControlDim()).To(Equal(3))
		Expect(c.SetControl(dynamo.Control{1, 2, 3})).To(Succeed())
		Expect(c.SetControl(dynamo.Control{1, 2, 3, 4})).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	DescribeTable("rejects inconsistent geometry",
		func(overrides map[string]any, expected error) {
			_, err := physics.NewMovingCoil2D(overrides)
			Expect(err).To(MatchError(expected))
		},
		Entry("odd coordinate list", map[string]any{"x_c": []float64{2, 0, 1}}, dynamo.ErrDimensionMismatch),
		Entry("currents do not match coils", map[string]any{"I_c_init": []float64{0, 0}}, dynamo.ErrDimensionMismatch),
		Entry("short initial state", map[string]any{"init_state": []float64{0, 0}}, dynamo.ErrDimensionMismatch),
		Entry("coil inside the domain", map[string]any{"r_b": 2.0}, dynamo.ErrConfiguration),
		Entry("unknown key", map[string]any{"coils": 3.0}, dynamo.ErrConfiguration),
	)

	Describe("Derive", func() {
		It("cancels at the centre under equal currents", func() {
			c, err := physics.NewMovingCoil2D(nil)
			Expect(err).NotTo(HaveOccurred())
			dx := c.Derive(dynamo.State{0, 0, 0.1, -0.2}, dynamo.Control{1, 1, 1, 1}, 0)
			Expect(dx).To(Equal(dynamo.State{0.1, -0.2, 0, 0}))
		})

		It("scales the radial vector by Ip*I/(m*|r|^2)", func() {
			c, err := physics.NewMovingCoil2D(map[string]any{"Ip": 2.0, "m": 4.0})
			Expect(err).NotTo(HaveOccurred())
			// Only the coil at (1, 1) carries current: r = (-1, -1), |r|^2 = 2.
			dx := c.Derive(dynamo.State{0, 0, 0, 0}, dynamo.Control{1, 0, 0, 0}, 0)
			Expect(dx[2]).To(BeNumerically("~", 0.5*(-1.0/2), 1e-15))
			Expect(dx[3]).To(BeNumerically("~", 0.5*(-1.0/2), 1e-15))
		})
	})

	It("keeps a resting centred coil still", func() {
		c, err := physics.NewMovingCoil2D(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.SetControl(dynamo.Control{2, 2, 2, 2})).To(Succeed())
		for i := 0; i < 50; i++ {
			c.Step()
		}
		Expect(c.Position()).To(Equal(dynamo.State{0, 0}))
		Expect(c.Time()).To(BeNumerically("~", 5.0, 1e-9))
	})

	Describe("boundary", func() {
		It("does not clamp by default and reports divergence", func() {
			c, err := physics.NewMovingCoil2D(map[string]any{"init_state": []float64{0.9, 0, 2, 0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.CheckDivergence()).To(Succeed())

			c.Step()
			Expect(c.State()[0]).To(BeNumerically("~", 1.1, 1e-12))
			Expect(c.CheckDivergence()).To(MatchError(dynamo.ErrDivergence))
		})

		It("projects onto the circle when clamping is enabled", func() {
			c, err := physics.NewMovingCoil2D(map[string]any{
				"init_state":     []float64{0.9, 0, 2, 0},
				"clamp_boundary": true,
			})
			Expect(err).NotTo(HaveOccurred())

			c.Step()
			st := c.State()
			Expect(st[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(st[1:]).To(Equal(dynamo.State{0, 0, 0}))
			Expect(c.CheckDivergence()).To(MatchError(dynamo.ErrDivergence))
		})

		It("reports divergence after clamping in every direction", func() {
			for deg := 1; deg < 360; deg++ {
				th := float64(deg) * math.Pi / 180
				cos, sin := math.Cos(th), math.Sin(th)
				c, err := physics.NewMovingCoil2D(map[string]any{
					"init_state":     []float64{0.95 * cos, 0.95 * sin, cos, sin},
					"clamp_boundary": true,
				})
				Expect(err).NotTo(HaveOccurred())

				c.Step()
				Expect(c.Position().Norm()).To(BeNumerically("~", 1, 1e-12), "angle %d", deg)
				Expect(c.CheckDivergence()).To(MatchError(dynamo.ErrDivergence), "angle %d", deg)

				c.Reset()
				Expect(c.CheckDivergence()).To(Succeed(), "angle %d after reset", deg)
			}
		})

		It("treats a non-finite state as divergence", func() {
			c, err := physics.NewMovingCoil2D(map[string]any{"init_state": []float64{0, 0, math.NaN(), 0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.CheckDivergence()).To(MatchError(dynamo.ErrDivergence))
		})

		It("is quiet strictly inside the disc", func() {
			c, err := physics.NewMovingCoil2D(map[string]any{"init_state": []float64{0.6, -0.7, 0, 0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.CheckDivergence()).To(Succeed())
		})
	})
})
