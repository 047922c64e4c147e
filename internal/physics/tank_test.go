package physics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlenv/internal/dynamo"
	"github.com/san-kum/ctrlenv/internal/physics"
)

var _ = Describe("Tank", func() {
	It("drains by alpha*sqrt(h)*dt in one step", func() {
		tk, err := physics.NewTank(map[string]any{"alpha": 1.0, "dt_sim": 0.05, "hmax": 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.SetControl(dynamo.Control{0})).To(Succeed())

		tk.Step()
		Expect(tk.State()[0]).To(BeNumerically("~", 0.95, 1e-12))
		Expect(tk.Time()).To(BeNumerically("~", 0.05, 1e-15))
	})

	It("drains monotonically to zero without going negative", func() {
		tk, err := physics.NewTank(map[string]any{"alpha": 0.8, "init_state": []float64{2}})
		Expect(err).NotTo(HaveOccurred())

		prev := tk.State()[0]
		for i := 0; i < 400; i++ {
			tk.Step()
			h := tk.State()[0]
			Expect(h).To(BeNumerically("<=", prev))
			Expect(h).To(BeNumerically(">=", 0))
			prev = h
		}
		Expect(prev).To(BeNumerically("<", 1e-3))
		Expect(tk.CheckDivergence()).To(Succeed())
	})

	It("clamps at hmax and reports divergence there", func() {
		tk, err := physics.NewTank(map[string]any{"init_state": []float64{4.9}})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.SetControl(dynamo.Control{100})).To(Succeed())

		tk.Step()
		Expect(tk.State()).To(Equal(dynamo.State{5}))
		err = tk.CheckDivergence()
		Expect(err).To(MatchError(dynamo.ErrDivergence))
		Expect(err.Error()).To(ContainSubstring("h > max value = 5 [m]"))
	})

	It("can clamp at hmax without ending the episode", func() {
		tk, err := physics.NewTank(map[string]any{"init_state": []float64{4.9}, "diverge_at_max": false})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.SetControl(dynamo.Control{100})).To(Succeed())

		tk.Step()
		Expect(tk.State()).To(Equal(dynamo.State{5}))
		Expect(tk.CheckDivergence()).To(Succeed())
	})

	It("overflows hmax when clamping is disabled", func() {
		tk, err := physics.NewTank(map[string]any{"init_state": []float64{4.9}, "clamp_max": false})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.SetControl(dynamo.Control{100})).To(Succeed())

		tk.Step()
		Expect(tk.State()[0]).To(BeNumerically(">", 5))
		Expect(tk.CheckDivergence()).To(MatchError(dynamo.ErrDivergence))
	})

	It("accepts an integer hmax", func() {
		tk, err := physics.NewTank(map[string]any{"hmax": 7})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.Config().HMax).To(Equal(7.0))
	})

	DescribeTable("rejects invalid parameters",
		func(overrides map[string]any, expected error) {
			_, err := physics.NewTank(overrides)
			Expect(err).To(MatchError(expected))
		},
		Entry("negative height", map[string]any{"init_state": []float64{-1}}, dynamo.ErrConfiguration),
		Entry("two heights", map[string]any{"init_state": []float64{1, 1}}, dynamo.ErrDimensionMismatch),
		Entry("zero timestep", map[string]any{"dt_sim": 0.0}, dynamo.ErrConfiguration),
		Entry("infinite timestep", map[string]any{"dt_sim": math.Inf(1)}, dynamo.ErrConfiguration),
		Entry("string alpha", map[string]any{"alpha": "fast"}, dynamo.ErrConfiguration),
	)

	It("reports a non-finite height", func() {
		tk, err := physics.NewTank(map[string]any{"init_state": []float64{math.Inf(1)}, "diverge_at_max": false})
		Expect(err).NotTo(HaveOccurred())
		Expect(tk.CheckDivergence()).To(MatchError(ContainSubstring("not finite")))
	})
})
