package task_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlenv/internal/physics"
	"github.com/san-kum/ctrlenv/internal/task"
)

var _ = Describe("HoldTarget", func() {
	It("keeps a constant reference", func() {
		h, err := task.NewHoldTarget(task.TankVariant(), map[string]any{"h_goal": 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Name()).To(Equal("HoldTarget"))

		tk, err := physics.NewTank(nil)
		Expect(err).NotTo(HaveOccurred())
		h.InitializeEpisode(tk)
		for i := 0; i < 10; i++ {
			Expect(h.Reference(tk)).To(Equal([]float64{2}))
			tk.Step()
		}
	})

	It("returns the terminal reward once the physics diverged", func() {
		h, err := task.NewHoldTarget(task.CoilVariant(), map[string]any{"terminal_reward": -1})
		Expect(err).NotTo(HaveOccurred())

		m := coil(map[string]any{"init_state": []float64{1, 0}})
		h.InitializeEpisode(m)
		Expect(m.CheckDivergence()).To(HaveOccurred())
		Expect(h.Reward(m)).To(Equal(-1.0))
	})

	It("rewards distance in the plane for the 2D coil", func() {
		h, err := task.NewHoldTarget(task.Coil2DVariant(), map[string]any{"x_goal": []float64{0.1, 0}})
		Expect(err).NotTo(HaveOccurred())

		m, err := physics.NewMovingCoil2D(nil)
		Expect(err).NotTo(HaveOccurred())
		h.InitializeEpisode(m)
		// distance of one sigma
		Expect(h.Reward(m)).To(BeNumerically("~", 0.6065306597126334, 1e-12))
		Expect(h.Observation(m)).To(HaveLen(6))
	})
})

var _ = Describe("ForModel", func() {
	It("matches each physics to its variant", func() {
		tk, err := physics.NewTank(nil)
		Expect(err).NotTo(HaveOccurred())
		v, err := task.ForModel(tk)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Goal).To(Equal("h"))

		m2, err := physics.NewMovingCoil2D(nil)
		Expect(err).NotTo(HaveOccurred())
		v, err = task.ForModel(m2)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.RefDim).To(Equal(2))
	})
})
