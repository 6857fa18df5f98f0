package physics_test

import (
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/tensor"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model.KernelSize = []int{3, 3, 3}
	cfg.Model.LayerChannels = []int{4, 8, 8, 8, 3}
	cfg.Scene.FluidSize = []float64{0.1, 0.15, 0.1}
	cfg.Scene.BoxSize = []float64{0.3, 0.3, 0.2}
	return cfg
}

var _ = Describe("LearnedFluid", func() {
	var (
		cfg   *config.Config
		fluid *physics.LearnedFluid
		state physics.State
		box   physics.Obstacle
	)

	BeforeEach(func() {
		cfg = smallConfig()
		var err error
		fluid, err = physics.NewLearnedFluid(cfg.Model)
		Expect(err).NotTo(HaveOccurred())
		state, box = physics.DamBreak(cfg.Scene, cfg.Model.OtherFeatsChannels, cfg.Model.Seed)
	})

	It("keeps one row per particle", func() {
		pos, vel, err := fluid.SimulateStep(state.Pos, state.Vel, nil, box.Points, box.Normals)
		Expect(err).NotTo(HaveOccurred())
		Expect(pos.Rows).To(Equal(state.NumParticles()))
		Expect(pos.Cols).To(Equal(3))
		Expect(vel.Rows).To(Equal(state.NumParticles()))
		Expect(pos.IsFinite()).To(BeTrue())
	})

	It("applies the correction on top of the gravity step", func() {
		res, err := fluid.Step(state, box)
		Expect(err).NotTo(HaveOccurred())

		pos2, _, err := fluid.IntegratePosVel(state.Pos, state.Vel)
		Expect(err).NotTo(HaveOccurred())
		want, _ := tensor.Add(pos2, res.Correction)
		Expect(tensor.AllClose(want, res.State.Pos, 0, 1e-12)).To(BeTrue())

		disp, _ := tensor.Sub(res.State.Pos, state.Pos)
		Expect(tensor.AllClose(tensor.Scale(1/cfg.Model.Timestep, disp), res.State.Vel, 1e-9, 1e-12)).To(BeTrue())
		Expect(res.NeighborCounts).To(HaveLen(state.NumParticles()))
	})

	It("matches SimulateStep", func() {
		res, err := fluid.Step(state, box)
		Expect(err).NotTo(HaveOccurred())
		pos, vel, err := fluid.SimulateStep(state.Pos, state.Vel, nil, box.Points, box.Normals)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State.Pos.Data).To(Equal(pos.Data))
		Expect(res.State.Vel.Data).To(Equal(vel.Data))
	})

	It("is deterministic for a seed", func() {
		other, err := physics.NewLearnedFluid(cfg.Model)
		Expect(err).NotTo(HaveOccurred())
		a, err := fluid.Step(state, box)
		Expect(err).NotTo(HaveOccurred())
		b, err := other.Step(state, box)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.State.Pos.Data).To(Equal(b.State.Pos.Data))
	})

	It("reproduces outputs after loading parameters", func() {
		m := cfg.Model
		m.Seed = 42
		other, err := physics.NewLearnedFluid(m)
		Expect(err).NotTo(HaveOccurred())
		unused, err := other.LoadParams(fluid.Params())
		Expect(err).NotTo(HaveOccurred())
		Expect(unused).To(BeEmpty())

		a, _ := fluid.Step(state, box)
		b, _ := other.Step(state, box)
		Expect(tensor.AllClose(a.State.Pos, b.State.Pos, 1e-5, 0)).To(BeTrue())
	})

	It("returns empty outputs without fluid particles", func() {
		pos, vel, err := fluid.SimulateStep(tensor.New(0, 3), tensor.New(0, 3), nil, box.Points, box.Normals)
		Expect(err).NotTo(HaveOccurred())
		Expect(pos.Rows).To(Equal(0))
		Expect(pos.Cols).To(Equal(3))
		Expect(vel.Rows).To(Equal(0))
	})

	It("rejects mismatched velocities", func() {
		_, _, err := fluid.SimulateStep(state.Pos, tensor.New(1, 3), nil, box.Points, box.Normals)
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
	})

	Context("with extra features", func() {
		BeforeEach(func() {
			cfg.Model.OtherFeatsChannels = 2
			var err error
			fluid, err = physics.NewLearnedFluid(cfg.Model)
			Expect(err).NotTo(HaveOccurred())
			state, box = physics.DamBreak(cfg.Scene, 2, cfg.Model.Seed)
		})

		It("carries the features into the next state", func() {
			Expect(state.Extra).NotTo(BeNil())
			res, err := fluid.Step(state, box)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State.Extra).To(BeIdenticalTo(state.Extra))
		})

		It("requires them", func() {
			_, _, err := fluid.SimulateStep(state.Pos, state.Vel, nil, box.Points, box.Normals)
			Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
		})
	})

	It("rejects invalid model configuration", func() {
		m := cfg.Model
		m.Timestep = 0
		_, err := physics.NewLearnedFluid(m)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))

		m = cfg.Model
		m.CoordinateMapping = "cylinder"
		_, err = physics.NewLearnedFluid(m)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	It("rejects gravity without three components", func() {
		for _, g := range [][]float64{nil, {0, -9.81}, {0, -9.81, 0, 1}} {
			m := cfg.Model
			m.Gravity = g
			_, err := physics.NewLearnedFluid(m)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration), "gravity %v", g)
		}
	})
})

var _ = Describe("DamBreak", func() {
	It("places the fluid block inside the box", func() {
		sc := config.DefaultConfig().Scene
		state, box := physics.DamBreak(sc, 0, 1)

		Expect(state.NumParticles()).To(Equal(4 * 6 * 4))
		Expect(state.Extra).To(BeNil())
		for i := 0; i < state.NumParticles(); i++ {
			p := state.Pos.Row(i)
			for a := 0; a < 3; a++ {
				Expect(p[a]).To(BeNumerically(">", 0))
				Expect(p[a]).To(BeNumerically("<", sc.BoxSize[a]))
			}
		}
		Expect(box.Validate()).To(Succeed())
	})

	It("points wall normals into the box", func() {
		size := []float64{0.3, 0.2, 0.1}
		box := physics.Box(size, 0.05)
		Expect(box.Points.Rows).To(BeNumerically(">", 0))
		for i := 0; i < box.Points.Rows; i++ {
			p, n := box.Points.Row(i), box.Normals.Row(i)
			for a := 0; a < 3; a++ {
				q := p[a] + 0.01*n[a]
				Expect(q).To(BeNumerically(">=", 0))
				Expect(q).To(BeNumerically("<=", size[a]))
			}
		}
	})
})
