package engine_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/engine"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

func granite() *material.Material {
	return &material.Material{
		ID:              1,
		Density:         2700,
		Young:           5e7,
		Poisson:         0.25,
		Friction:        0.6,
		LnRestitution:   math.Log(0.5),
		RollingFriction: 0.05,
	}
}

// pile builds a small column of overlapping particles with an all-pairs
// neighbor list, the way a brute-force search would report it.
func pile(m *material.Material) []*particle.Particle {
	var ps []*particle.Particle
	id := 10
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pos := mgl64.Vec3{float64(i) * 0.19, float64(j) * 0.19, 0.02 * float64(i*j)}
			p := particle.New(id, m, 0.1, pos)
			p.State.Velocity = mgl64.Vec3{0.1 * float64(j-1), 0.05 * float64(i-1), -0.2}
			p.State.AngularVelocity = mgl64.Vec3{float64(i), -float64(j), 0.5}
			ps = append(ps, p)
			id -= 1
		}
	}
	for _, p := range ps {
		for _, q := range ps {
			if p != q && p.State.Position.Sub(q.State.Position).Len() < p.Radius+q.Radius+0.01 {
				p.Neighbors = append(p.Neighbors, q)
			}
		}
	}
	return ps
}

func build(opts engine.Options, ps []*particle.Particle, mesh *wall.Mesh) *engine.Engine {
	e, err := engine.New(opts, nil)
	Expect(err).NotTo(HaveOccurred())

	reg := contact.NewRegistry()
	reg.SetDefault(contact.New(opts.Stiffness, contact.DampingNormalTangential, nil))
	Expect(e.Initialize(ps, reg, mesh)).To(Succeed())
	return e
}

func integrate(ps []*particle.Particle, dt float64) {
	for _, p := range ps {
		d := p.State.Velocity.Mul(dt)
		p.State.Position = p.State.Position.Add(d)
		p.State.DeltaDisplacement = d
	}
}

var _ = Describe("Step", func() {
	DescribeTable("keeps Newton's third law for every pair",
		func(mode engine.PairMode, model material.StiffnessModel) {
			ps := pile(granite())
			opts := engine.Options{
				Stiffness:       model,
				PairMode:        mode,
				Rotation:        true,
				RollingFriction: true,
				Dt:              1e-5,
			}
			e := build(opts, ps, nil)

			for step := 0; step < 4; step++ {
				_, err := e.Step(ps, dynamo.SearchPerformed)
				Expect(err).NotTo(HaveOccurred())

				net := mgl64.Vec3{}
				for _, p := range ps {
					net = net.Add(p.Acc.Force)
					for i, n := range p.Neighbors {
						mine := p.Contacts.At(i)
						theirs, ok := n.Contacts.Lookup(p.ID)
						Expect(ok).To(BeTrue())
						Expect(mine.Total.Add(theirs.Total).Len()).To(BeNumerically("<=", 1e-9*(1+mine.Total.Len())))
					}
				}
				Expect(net.Len()).To(BeNumerically("<", 1e-6))
				integrate(ps, opts.Dt)
			}
		},
		Entry("one-sided linear", engine.OneSided, material.Linear),
		Entry("one-sided hertz", engine.OneSided, material.Hertz),
		Entry("both sides linear", engine.BothSides, material.Linear),
		Entry("both sides hertz", engine.BothSides, material.Hertz),
	)

	It("generates no force without indentation", func() {
		m := granite()
		a := particle.New(1, m, 0.1, mgl64.Vec3{})
		b := particle.New(2, m, 0.1, mgl64.Vec3{0.2, 0, 0})
		b.State.Velocity = mgl64.Vec3{-1, 3, 0}
		a.Neighbors = []*particle.Particle{b}
		b.Neighbors = []*particle.Particle{a}
		ps := []*particle.Particle{a, b}

		e := build(engine.Options{Rotation: true, Dt: 1e-5}, ps, nil)
		_, err := e.Step(ps, dynamo.SearchPerformed)
		Expect(err).NotTo(HaveOccurred())

		for _, p := range ps {
			Expect(p.Acc.Force).To(Equal(mgl64.Vec3{}))
			Expect(p.Acc.Moment).To(Equal(mgl64.Vec3{}))
			rec := p.Contacts.At(0)
			Expect(rec.Elastic).To(Equal(mgl64.Vec3{}))
		}
	})

	It("leaves histories untouched when the neighbor list does not change", func() {
		ps := pile(granite())
		e := build(engine.Options{Rotation: true, Dt: 1e-5}, ps, nil)
		_, err := e.Step(ps, dynamo.SearchPerformed)
		Expect(err).NotTo(HaveOccurred())

		before := map[int][]particle.ContactRecord{}
		for _, p := range ps {
			for i := 0; i < p.Contacts.Len(); i++ {
				before[p.ID] = append(before[p.ID], *p.Contacts.At(i))
			}
			p.Contacts.Synchronize(p.NeighborIDs())
		}
		for _, p := range ps {
			for i := 0; i < p.Contacts.Len(); i++ {
				Expect(*p.Contacts.At(i)).To(Equal(before[p.ID][i]))
			}
		}
	})

	It("bounds the rolling resistance by the spin moment", func() {
		ps := pile(granite())
		opts := engine.Options{Rotation: true, RollingFriction: true, Dt: 1e-5}
		e := build(opts, ps, nil)

		for step := 0; step < 3; step++ {
			_, err := e.Step(ps, dynamo.SearchPerformed)
			Expect(err).NotTo(HaveOccurred())
			integrate(ps, opts.Dt)
		}

		for _, tc := range []struct {
			moment, initial, axis mgl64.Vec3
			normal, coeff         float64
		}{
			{mgl64.Vec3{1, 2, 3}, mgl64.Vec3{-3, 0, 1}, mgl64.Vec3{0, 1, 0}, 40, 0.02},
			{mgl64.Vec3{0, 0, 0.1}, mgl64.Vec3{0.2, 0, 0}, mgl64.Vec3{0, 0, 1}, 1e4, 0.1},
		} {
			out, ok := engine.RollingResistance(tc.moment, tc.initial, tc.axis, tc.normal, tc.coeff)
			Expect(ok).To(BeTrue())
			Expect(out.Sub(tc.moment).Len()).To(BeNumerically("<=", tc.initial.Add(tc.moment).Len()+1e-12))
		}
	})

	Context("two identical particles 1.9 apart", func() {
		var a, b *particle.Particle
		var m *material.Material

		BeforeEach(func() {
			m = &material.Material{ID: 1, Density: 2000, Young: 1e7, Poisson: 0.3}
			a = particle.New(1, m, 1, mgl64.Vec3{})
			b = particle.New(2, m, 1, mgl64.Vec3{0, 1.9, 0})
			a.Neighbors = []*particle.Particle{b}
			b.Neighbors = []*particle.Particle{a}
		})

		DescribeTable("matches the closed form of the law",
			func(model material.StiffnessModel, fn func(e float64) float64) {
				ps := []*particle.Particle{a, b}
				e := build(engine.Options{Stiffness: model, Dt: 1e-4}, ps, nil)
				_, err := e.Step(ps, dynamo.SearchPerformed)
				Expect(err).NotTo(HaveOccurred())

				want := fn(m.Young)
				Expect(b.Acc.Force[1]).To(BeNumerically("~", want, 1e-9*want))
				Expect(b.Acc.Force[0]).To(BeNumerically("~", 0, 1e-9*want))
				Expect(b.Acc.Force[2]).To(BeNumerically("~", 0, 1e-9*want))
				Expect(a.Acc.Force).To(Equal(b.Acc.Force.Mul(-1)))
				Expect(b.Acc.Moment).To(Equal(mgl64.Vec3{}))
			},
			Entry("linear", material.Linear, func(e float64) float64 { return e * math.Pi / 8 * 0.1 }),
			Entry("hertz", material.Hertz, func(e float64) float64 {
				return 4.0 / 3.0 * e / (2 * 0.91) * math.Sqrt(0.5) * math.Pow(0.1, 1.5)
			}),
		)
	})

	Context("a particle resting on a face vertex", func() {
		It("keeps the contact at zero indentation", func() {
			m := granite()
			vs := []*wall.Vertex{
				{Position: mgl64.Vec3{0, 0, 0}},
				{Position: mgl64.Vec3{1, 0, 0}},
				{Position: mgl64.Vec3{0, 1, 0}},
			}
			face := &wall.Face{ID: 3, Vertices: vs, Material: m}
			mesh := &wall.Mesh{Vertices: vs, Faces: []*wall.Face{face}}

			frame, err := geom.NewFrame(mgl64.Vec3{0, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			g := geom.WallContact{Frame: frame, Distance: 0.1, Type: geom.ContactVertex}
			g.Weights[0] = 1

			p := particle.New(1, m, 0.1, mgl64.Vec3{0, 0, 0.1})
			p.Walls = []particle.WallNeighbor{{Face: face, Geometry: g}}
			ps := []*particle.Particle{p}

			e := build(engine.Options{Dt: 1e-5}, ps, mesh)
			_, err = e.Step(ps, dynamo.SearchSkipped)
			Expect(err).NotTo(HaveOccurred())

			Expect(p.Acc.Force).To(Equal(mgl64.Vec3{}))
			rec, ok := p.WallContacts.Lookup(3)
			Expect(ok).To(BeTrue())
			Expect(rec.Geometry.Type).To(Equal(geom.ContactVertex))
			Expect(rec.Geometry.Weights).To(Equal([geom.MaxFaceVertices]float64{1, 0, 0, 0}))
		})
	})
})

var _ = DescribeTable("tangential force accumulation is independent of the split",
	func(model material.StiffnessModel, splits int) {
		eq := material.Resolver{Model: model}.Pair(
			material.Side{Material: granite(), Radius: 0.1, Mass: 1},
			material.Side{Material: granite(), Radius: 0.1, Mass: 1},
		)
		total := mgl64.Vec3{1e-6, -2e-6, 0}

		run := func(n int) mgl64.Vec3 {
			law := contact.New(model, contact.DampingNormalTangential, nil)
			law.InitializeContact(eq)
			f := mgl64.Vec3{0, 0, law.NormalForce(0.01)}
			for i := 0; i < n; i++ {
				law.TangentialForce(&f, total.Mul(1/float64(n)), 0.01)
			}
			return f
		}

		whole := run(1)
		split := run(splits)
		Expect(split[0]).To(BeNumerically("~", whole[0], 1e-12*math.Abs(whole[0])+1e-15))
		Expect(split[1]).To(BeNumerically("~", whole[1], 1e-12*math.Abs(whole[1])+1e-15))
	},
	Entry("linear in 3", material.Linear, 3),
	Entry("linear in 40", material.Linear, 40),
	Entry("hertz in 7", material.Hertz, 7),
)
