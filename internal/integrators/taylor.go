package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/particle"
)

// Taylor moves particles with a second order expansion in dt and then
// updates the velocity with the same acceleration.
type Taylor struct{}

func NewTaylor() *Taylor {
	return &Taylor{}
}

func (t *Taylor) Name() string { return "taylor" }

func (t *Taylor) Step(ps []*particle.Particle, gravity mgl64.Vec3, dt float64) {
	halfDt2 := 0.5 * dt * dt
	dynamo.ParallelFor(len(ps), minChunk, func(start, end int) {
		for _, p := range ps[start:end] {
			acc := Acceleration(p, gravity)

			d := p.State.Velocity.Mul(dt).Add(acc.Mul(halfDt2))
			p.State.DeltaDisplacement = d
			p.State.Position = p.State.Position.Add(d)
			p.State.Velocity = p.State.Velocity.Add(acc.Mul(dt))

			p.State.AngularVelocity = p.State.AngularVelocity.Add(AngularAcceleration(p).Mul(dt))
		}
	})
}
