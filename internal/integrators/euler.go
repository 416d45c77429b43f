// Package integrators advances particle kinematics from the force and moment
// the contact engine accumulated for the step.
package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/particle"
)

const minChunk = 64

// SymplecticEuler updates velocities first and moves particles with the new
// velocity.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

func (e *SymplecticEuler) Name() string { return "euler" }

func (e *SymplecticEuler) Step(ps []*particle.Particle, gravity mgl64.Vec3, dt float64) {
	dynamo.ParallelFor(len(ps), minChunk, func(start, end int) {
		for _, p := range ps[start:end] {
			acc := Acceleration(p, gravity)
			p.State.Velocity = p.State.Velocity.Add(acc.Mul(dt))

			d := p.State.Velocity.Mul(dt)
			p.State.DeltaDisplacement = d
			p.State.Position = p.State.Position.Add(d)

			p.State.AngularVelocity = p.State.AngularVelocity.Add(AngularAcceleration(p).Mul(dt))
		}
	})
}

// Acceleration combines the contact force with gravity.
func Acceleration(p *particle.Particle, gravity mgl64.Vec3) mgl64.Vec3 {
	if p.Mass <= 0 {
		return gravity
	}
	return p.Acc.Force.Mul(1 / p.Mass).Add(gravity)
}

// AngularAcceleration of a sphere under the contact moment.
func AngularAcceleration(p *particle.Particle) mgl64.Vec3 {
	if p.Inertia <= 0 {
		return mgl64.Vec3{}
	}
	return p.Acc.Moment.Mul(1 / p.Inertia)
}
