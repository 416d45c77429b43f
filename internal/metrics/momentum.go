package metrics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/sim"
)

// Momentum is the magnitude of the total linear momentum.
type Momentum struct {
	name  string
	value mgl64.Vec3
}

func NewMomentum() *Momentum {
	return &Momentum{name: "momentum"}
}

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(f sim.Frame) {
	var sum mgl64.Vec3
	for _, p := range f.Particles {
		sum = sum.Add(p.State.Velocity.Mul(p.Mass))
	}
	m.value = sum
}

func (m *Momentum) Value() float64 { return m.value.Len() }

// Vector returns the last observed momentum.
func (m *Momentum) Vector() mgl64.Vec3 { return m.value }

func (m *Momentum) Reset() { m.value = mgl64.Vec3{} }

// AngularMomentum is the magnitude of the total angular momentum about the
// origin, orbital plus spin.
type AngularMomentum struct {
	name  string
	value mgl64.Vec3
}

func NewAngularMomentum() *AngularMomentum {
	return &AngularMomentum{name: "angular_momentum"}
}

func (a *AngularMomentum) Name() string { return a.name }

func (a *AngularMomentum) Observe(f sim.Frame) {
	var sum mgl64.Vec3
	for _, p := range f.Particles {
		orbital := p.State.Position.Cross(p.State.Velocity.Mul(p.Mass))
		spin := p.State.AngularVelocity.Mul(p.Inertia)
		sum = sum.Add(orbital).Add(spin)
	}
	a.value = sum
}

func (a *AngularMomentum) Value() float64 { return a.value.Len() }

func (a *AngularMomentum) Vector() mgl64.Vec3 { return a.value }

func (a *AngularMomentum) Reset() { a.value = mgl64.Vec3{} }
