// Package particle holds the per-particle state the contact engine reads and
// writes: kinematics, the force accumulator and the per-neighbor contact
// history that survives neighbor list churn.
package particle

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/wall"
)

// Kinematics is owned by the integrator; the contact engine only reads it.
type Kinematics struct {
	Position          mgl64.Vec3
	Velocity          mgl64.Vec3
	AngularVelocity   mgl64.Vec3
	DeltaDisplacement mgl64.Vec3
}

// Accumulator collects everything one step of contact evaluation produces
// for a particle. It is zeroed at the start of every step.
type Accumulator struct {
	Force                 mgl64.Vec3
	Moment                mgl64.Vec3
	ElasticForce          mgl64.Vec3
	ContactForce          mgl64.Vec3
	WallReaction          mgl64.Vec3
	InitialRotationMoment mgl64.Vec3

	ElasticEnergy      float64
	MaxIndentation     float64
	MaxWallIndentation float64
	Contacts           int
	WallContacts       int
}

func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// WallNeighbor is one face reported by the neighbor search together with the
// contact geometry the search computed for it.
type WallNeighbor struct {
	Face     *wall.Face
	Geometry geom.WallContact
}

// Particle is a rigid sphere.
type Particle struct {
	ID       int
	Material *material.Material
	Radius   float64
	Mass     float64
	Inertia  float64

	// New marks a particle created during the current step.
	New bool

	State Kinematics
	Acc   Accumulator
	Law   contact.Law

	// Neighbors and Walls are written by the neighbor search.
	Neighbors []*Particle
	Walls     []WallNeighbor

	Contacts     History
	WallContacts WallHistory
}

// New creates a particle whose mass and inertia follow from its material.
func New(id int, m *material.Material, radius float64, pos mgl64.Vec3) *Particle {
	p := &Particle{ID: id, Material: m, Radius: radius}
	p.State.Position = pos
	p.ComputeMass()
	return p
}

// ComputeMass sets mass and rotational inertia of a solid sphere.
func (p *Particle) ComputeMass() {
	if p.Material == nil {
		return
	}
	p.Mass = material.SphereMass(p.Material.Density, p.Radius)
	p.Inertia = material.SphereInertia(p.Mass, p.Radius)
}

// Validate reports configuration errors that must stop a run before it starts.
func (p *Particle) Validate() error {
	field := func(name string) string {
		return fmt.Sprintf("particle[%d].%s", p.ID, name)
	}
	if p.Material == nil {
		return dynamo.InvalidField(dynamo.ErrInvalidParticle, field("material"), nil)
	}
	if err := p.Material.Validate(); err != nil {
		return fmt.Errorf("particle %d: %w", p.ID, err)
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return dynamo.InvalidField(dynamo.ErrInvalidParticle, field("radius"), p.Radius)
	}
	if !(p.Mass > 0) {
		return dynamo.InvalidField(dynamo.ErrInvalidParticle, field("mass"), p.Mass)
	}
	if !(p.Inertia > 0) {
		return dynamo.InvalidField(dynamo.ErrInvalidParticle, field("inertia"), p.Inertia)
	}
	for _, v := range []mgl64.Vec3{p.State.Position, p.State.Velocity, p.State.AngularVelocity} {
		if !geom.Finite(v) {
			return dynamo.InvalidField(dynamo.ErrInvalidParticle, field("state"), v)
		}
	}
	return nil
}

// Body is the view of the particle used to build pair kinematics.
func (p *Particle) Body() geom.Body {
	return geom.Body{
		Position:          p.State.Position,
		Velocity:          p.State.Velocity,
		AngularVelocity:   p.State.AngularVelocity,
		DeltaDisplacement: p.State.DeltaDisplacement,
		Radius:            p.Radius,
	}
}

// NeighborIDs lists the neighbor identities in list order.
func (p *Particle) NeighborIDs() []int {
	ids := make([]int, len(p.Neighbors))
	for i, n := range p.Neighbors {
		ids[i] = n.ID
	}
	return ids
}

// KineticEnergy includes the rotational part.
func (p *Particle) KineticEnergy() float64 {
	v := p.State.Velocity
	w := p.State.AngularVelocity
	return 0.5*p.Mass*v.Dot(v) + 0.5*p.Inertia*w.Dot(w)
}
