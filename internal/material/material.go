// Package material holds particle and wall material descriptors and resolves
// the equivalent contact parameters of a pair of touching bodies.
package material

import (
	"fmt"
	"math"

	"github.com/san-kum/demsim/internal/dynamo"
)

// Material describes the contact behavior of one family of particles or walls.
type Material struct {
	ID              int
	Name            string
	Density         float64
	Young           float64
	Poisson         float64
	Friction        float64
	LnRestitution   float64
	RollingFriction float64
	Cohesion        float64
}

// Validate rejects parameters the contact laws cannot work with.
func (m *Material) Validate() error {
	if m == nil {
		return dynamo.ErrInvalidMaterial
	}
	field := func(name string) string {
		return fmt.Sprintf("material[%d].%s", m.ID, name)
	}

	switch {
	case !(m.Density > 0) || math.IsInf(m.Density, 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("density"), m.Density)
	case !(m.Young > 0) || math.IsInf(m.Young, 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("young"), m.Young)
	case !(m.Poisson >= 0 && m.Poisson < 0.5):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("poisson"), m.Poisson)
	case !(m.Friction >= 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("friction"), m.Friction)
	case !(m.RollingFriction >= 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("rolling_friction"), m.RollingFriction)
	case !(m.Cohesion >= 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("cohesion"), m.Cohesion)
	case math.IsNaN(m.LnRestitution) || math.IsInf(m.LnRestitution, 0):
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field("ln_restitution"), m.LnRestitution)
	}
	return nil
}

// LnRestitution converts a restitution coefficient into the logarithm the
// damping formula expects. A coefficient of zero maps to +1, which the
// resolver reads as "critically damped".
func LnRestitution(e float64) float64 {
	switch {
	case e <= 0:
		return 1
	case e >= 1:
		return 0
	default:
		return math.Log(e)
	}
}

// SameAs reports whether two materials carry identical contact properties.
func (m *Material) SameAs(o *Material) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	return m.Young == o.Young &&
		m.Poisson == o.Poisson &&
		m.Friction == o.Friction &&
		m.LnRestitution == o.LnRestitution &&
		m.Cohesion == o.Cohesion
}

// SphereVolume is the volume of a sphere.
func SphereVolume(radius float64) float64 {
	return 4.0 / 3.0 * math.Pi * radius * radius * radius
}

// SphereMass is the mass of a solid sphere of the given density.
func SphereMass(density, radius float64) float64 {
	return density * SphereVolume(radius)
}

// SphereInertia is the moment of inertia of a solid sphere about its center.
func SphereInertia(mass, radius float64) float64 {
	return 0.4 * mass * radius * radius
}

// CriticalTimeStep estimates the largest stable step for a particle of this
// material. Rotation halves the estimate.
func CriticalTimeStep(m *Material, radius float64, rotation bool) float64 {
	mass := SphereMass(m.Density, radius)
	dt := 0.34 * math.Sqrt(mass/(math.Pi*m.Young*radius))
	if rotation {
		dt *= 0.5
	}
	return dt
}
