package material

import (
	"fmt"
	"math"
	"strings"
)

// StiffnessModel selects how kn and kt follow from the material pair.
type StiffnessModel int

const (
	Linear StiffnessModel = iota
	Hertz
)

func (s StiffnessModel) String() string {
	switch s {
	case Linear:
		return "linear"
	case Hertz:
		return "hertz"
	default:
		return fmt.Sprintf("StiffnessModel(%d)", int(s))
	}
}

// ParseStiffness accepts the configuration spelling of a stiffness model.
func ParseStiffness(s string) (StiffnessModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return Linear, nil
	case "hertz", "hertzian":
		return Hertz, nil
	default:
		return Linear, fmt.Errorf("unknown stiffness model %q", s)
	}
}

// Side is one body of a contact.
type Side struct {
	Material *Material
	Radius   float64
	Mass     float64
}

// Equivalent holds the mixed parameters a contact law is initialized with.
type Equivalent struct {
	Kn             float64
	Kt             float64
	DampNormal     float64
	DampTangential float64
	Friction       float64
	Radius         float64
	Mass           float64
	Cohesion       float64
	Young          float64
	Poisson        float64
	LnRestitution  float64
}

// Resolver mixes material parameters for one stiffness model.
type Resolver struct {
	Model StiffnessModel
}

// Pair resolves the contact between two particles.
func (r Resolver) Pair(a, b Side) Equivalent {
	eq := mix(a.Material, b.Material)

	eq.Radius = 2 * a.Radius * b.Radius / (a.Radius + b.Radius)
	eq.Mass = math.Sqrt(a.Mass * b.Mass)

	switch r.Model {
	case Hertz:
		eStar := hertzModulus(a.Material, b.Material)
		eq.Kn = 4.0 / 3.0 * eStar * math.Sqrt(0.5*eq.Radius)
		eq.Kt = hertzTangential(eq.Kn, eq.Poisson)
	default:
		area := 0.25 * math.Pi * eq.Radius * eq.Radius
		eq.Kn = eq.Young * area / (a.Radius + b.Radius)
		eq.Kt = eq.Kn / (2 + 2*eq.Poisson)
	}

	eq.DampNormal, eq.DampTangential = damping(eq, a.Material.LnRestitution, b.Material.LnRestitution)
	return eq
}

// Wall resolves the contact between a particle and a rigid face. The wall has
// no mass or radius of its own.
func (r Resolver) Wall(a Side, wall *Material) Equivalent {
	eq := mix(a.Material, wall)

	eq.Radius = a.Radius
	eq.Mass = a.Mass

	switch r.Model {
	case Hertz:
		eStar := hertzModulus(a.Material, wall)
		eq.Kn = 4.0 / 3.0 * eStar * math.Sqrt(a.Radius)
		eq.Kt = hertzTangential(eq.Kn, eq.Poisson)
	default:
		area := 0.25 * math.Pi * a.Radius * a.Radius
		eq.Kn = eq.Young * area / a.Radius
		eq.Kt = eq.Kn / (2 + 2*eq.Poisson)
	}

	eq.DampNormal, eq.DampTangential = damping(eq, a.Material.LnRestitution, wall.LnRestitution)
	return eq
}

func mix(a, b *Material) Equivalent {
	if a.SameAs(b) {
		return Equivalent{
			Young:         a.Young,
			Poisson:       a.Poisson,
			Friction:      a.Friction,
			LnRestitution: a.LnRestitution,
			Cohesion:      a.Cohesion,
		}
	}

	eq := Equivalent{
		Young:         2 * a.Young * b.Young / (a.Young + b.Young),
		Friction:      0.5 * (a.Friction + b.Friction),
		LnRestitution: 0.5 * (a.LnRestitution + b.LnRestitution),
		Cohesion:      0.5 * (a.Cohesion + b.Cohesion),
	}
	if s := a.Poisson + b.Poisson; s != 0 {
		eq.Poisson = 2 * a.Poisson * b.Poisson / s
	}
	return eq
}

func hertzModulus(a, b *Material) float64 {
	return a.Young * b.Young / (b.Young*(1-a.Poisson*a.Poisson) + a.Young*(1-b.Poisson*b.Poisson))
}

func hertzTangential(kn, nu float64) float64 {
	return 2 * kn * (1 - nu*nu) / ((2 - nu) * (1 + nu))
}

const lnTolerance = 1e-12

// damping decides on the raw sides: either side carrying the restitution to
// zero sentinel makes the contact critically damped, whatever the other side.
func damping(eq Equivalent, lnA, lnB float64) (normal, tangential float64) {
	ln := eq.LnRestitution
	switch {
	case lnA > 0 || lnB > 0:
		normal = 2 * math.Sqrt(eq.Mass*eq.Kn)
	case math.Abs(ln) < lnTolerance:
		return 0, 0
	default:
		normal = -2 * ln * math.Sqrt(eq.Mass*eq.Kn/(ln*ln+math.Pi*math.Pi))
	}
	if eq.Kn > 0 {
		tangential = normal * math.Sqrt(eq.Kt/eq.Kn)
	}
	return normal, tangential
}
