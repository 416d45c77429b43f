// Package contact implements the pairwise contact laws that turn indentation,
// relative displacement and relative velocity into local contact forces.
//
// All vectors are expressed in a contact frame whose axis 2 is the normal,
// compression positive. A law instance carries the equivalent parameters of
// the contact it was last initialized for, so each particle owns its own clone.
package contact

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/material"
)

// Law is the capability set the contact engine drives for every touching pair.
type Law interface {
	Name() string
	Clone() Law

	// InitializeContact loads the equivalent parameters of the next contact.
	InitializeContact(eq material.Equivalent)

	NormalForce(indentation float64) float64
	CohesiveForce(indentation float64) float64

	// TangentialForce updates the tangential components of elastic in place
	// from the local displacement increment and reports whether the Coulomb
	// limit was reached. elastic[2] must already hold the normal force.
	TangentialForce(elastic *mgl64.Vec3, localDisp mgl64.Vec3, indentation float64) (sliding bool)

	ViscoDamping(localVel mgl64.Vec3, sliding bool) mgl64.Vec3

	// ElasticEnergy is the energy stored in a contact carrying elastic.
	ElasticEnergy(elastic mgl64.Vec3, indentation float64) float64
}

// DampingMode selects which directions carry viscous damping.
type DampingMode int

const (
	DampingNone DampingMode = iota
	DampingNormal
	DampingNormalTangential
)

func (d DampingMode) String() string {
	switch d {
	case DampingNone:
		return "none"
	case DampingNormal:
		return "normal"
	case DampingNormalTangential:
		return "normal_tangential"
	default:
		return fmt.Sprintf("DampingMode(%d)", int(d))
	}
}

// ParseDamping accepts the configuration spelling of a damping mode.
func ParseDamping(s string) (DampingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return DampingNone, nil
	case "normal":
		return DampingNormal, nil
	case "", "normal_tangential", "normal+tangential", "both":
		return DampingNormalTangential, nil
	default:
		return DampingNone, fmt.Errorf("unknown damping mode %q", s)
	}
}

// New builds a prototype law for the stiffness model.
func New(model material.StiffnessModel, damping DampingMode, cohesion Cohesion) Law {
	if cohesion == nil {
		cohesion = NoCohesion{}
	}
	base := viscousCoulomb{damping: damping, cohesion: cohesion}
	if model == material.Hertz {
		return &HertzViscousCoulomb{viscousCoulomb: base}
	}
	return &LinearViscousCoulomb{viscousCoulomb: base}
}

// viscousCoulomb is the part shared by the linear and Hertzian laws:
// incremental Coulomb friction and velocity proportional damping.
type viscousCoulomb struct {
	eq       material.Equivalent
	damping  DampingMode
	cohesion Cohesion
}

func (v *viscousCoulomb) InitializeContact(eq material.Equivalent) {
	v.eq = eq
}

func (v *viscousCoulomb) CohesiveForce(indentation float64) float64 {
	if indentation <= 0 {
		return 0
	}
	return v.cohesion.Force(v.eq, indentation)
}

func (v *viscousCoulomb) coulomb(elastic *mgl64.Vec3, localDisp mgl64.Vec3, kt float64) bool {
	elastic[0] -= kt * localDisp[0]
	elastic[1] -= kt * localDisp[1]

	limit := v.eq.Friction * elastic[2]
	if limit < 0 {
		limit = 0
	}
	now := math.Hypot(elastic[0], elastic[1])
	if now <= limit {
		return false
	}

	if now > 0 {
		scale := limit / now
		elastic[0] *= scale
		elastic[1] *= scale
	}
	return true
}

func (v *viscousCoulomb) ViscoDamping(localVel mgl64.Vec3, sliding bool) mgl64.Vec3 {
	var f mgl64.Vec3
	if v.damping == DampingNone {
		return f
	}
	f[2] = -v.eq.DampNormal * localVel[2]
	if v.damping == DampingNormalTangential && !sliding {
		f[0] = -v.eq.DampTangential * localVel[0]
		f[1] = -v.eq.DampTangential * localVel[1]
	}
	return f
}

func tangentialEnergy(elastic mgl64.Vec3, kt float64) float64 {
	if kt <= 0 {
		return 0
	}
	return 0.5 * (elastic[0]*elastic[0] + elastic[1]*elastic[1]) / kt
}
