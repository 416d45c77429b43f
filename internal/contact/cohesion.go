package contact

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/demsim/internal/material"
)

// Cohesion computes the attractive normal force subtracted from the
// repulsive one. Implementations are stateless.
type Cohesion interface {
	Name() string
	Force(eq material.Equivalent, indentation float64) float64
}

// NoCohesion never attracts.
type NoCohesion struct{}

func (NoCohesion) Name() string { return "none" }
func (NoCohesion) Force(material.Equivalent, float64) float64 { return 0 }

// ConstantCohesion applies the equivalent cohesive stress over the spherical
// cap contact area pi*R*delta.
type ConstantCohesion struct{}

func (ConstantCohesion) Name() string { return "constant" }

func (ConstantCohesion) Force(eq material.Equivalent, indentation float64) float64 {
	return eq.Cohesion * math.Pi * eq.Radius * indentation
}

// DMTCohesion is the Derjaguin-Muller-Toporov pull-off force with the
// equivalent cohesion read as a surface energy.
type DMTCohesion struct{}

func (DMTCohesion) Name() string { return "dmt" }

func (DMTCohesion) Force(eq material.Equivalent, _ float64) float64 {
	return 2 * math.Pi * eq.Cohesion * eq.Radius
}

// ParseCohesion maps a configuration name onto a cohesion law.
func ParseCohesion(s string) (Cohesion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoCohesion{}, nil
	case "constant":
		return ConstantCohesion{}, nil
	case "dmt":
		return DMTCohesion{}, nil
	default:
		return nil, fmt.Errorf("unknown cohesion law %q", s)
	}
}
