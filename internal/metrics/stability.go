package metrics

import (
	"github.com/san-kum/demsim/internal/sim"
)

// Stability is the fraction of steps in which no overlap exceeded threshold
// times the particle radius. Large overlaps mean dt is too big for the
// stiffness in use.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f sim.Frame) {
	s.samples++
	for _, p := range f.Particles {
		limit := s.threshold * p.Radius
		if p.Acc.MaxIndentation > limit || p.Acc.MaxWallIndentation > limit {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
