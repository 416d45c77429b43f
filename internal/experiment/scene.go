package experiment

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// Scene is the set of bodies a config describes.
type Scene struct {
	Particles []*particle.Particle
	Mesh      *wall.Mesh
	Materials map[int]*material.Material
}

// BuildScene creates particles and walls. List particles keep their IDs;
// lattice particles are numbered after the largest list ID.
func BuildScene(cfg *config.Config) (*Scene, error) {
	s := &Scene{
		Materials: make(map[int]*material.Material, len(cfg.Materials)),
		Mesh:      &wall.Mesh{},
	}
	for _, mc := range cfg.Materials {
		s.Materials[mc.ID] = mc.Material()
	}

	nextID := 1
	for _, spec := range cfg.Particles.List {
		m, ok := s.Materials[spec.Material]
		if !ok {
			return nil, fmt.Errorf("particle %d: unknown material %d", spec.ID, spec.Material)
		}
		p := particle.New(spec.ID, m, spec.Radius, mgl64.Vec3(spec.Position))
		p.State.Velocity = mgl64.Vec3(spec.Velocity)
		p.State.AngularVelocity = mgl64.Vec3(spec.AngularVelocity)
		s.Particles = append(s.Particles, p)
		if spec.ID >= nextID {
			nextID = spec.ID + 1
		}
	}

	if l := cfg.Particles.Lattice; l != nil {
		m, ok := s.Materials[l.Material]
		if !ok {
			return nil, fmt.Errorf("lattice: unknown material %d", l.Material)
		}
		origin := mgl64.Vec3(l.Origin)
		for k := 0; k < l.Count[2]; k++ {
			for j := 0; j < l.Count[1]; j++ {
				for i := 0; i < l.Count[0]; i++ {
					pos := origin.Add(mgl64.Vec3{float64(i), float64(j), float64(k)}.Mul(l.Spacing))
					p := particle.New(nextID, m, l.Radius, pos)
					p.State.Velocity = mgl64.Vec3(l.Velocity)
					s.Particles = append(s.Particles, p)
					nextID++
				}
			}
		}
	}

	vertices := make(map[int]*wall.Vertex, len(cfg.Walls.Vertices))
	for _, vc := range cfg.Walls.Vertices {
		v := &wall.Vertex{ID: vc.ID, Position: mgl64.Vec3(vc.Position), Velocity: mgl64.Vec3(vc.Velocity)}
		vertices[vc.ID] = v
		s.Mesh.Vertices = append(s.Mesh.Vertices, v)
	}
	for _, fc := range cfg.Walls.Faces {
		mc, ok := cfg.MaterialByID(fc.Material)
		if !ok {
			return nil, fmt.Errorf("face %d: unknown material %d", fc.ID, fc.Material)
		}
		f := &wall.Face{
			ID:       fc.ID,
			Material: s.Materials[fc.Material],
			Wear: wall.WearProperties{
				Severity:        mc.Wear.Severity,
				ImpactSeverity:  mc.Wear.ImpactSeverity,
				BrinellHardness: mc.Wear.BrinellHardness,
			},
		}
		for _, id := range fc.Vertices {
			v, ok := vertices[id]
			if !ok {
				return nil, fmt.Errorf("face %d: unknown vertex %d", fc.ID, id)
			}
			f.Vertices = append(f.Vertices, v)
		}
		s.Mesh.Faces = append(s.Mesh.Faces, f)
	}

	return s, nil
}

// CriticalTimeStep is the smallest stable step estimate over all particles.
func (s *Scene) CriticalTimeStep(rotation bool) float64 {
	dt := math.Inf(1)
	for _, p := range s.Particles {
		dt = math.Min(dt, material.CriticalTimeStep(p.Material, p.Radius, rotation))
	}
	return dt
}
