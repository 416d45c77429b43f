// Package search is the brute-force neighbor finder used to drive runnable
// scenes. It compares every pair of particles and every particle against every
// wall face, so it is only meant for small systems.
package search

import (
	"fmt"
	"sort"

	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

const minChunk = 16

// BruteForce rebuilds neighbor lists every Frequency steps. Two bodies are
// neighbors when their gap is at most Tolerance.
type BruteForce struct {
	Tolerance float64
	Frequency int
}

func NewBruteForce(tolerance float64, frequency int) *BruteForce {
	return &BruteForce{Tolerance: tolerance, Frequency: frequency}
}

// Control tells the engine whether the lists are rebuilt before the given
// zero based step. A non positive frequency searches once at step 0 and never
// again.
func (b *BruteForce) Control(step int) dynamo.SearchControl {
	if b.Frequency <= 0 {
		if step == 0 {
			return dynamo.SearchPerformed
		}
		return dynamo.SearchInactive
	}
	if step%b.Frequency == 0 {
		return dynamo.SearchPerformed
	}
	return dynamo.SearchSkipped
}

// Search replaces the Neighbors and Walls lists of every particle. Neighbor
// lists are ordered by particle ID and always symmetric.
func (b *BruteForce) Search(ps []*particle.Particle, mesh *wall.Mesh) error {
	sorted := make([]*particle.Particle, len(ps))
	copy(sorted, ps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var faces []*wall.Face
	if mesh != nil {
		faces = mesh.Faces
	}

	return dynamo.ParallelForErr(len(ps), minChunk, func(i int) error {
		p := ps[i]

		var neighbors []*particle.Particle
		for _, o := range sorted {
			if o == p {
				continue
			}
			reach := p.Radius + o.Radius + b.Tolerance
			if o.State.Position.Sub(p.State.Position).Len() <= reach {
				neighbors = append(neighbors, o)
			}
		}
		p.Neighbors = neighbors

		var walls []particle.WallNeighbor
		for _, f := range faces {
			c, err := geom.Classify(f.Positions(), p.State.Position, p.Radius+b.Tolerance)
			if err != nil {
				return fmt.Errorf("face %d: %w", f.ID, err)
			}
			if c.Active() {
				walls = append(walls, particle.WallNeighbor{Face: f, Geometry: c})
			}
		}
		p.Walls = walls
		return nil
	})
}
