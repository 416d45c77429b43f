package particle

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
)

// State is the serializable kinematic state of a particle.
type State struct {
	ID              int        `json:"id"`
	Position        mgl64.Vec3 `json:"position"`
	Velocity        mgl64.Vec3 `json:"velocity"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`

	// DeltaDisplacement is the last step's displacement. The first step after
	// a resume rebuilds the previous contact frame from it.
	DeltaDisplacement mgl64.Vec3 `json:"delta_displacement"`
}

// ContactState is one persisted contact record, keyed by the pair of
// identities rather than by list position.
type ContactState struct {
	Particle int        `json:"particle"`
	Neighbor int        `json:"neighbor"`
	Wall     bool       `json:"wall,omitempty"`
	Elastic  mgl64.Vec3 `json:"elastic"`
	Total    mgl64.Vec3 `json:"total"`

	InitialGap float64        `json:"initial_gap,omitempty"`
	Geometry   *GeometryState `json:"geometry,omitempty"`
}

// GeometryState is the persisted form of a cached wall contact.
type GeometryState struct {
	Axes     [3]mgl64.Vec3                 `json:"axes"`
	Distance float64                       `json:"distance"`
	Weights  [geom.MaxFaceVertices]float64 `json:"weights"`
	Type     int                           `json:"type"`
}

// Snapshot is everything needed to resume a set of particles.
type Snapshot struct {
	Particles []State        `json:"particles"`
	Contacts  []ContactState `json:"contacts"`
}

// Capture records the kinematics and contact histories of ps.
func Capture(ps []*Particle) Snapshot {
	var s Snapshot
	for _, p := range ps {
		s.Particles = append(s.Particles, State{
			ID:              p.ID,
			Position:        p.State.Position,
			Velocity:        p.State.Velocity,
			AngularVelocity: p.State.AngularVelocity,

			DeltaDisplacement: p.State.DeltaDisplacement,
		})
		for i := 0; i < p.Contacts.Len(); i++ {
			r := p.Contacts.At(i)
			s.Contacts = append(s.Contacts, ContactState{
				Particle: p.ID,
				Neighbor: p.Contacts.ID(i),
				Elastic:  r.Elastic,
				Total:    r.Total,
			})
		}
		for i := 0; i < p.WallContacts.Len(); i++ {
			r := p.WallContacts.At(i)
			g := r.Geometry
			s.Contacts = append(s.Contacts, ContactState{
				Particle:   p.ID,
				Neighbor:   p.WallContacts.ID(i),
				Wall:       true,
				Elastic:    r.Elastic,
				Total:      r.Total,
				InitialGap: r.InitialGap,
				Geometry: &GeometryState{
					Axes:     g.Frame.Axes,
					Distance: g.Distance,
					Weights:  g.Weights,
					Type:     int(g.Type),
				},
			})
		}
	}
	return s
}

// Restore writes a snapshot back onto particles matched by ID. Contact
// records are restored into the histories so the next synchronization picks
// them up by identity. Particles missing from the snapshot are an error.
func Restore(ps []*Particle, s Snapshot) error {
	byID := make(map[int]*Particle, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}

	for _, st := range s.Particles {
		p, ok := byID[st.ID]
		if !ok {
			return fmt.Errorf("checkpoint particle %d: %w", st.ID, dynamo.ErrInvalidParticle)
		}
		p.State.Position = st.Position
		p.State.Velocity = st.Velocity
		p.State.AngularVelocity = st.AngularVelocity
		p.State.DeltaDisplacement = st.DeltaDisplacement
	}

	type ballEntry struct {
		ids     []int
		records []ContactRecord
	}
	type wallEntry struct {
		ids     []int
		records []WallRecord
	}
	balls := make(map[int]*ballEntry)
	walls := make(map[int]*wallEntry)

	for _, c := range s.Contacts {
		if _, ok := byID[c.Particle]; !ok {
			return fmt.Errorf("checkpoint contact of particle %d: %w", c.Particle, dynamo.ErrInvalidParticle)
		}
		if !c.Wall {
			e := balls[c.Particle]
			if e == nil {
				e = &ballEntry{}
				balls[c.Particle] = e
			}
			e.ids = append(e.ids, c.Neighbor)
			e.records = append(e.records, ContactRecord{Elastic: c.Elastic, Total: c.Total})
			continue
		}

		e := walls[c.Particle]
		if e == nil {
			e = &wallEntry{}
			walls[c.Particle] = e
		}
		r := WallRecord{Elastic: c.Elastic, Total: c.Total, InitialGap: c.InitialGap}
		if g := c.Geometry; g != nil {
			r.Geometry = geom.WallContact{
				Frame:    geom.Frame{Axes: g.Axes},
				Distance: g.Distance,
				Weights:  g.Weights,
				Type:     geom.ContactType(g.Type),
			}
		}
		e.ids = append(e.ids, c.Neighbor)
		e.records = append(e.records, r)
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p := byID[id]
		if e := balls[id]; e != nil {
			p.Contacts.Restore(e.ids, e.records)
		} else {
			p.Contacts.Restore(nil, nil)
		}
		if e := walls[id]; e != nil {
			p.WallContacts.Restore(e.ids, e.records)
		} else {
			p.WallContacts.Restore(nil, nil)
		}
	}
	return nil
}
