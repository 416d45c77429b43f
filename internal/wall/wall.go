// Package wall models rigid boundary faces. Face vertices collect reaction
// forces and wear from many particles at once, so every accumulating write
// goes through the vertex lock.
package wall

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
)

// WearProperties parametrize the Archard type wear model of a face.
type WearProperties struct {
	Severity        float64
	ImpactSeverity  float64
	BrinellHardness float64
}

// Enabled reports whether the properties can produce wear.
func (w WearProperties) Enabled() bool {
	return w.BrinellHardness > 0 && (w.Severity > 0 || w.ImpactSeverity > 0)
}

// Vertex is a node of the boundary mesh.
type Vertex struct {
	ID       int
	Position mgl64.Vec3
	Velocity mgl64.Vec3

	mu         sync.Mutex
	reaction   mgl64.Vec3
	volumeWear float64
	impactWear float64
}

// VertexState is a consistent copy of the accumulated quantities of a vertex.
type VertexState struct {
	Reaction   mgl64.Vec3 `json:"reaction"`
	VolumeWear float64    `json:"volume_wear"`
	ImpactWear float64    `json:"impact_wear"`
}

// AddReaction accumulates a force the particles exert on the vertex.
func (v *Vertex) AddReaction(f mgl64.Vec3) {
	v.mu.Lock()
	v.reaction = v.reaction.Add(f)
	v.mu.Unlock()
}

// AddWear accumulates volumetric and impact wear.
func (v *Vertex) AddWear(volume, impact float64) {
	v.mu.Lock()
	v.volumeWear += volume
	v.impactWear += impact
	v.mu.Unlock()
}

// Snapshot returns the accumulated quantities.
func (v *Vertex) Snapshot() VertexState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VertexState{Reaction: v.reaction, VolumeWear: v.volumeWear, ImpactWear: v.impactWear}
}

// ResetReaction clears the reaction force at the start of a step. Wear is
// cumulative over the run and survives.
func (v *Vertex) ResetReaction() {
	v.mu.Lock()
	v.reaction = mgl64.Vec3{}
	v.mu.Unlock()
}

// Restore overwrites the accumulated wear, used when resuming a run.
func (v *Vertex) Restore(s VertexState) {
	v.mu.Lock()
	v.reaction = s.Reaction
	v.volumeWear = s.VolumeWear
	v.impactWear = s.ImpactWear
	v.mu.Unlock()
}

// Face is a rigid triangle or quadrilateral.
type Face struct {
	ID       int
	Vertices []*Vertex
	Material *material.Material
	Wear     WearProperties
}

// Validate checks the face can be used for contact.
func (f *Face) Validate() error {
	field := fmt.Sprintf("face[%d]", f.ID)
	if n := len(f.Vertices); n < 3 || n > geom.MaxFaceVertices {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, field+".vertices", n)
	}
	if f.Material == nil {
		return dynamo.InvalidField(dynamo.ErrInvalidMaterial, field+".material", nil)
	}
	if err := f.Material.Validate(); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if _, err := geom.FaceNormal(f.Positions()); err != nil {
		return dynamo.InvalidField(err, field+".vertices", "collinear")
	}
	return nil
}

// Positions returns the vertex coordinates in face order.
func (f *Face) Positions() []mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(f.Vertices))
	for i, v := range f.Vertices {
		pts[i] = v.Position
	}
	return pts
}

// VelocityAt interpolates the vertex velocities with contact weights.
func (f *Face) VelocityAt(weights [geom.MaxFaceVertices]float64) mgl64.Vec3 {
	var vel mgl64.Vec3
	for i, v := range f.Vertices {
		if i >= geom.MaxFaceVertices {
			break
		}
		vel = vel.Add(v.Velocity.Mul(weights[i]))
	}
	return vel
}

// DistributeReaction spreads a force over the vertices by contact weights.
func (f *Face) DistributeReaction(force mgl64.Vec3, weights [geom.MaxFaceVertices]float64) {
	for i, v := range f.Vertices {
		if i >= geom.MaxFaceVertices {
			break
		}
		if weights[i] != 0 {
			v.AddReaction(force.Mul(weights[i]))
		}
	}
}

// Mesh owns the vertices shared between faces.
type Mesh struct {
	Vertices []*Vertex
	Faces    []*Face
}

// Validate checks every face.
func (m *Mesh) Validate() error {
	seen := make(map[int]bool, len(m.Faces))
	for _, f := range m.Faces {
		if seen[f.ID] {
			return dynamo.InvalidField(dynamo.ErrInvalidConfig, "face.id", f.ID)
		}
		seen[f.ID] = true
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Move advances every vertex with its prescribed velocity.
func (m *Mesh) Move(dt float64) {
	for _, v := range m.Vertices {
		v.Position = v.Position.Add(v.Velocity.Mul(dt))
	}
}

// ResetReactions clears the per-step reaction of every vertex.
func (m *Mesh) ResetReactions() {
	for _, v := range m.Vertices {
		v.ResetReaction()
	}
}

// TotalReaction sums the reaction over all vertices.
func (m *Mesh) TotalReaction() mgl64.Vec3 {
	var total mgl64.Vec3
	for _, v := range m.Vertices {
		total = total.Add(v.Snapshot().Reaction)
	}
	return total
}

// TotalWear sums volumetric and impact wear over all vertices.
func (m *Mesh) TotalWear() (volume, impact float64) {
	for _, v := range m.Vertices {
		s := v.Snapshot()
		volume += s.VolumeWear
		impact += s.ImpactWear
	}
	return volume, impact
}

// VertexRecord is the persisted form of a vertex.
type VertexRecord struct {
	ID       int         `json:"id"`
	Position mgl64.Vec3  `json:"position"`
	State    VertexState `json:"state"`
}

// Capture records vertex positions and accumulated wear.
func (m *Mesh) Capture() []VertexRecord {
	out := make([]VertexRecord, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = VertexRecord{ID: v.ID, Position: v.Position, State: v.Snapshot()}
	}
	return out
}

// Restore writes captured records back onto vertices matched by ID.
func (m *Mesh) Restore(records []VertexRecord) error {
	byID := make(map[int]*Vertex, len(m.Vertices))
	for _, v := range m.Vertices {
		byID[v.ID] = v
	}
	for _, r := range records {
		v, ok := byID[r.ID]
		if !ok {
			return dynamo.InvalidField(dynamo.ErrInvalidConfig, "vertex", r.ID)
		}
		v.Position = r.Position
		v.Restore(r.State)
	}
	return nil
}
