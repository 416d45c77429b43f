package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// Wear is the non-dimensional wear one contact deposits on a face in a step.
type Wear struct {
	Volume float64
	Impact float64
}

// ContactWear computes Archard sliding wear and impact wear for a particle
// touching a face. localVel is the translational relative velocity in the
// contact frame and localDisp the tangential sliding of this step.
func ContactWear(props wall.WearProperties, density, radius float64, localVel, localDisp mgl64.Vec3, normal float64, sliding bool) Wear {
	if props.BrinellHardness <= 0 {
		return Wear{}
	}
	invHardness := 1 / props.BrinellHardness

	var w Wear
	if sliding {
		w.Volume = props.Severity * invHardness / material.SphereVolume(radius) * normal * math.Hypot(localDisp[0], localDisp[1])
	}

	speed := localVel.Len()
	if speed > 0 {
		q := math.Abs(localVel[2]) / speed
		f := 1 - 4*(1-q)
		w.Impact = 0.5 * props.ImpactSeverity * invHardness * density * q * q * f * f * speed * speed
	}
	return w
}

// InverseDistanceWeights splits a quantity deposited at point q between the
// face vertices, nearer vertices taking more. A vertex at q takes everything.
func InverseDistanceWeights(pts []mgl64.Vec3, q mgl64.Vec3) []float64 {
	w := make([]float64, len(pts))
	sum := 0.0
	for i, v := range pts {
		d := q.Sub(v).Len()
		if d < 1e-12 {
			for j := range w {
				w[j] = 0
			}
			w[i] = 1
			return w
		}
		w[i] = 1 / d
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func addWear(p *particle.Particle, face *wall.Face, localVel, localDisp mgl64.Vec3, normal float64, sliding bool) {
	w := ContactWear(face.Wear, p.Material.Density, p.Radius, localVel, localDisp, normal, sliding)
	if w.Volume == 0 && w.Impact == 0 {
		return
	}

	pts := face.Positions()
	n, err := geom.FaceNormal(pts)
	if err != nil {
		return
	}
	pos := p.State.Position
	foot := pos.Sub(n.Mul(pos.Sub(pts[0]).Dot(n)))

	for i, weight := range InverseDistanceWeights(pts, foot) {
		if weight != 0 {
			face.Vertices[i].AddWear(weight*w.Volume, weight*w.Impact)
		}
	}
}
