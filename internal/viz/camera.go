package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// Camera is an orthographic view looking at Center. RotX and RotZ tilt and
// turn the scene; with both zero the view looks down the y axis with z up.
type Camera struct {
	Center     mgl64.Vec3
	RotX, RotZ float64
	// Scale is the number of dots per length unit.
	Scale float64
}

func NewCamera() *Camera {
	return &Camera{Scale: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Scale *= 1.25 }
func (c *Camera) ZoomOut()          { c.Scale /= 1.25 }

func (c *Camera) rotation() mgl64.Mat3 {
	return mgl64.Rotate3DX(c.RotX).Mul3(mgl64.Rotate3DZ(c.RotZ))
}

// Project maps a world point to canvas dots and a depth. Larger depth is
// farther from the viewer.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (int, int, float64) {
	q := c.rotation().Mul3x1(p.Sub(c.Center))
	x := int(math.Round(q[0]*c.Scale)) + w/2
	y := h/2 - int(math.Round(q[2]*c.Scale))
	return x, y, q[1]
}

// Fit centers the camera on the particles and picks a scale that shows all
// of them.
func (c *Camera) Fit(ps []*particle.Particle, w, h int) {
	if len(ps) == 0 {
		return
	}
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := lo.Mul(-1)
	for _, p := range ps {
		r := mgl64.Vec3{p.Radius, p.Radius, p.Radius}
		lo = minVec(lo, p.State.Position.Sub(r))
		hi = maxVec(hi, p.State.Position.Add(r))
	}
	c.Center = lo.Add(hi).Mul(0.5)
	extent := hi.Sub(lo)
	span := math.Max(math.Max(extent[0], extent[1]), extent[2])
	if span <= 0 {
		span = 1
	}
	c.Scale = 0.9 * float64(min(w, h)) / span
}

// FacePolygons copies the vertex positions of every face.
func FacePolygons(mesh *wall.Mesh) [][]mgl64.Vec3 {
	if mesh == nil {
		return nil
	}
	out := make([][]mgl64.Vec3, len(mesh.Faces))
	for i, f := range mesh.Faces {
		out[i] = f.Positions()
	}
	return out
}

// RenderScene draws face outlines and particles, far particles first.
func RenderScene(cv *Canvas, ps []*particle.Particle, faces [][]mgl64.Vec3, cam *Camera) {
	w, h := cv.PixelSize()

	for _, poly := range faces {
		n := len(poly)
		for i := 0; i < n; i++ {
			x0, y0, _ := cam.Project(poly[i], w, h)
			x1, y1, _ := cam.Project(poly[(i+1)%n], w, h)
			cv.DrawLine(x0, y0, x1, y1)
		}
	}

	type dot struct {
		x, y  int
		depth float64
		r     float64
	}
	dots := make([]dot, 0, len(ps))
	for _, p := range ps {
		x, y, d := cam.Project(p.State.Position, w, h)
		dots = append(dots, dot{x, y, d, p.Radius * cam.Scale})
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth > dots[j].depth })
	for _, d := range dots {
		cv.DrawCircle(d.x, d.y, d.r)
	}
}

func minVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func maxVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
