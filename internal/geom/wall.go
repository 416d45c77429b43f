package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
)

// ContactType classifies which feature of a boundary face a particle touches.
type ContactType int

const (
	ContactNone ContactType = iota
	ContactFace
	ContactEdge
	ContactVertex
)

func (c ContactType) String() string {
	switch c {
	case ContactNone:
		return "none"
	case ContactFace:
		return "face"
	case ContactEdge:
		return "edge"
	case ContactVertex:
		return "vertex"
	default:
		return fmt.Sprintf("ContactType(%d)", int(c))
	}
}

// MaxFaceVertices is the largest face the wall contact supports (quadrilateral).
const MaxFaceVertices = 4

// WallContact is the cached geometry of one particle / face neighbor slot.
// Weights are indexed by face vertex and sum to one for an active contact.
type WallContact struct {
	Frame    Frame
	Distance float64
	Weights  [MaxFaceVertices]float64
	Type     ContactType
}

// Active reports whether the slot currently describes a contact.
func (c WallContact) Active() bool {
	return c.Type != ContactNone
}

const (
	weightTolerance = 1e-6
	insideTolerance = 1e-9
)

// JudgePoint tests a particle against a single vertex.
func JudgePoint(v, p mgl64.Vec3, radius float64) (WallContact, bool, error) {
	d := p.Sub(v)
	dist := d.Len()
	if dist > radius {
		return WallContact{}, false, nil
	}
	frame, err := NewFrame(d)
	if err != nil {
		return WallContact{}, false, fmt.Errorf("vertex contact: %w", err)
	}
	c := WallContact{Frame: frame, Distance: dist, Type: ContactVertex}
	c.Weights[0] = 1
	return c, true, nil
}

// JudgeEdge tests a particle against the segment a-b. Weights[0:2] hold the
// linear weights of a and b.
func JudgeEdge(a, b, p mgl64.Vec3, radius float64) (WallContact, bool, error) {
	e := b.Sub(a)
	l2 := e.LenSqr()
	if l2 < epsilon {
		return WallContact{}, false, fmt.Errorf("zero length edge: %w", dynamo.ErrDegenerateGeometry)
	}

	t := p.Sub(a).Dot(e) / l2
	if t < 0 || t > 1 {
		return WallContact{}, false, nil
	}

	closest := a.Add(e.Mul(t))
	d := p.Sub(closest)
	dist := d.Len()
	if dist > radius {
		return WallContact{}, false, nil
	}
	frame, err := NewFrame(d)
	if err != nil {
		return WallContact{}, false, fmt.Errorf("edge contact: %w", err)
	}

	c := WallContact{Frame: frame, Distance: dist, Type: ContactEdge}
	c.Weights[0] = 1 - t
	c.Weights[1] = t
	return c, true, nil
}

// JudgeFace tests a particle against a planar triangle or quadrilateral.
// The normal is oriented towards the particle; Weights follow pts order.
func JudgeFace(pts []mgl64.Vec3, p mgl64.Vec3, radius float64) (WallContact, bool, error) {
	if len(pts) < 3 || len(pts) > MaxFaceVertices {
		return WallContact{}, false, fmt.Errorf("face with %d vertices: %w", len(pts), dynamo.ErrDegenerateGeometry)
	}

	n := pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0]))
	area := n.Len()
	if area < epsilon {
		return WallContact{}, false, fmt.Errorf("zero area face: %w", dynamo.ErrDegenerateGeometry)
	}
	n = n.Mul(1 / area)

	signed := p.Sub(pts[0]).Dot(n)
	if signed < 0 {
		n = n.Mul(-1)
		signed = -signed
	}
	if signed > radius {
		return WallContact{}, false, nil
	}

	q := p.Sub(n.Mul(signed))
	weights, inside := polygonWeights(pts, q)
	if !inside {
		return WallContact{}, false, nil
	}

	frame, err := NewFrame(n)
	if err != nil {
		return WallContact{}, false, err
	}
	return WallContact{Frame: frame, Distance: signed, Weights: weights, Type: ContactFace}, true, nil
}

// FaceNormal returns the unit normal of a face using its first three vertices.
func FaceNormal(pts []mgl64.Vec3) (mgl64.Vec3, error) {
	if len(pts) < 3 {
		return mgl64.Vec3{}, dynamo.ErrDegenerateGeometry
	}
	n := pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0]))
	l := n.Len()
	if l < epsilon {
		return mgl64.Vec3{}, dynamo.ErrDegenerateGeometry
	}
	return n.Mul(1 / l), nil
}

func polygonWeights(pts []mgl64.Vec3, q mgl64.Vec3) ([MaxFaceVertices]float64, bool) {
	var w [MaxFaceVertices]float64

	if u, v, s, ok := barycentric(pts[0], pts[1], pts[2], q); ok {
		w[0], w[1], w[2] = u, v, s
		return w, true
	}
	if len(pts) == 4 {
		if u, v, s, ok := barycentric(pts[0], pts[2], pts[3], q); ok {
			w[0], w[2], w[3] = u, v, s
			return w, true
		}
	}
	return w, false
}

func barycentric(a, b, c, q mgl64.Vec3) (float64, float64, float64, bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := q.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	den := d00*d11 - d01*d01
	if math.Abs(den) < epsilon {
		return 0, 0, 0, false
	}

	v := (d11*d20 - d01*d21) / den
	w := (d00*d21 - d01*d20) / den
	u := 1 - v - w

	inside := u >= -insideTolerance && v >= -insideTolerance && w >= -insideTolerance
	return u, v, w, inside
}

// Classify finds the closest feature of a face touched by a sphere of the given
// radius, preferring the face interior, then edges, then vertices.
func Classify(vertices []mgl64.Vec3, p mgl64.Vec3, radius float64) (WallContact, error) {
	if len(vertices) > MaxFaceVertices {
		return WallContact{}, fmt.Errorf("face with %d vertices: %w", len(vertices), dynamo.ErrDegenerateGeometry)
	}

	if len(vertices) >= 3 {
		c, ok, err := JudgeFace(vertices, p, radius)
		if err != nil {
			return WallContact{}, err
		}
		if ok {
			return c, nil
		}
	}

	best := WallContact{}
	bestDist := math.Inf(1)

	n := len(vertices)
	edges := n
	if n == 2 {
		edges = 1
	}
	for i := 0; i < edges && n >= 2; i++ {
		j := (i + 1) % n
		c, ok, err := JudgeEdge(vertices[i], vertices[j], p, radius)
		if err != nil {
			return WallContact{}, err
		}
		if ok && c.Distance < bestDist {
			wi, wj := c.Weights[0], c.Weights[1]
			c.Weights = [MaxFaceVertices]float64{}
			c.Weights[i], c.Weights[j] = wi, wj
			best, bestDist = c, c.Distance
		}
	}
	if best.Active() {
		return best, nil
	}

	for i, v := range vertices {
		c, ok, err := JudgePoint(v, p, radius)
		if err != nil {
			return WallContact{}, err
		}
		if ok && c.Distance < bestDist {
			c.Weights = [MaxFaceVertices]float64{}
			c.Weights[i] = 1
			best, bestDist = c, c.Distance
		}
	}
	return best, nil
}

// Revalidate re-tests a cached contact against the current particle position
// using only the vertices the cached weights select. Only the footprint
// decides validity: a particle that moved away from the feature keeps its slot
// with the new distance, so a contact found inside the search tolerance is not
// lost when the particle later closes in. The type is cleared once the
// projection leaves the footprint.
func Revalidate(vertices []mgl64.Vec3, cached WallContact, p mgl64.Vec3) (WallContact, error) {
	reach := math.Inf(1)
	if !cached.Active() {
		return cached, nil
	}

	var idx []int
	var pts []mgl64.Vec3
	total := 0.0
	for i := 0; i < len(vertices) && i < MaxFaceVertices; i++ {
		if cached.Weights[i] > weightTolerance {
			idx = append(idx, i)
			pts = append(pts, vertices[i])
			total += cached.Weights[i]
		}
		if math.Abs(total-1) < weightTolerance {
			break
		}
	}

	var (
		c   WallContact
		ok  bool
		err error
	)
	switch len(pts) {
	case 3, 4:
		c, ok, err = JudgeFace(pts, p, reach)
	case 2:
		c, ok, err = JudgeEdge(pts[0], pts[1], p, reach)
	case 1:
		c, ok, err = JudgePoint(pts[0], p, reach)
	default:
		return WallContact{}, fmt.Errorf("no weighted vertices in cached contact: %w", dynamo.ErrDegenerateGeometry)
	}
	if err != nil {
		return cached, err
	}
	if !ok {
		cached.Type = ContactNone
		return cached, nil
	}

	out := WallContact{Frame: c.Frame, Distance: c.Distance, Type: cached.Type}
	for k, i := range idx {
		out.Weights[i] = c.Weights[k]
	}
	return out, nil
}
