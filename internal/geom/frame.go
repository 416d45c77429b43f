package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
)

// epsilon below which lengths are treated as zero.
const epsilon = 1e-12

// Frame is an orthonormal basis; Axes[2] is the contact normal.
type Frame struct {
	Axes [3]mgl64.Vec3
}

// Identity returns the global basis.
func Identity() Frame {
	return Frame{Axes: [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// NewFrame builds a frame whose axis 2 is v normalized.
func NewFrame(v mgl64.Vec3) (Frame, error) {
	d := v.Len()
	if d < epsilon || math.IsNaN(d) || math.IsInf(d, 0) {
		return Frame{}, dynamo.ErrDegenerateGeometry
	}
	n := v.Mul(1 / d)

	// pick the global axis least aligned with n to seed the tangent
	var t mgl64.Vec3
	switch {
	case math.Abs(n[0]) >= 0.577:
		t = mgl64.Vec3{-n[1], n[0], 0}
	case math.Abs(n[1]) >= 0.577:
		t = mgl64.Vec3{0, -n[2], n[1]}
	default:
		t = mgl64.Vec3{n[2], 0, -n[0]}
	}
	t = t.Mul(1 / t.Len())

	b := n.Cross(t)
	b = b.Mul(1 / b.Len())

	return Frame{Axes: [3]mgl64.Vec3{t, b, n}}, nil
}

// Normal returns axis 2.
func (f Frame) Normal() mgl64.Vec3 {
	return f.Axes[2]
}

// ToLocal projects a global vector onto the frame axes.
func (f Frame) ToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{f.Axes[0].Dot(v), f.Axes[1].Dot(v), f.Axes[2].Dot(v)}
}

// ToGlobal maps local components back to global coordinates.
func (f Frame) ToGlobal(l mgl64.Vec3) mgl64.Vec3 {
	return f.Axes[0].Mul(l[0]).Add(f.Axes[1].Mul(l[1])).Add(f.Axes[2].Mul(l[2]))
}

// IsZero reports whether the frame was never built.
func (f Frame) IsZero() bool {
	return f.Axes[2] == (mgl64.Vec3{})
}

// Finite reports whether every component of v is a finite number.
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
