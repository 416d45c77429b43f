package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/particle"
)

// applyMoment adds the moment of one contact to p and applies rolling
// resistance when enabled. axis points from the contact partner to p.
func (e *Engine) applyMoment(p *particle.Particle, axis, elastic mgl64.Vec3, arm, normal, coeff float64, neighbor int, wall bool, diags *[]dynamo.Diagnostic) {
	p.Acc.Moment = p.Acc.Moment.Sub(axis.Cross(elastic).Mul(arm))

	if !e.opts.RollingFriction || coeff == 0 {
		return
	}
	moment, ok := RollingResistance(p.Acc.Moment, p.Acc.InitialRotationMoment, axis, normal, coeff)
	if !ok {
		*diags = append(*diags, e.diag(p, neighbor, wall, dynamo.DiagRollingOverflow, "rolling resistance not finite, spin cancelled"))
	}
	p.Acc.Moment = moment
}

// RollingResistance applies a rolling resistance of magnitude coeff*|normal|
// against the moment that would keep the particle spinning, initial+moment.
// If the resistance would exceed that moment, the result exactly cancels the
// initial rotation moment instead. ok is false when the computation overflowed
// and the cancelling branch was taken for that reason.
func RollingResistance(moment, initial, axis mgl64.Vec3, normal, coeff float64) (result mgl64.Vec3, ok bool) {
	spin := initial.Add(moment)

	c1 := axis.Cross(spin)
	if l := c1.Len(); l > 0 {
		c1 = c1.Mul(1 / l)
	}
	c2 := spin.Cross(c1)
	if l := c2.Len(); l > 0 {
		c2 = c2.Mul(1 / l)
	}

	var resist mgl64.Vec3
	if c1.Len() > 0 && c2.Len() > 0 {
		resist = c2.Cross(c1).Mul(math.Abs(normal))
	}

	now := resist.Len() * coeff
	bound := spin.Len()
	finite := !math.IsNaN(now) && !math.IsInf(now, 0) && !math.IsNaN(bound) && !math.IsInf(bound, 0)

	if finite && bound > now {
		return moment.Add(resist.Mul(coeff)), true
	}
	return initial.Mul(-1), finite
}
