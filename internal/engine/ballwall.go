package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// ballToWall evaluates every face neighbor of p. On steps where the search
// did not run, cached contacts are re-validated against the current position.
func (e *Engine) ballToWall(p *particle.Particle, search dynamo.SearchControl, diags *[]dynamo.Diagnostic) error {
	var errs []error
	for i, slot := range p.Walls {
		face := slot.Face
		rec := p.WallContacts.At(i)

		if search == dynamo.SearchSkipped && rec.Geometry.Active() {
			g, err := geom.Revalidate(face.Positions(), rec.Geometry, p.State.Position)
			if err != nil {
				rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
				*diags = append(*diags, e.diag(p, face.ID, true, dynamo.DiagDegenerateFace, err.Error()))
				continue
			}
			rec.Geometry = g
		}

		if !rec.Geometry.Active() {
			rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
			continue
		}
		if err := e.evaluateWall(p, face, rec, diags); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) evaluateWall(p *particle.Particle, face *wall.Face, rec *particle.WallRecord, diags *[]dynamo.Diagnostic) error {
	g := rec.Geometry
	frame := g.Frame
	if frame.IsZero() {
		rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
		*diags = append(*diags, e.diag(p, face.ID, true, dynamo.DiagDegenerateFace, "contact without a frame"))
		return nil
	}
	normal := frame.Normal()

	delta := p.Radius - g.Distance - rec.InitialGap
	if e.opts.AbsorbInitialOverlap && rec.Fresh && e.steps == 1 && delta > 0 {
		rec.InitialGap += delta
		delta = 0
	}

	relVel := p.State.Velocity.Sub(face.VelocityAt(g.Weights))
	relDisp := relVel.Mul(e.opts.Dt)
	if e.opts.Rotation {
		// surface velocity of the particle at the contact point -R*n
		spin := p.State.AngularVelocity.Cross(normal).Mul(-p.Radius)
		relDisp = relDisp.Add(spin.Mul(e.opts.Dt))
		relVel = relVel.Add(spin)
	}

	localDisp := frame.ToLocal(relDisp)
	localVel := frame.ToLocal(relVel)

	var local, damp mgl64.Vec3
	sliding := false
	if delta > 0 {
		eq := e.resolver.Wall(side(p), face.Material)
		local, damp, sliding = applyLaw(p.Law, eq, frame.ToLocal(rec.Elastic), localDisp, localVel, delta)
	}

	elastic := frame.ToGlobal(local)
	total := frame.ToGlobal(local.Add(damp))
	if !geom.Finite(elastic) || !geom.Finite(total) {
		rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
		return fmt.Errorf("contact with face %d at indentation %g: %w", face.ID, delta, dynamo.ErrNumericalOverflow)
	}
	rec.Elastic = elastic
	rec.Total = total

	p.Acc.Force = p.Acc.Force.Add(total)
	p.Acc.ContactForce = p.Acc.ContactForce.Add(total)
	p.Acc.ElasticForce = p.Acc.ElasticForce.Add(elastic)

	if delta <= 0 {
		return nil
	}

	reaction := total.Mul(-1)
	p.Acc.WallReaction = p.Acc.WallReaction.Add(reaction)
	face.DistributeReaction(reaction, g.Weights)

	p.Acc.ElasticEnergy += p.Law.ElasticEnergy(local, delta)
	p.Acc.WallContacts++
	p.Acc.MaxWallIndentation = math.Max(p.Acc.MaxWallIndentation, delta)

	if e.opts.Rotation {
		e.applyMoment(p, normal, elastic, p.Radius-delta, local[2], p.Material.RollingFriction*p.Radius, face.ID, true, diags)
	}

	if e.opts.Wear && face.Wear.Enabled() {
		translational := frame.ToLocal(p.State.Velocity.Sub(face.VelocityAt(g.Weights)))
		addWear(p, face, translational, localDisp, local[2], sliding)
	}
	return nil
}
