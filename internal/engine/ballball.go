package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/geom"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
)

// ballToBall evaluates the contacts p owns. In one-sided mode contacts with a
// lower-ID neighbor are left for the collect pass.
func (e *Engine) ballToBall(p *particle.Particle, diags *[]dynamo.Diagnostic) error {
	var errs []error
	for i, n := range p.Neighbors {
		if n.ID == p.ID {
			*diags = append(*diags, e.diag(p, n.ID, false, dynamo.DiagSelfNeighbor, "particle lists itself as a neighbor"))
			continue
		}
		if p.New && n.New {
			continue
		}
		if e.opts.PairMode == OneSided && p.ID > n.ID {
			continue
		}
		// histories were synchronized in pass 0, so the lookup only reads
		if _, ok := n.Contacts.Lookup(p.ID); !ok {
			msg := fmt.Sprintf("%v: %d does not list %d, its side gets no force", dynamo.ErrAsymmetricNeighbor, n.ID, p.ID)
			*diags = append(*diags, e.diag(p, n.ID, false, dynamo.DiagAsymmetricNeighbor, msg))
		}
		if err := e.evaluatePair(p, n, p.Contacts.At(i), diags); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// evaluatePair computes the contact of p with n and writes it into rec and
// the accumulator of p only.
func (e *Engine) evaluatePair(p, n *particle.Particle, rec *particle.ContactRecord, diags *[]dynamo.Diagnostic) error {
	k, err := geom.EvaluatePair(p.Body(), n.Body(), e.opts.Rotation, e.opts.Dt)
	if err != nil {
		rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
		rec.Evaluated = true
		*diags = append(*diags, e.diag(p, n.ID, false, dynamo.DiagCoincidentCenters, err.Error()))
		return nil
	}

	delta := k.Indentation(p.Radius + n.Radius)
	old := k.Previous

	var local, damp mgl64.Vec3
	if delta > 0 {
		eq := e.resolver.Pair(side(p), side(n))
		local, damp, _ = applyLaw(p.Law, eq, old.ToLocal(rec.Elastic), old.ToLocal(k.RelDisplacement), old.ToLocal(k.RelVelocity), delta)
	}

	elastic := old.ToGlobal(local)
	total := old.ToGlobal(local.Add(damp))
	if !geom.Finite(elastic) || !geom.Finite(total) {
		rec.Elastic, rec.Total = mgl64.Vec3{}, mgl64.Vec3{}
		rec.Evaluated = true
		return fmt.Errorf("contact with particle %d at indentation %g: %w", n.ID, delta, dynamo.ErrNumericalOverflow)
	}

	rec.Elastic = elastic
	rec.Total = total
	rec.Evaluated = true
	rec.Normal = local[2]
	rec.Indentation = delta
	rec.Axis = k.Current.Normal()

	p.Acc.Force = p.Acc.Force.Add(total)
	p.Acc.ContactForce = p.Acc.ContactForce.Add(total)
	p.Acc.ElasticForce = p.Acc.ElasticForce.Add(elastic)

	if delta <= 0 {
		return nil
	}

	energy := p.Law.ElasticEnergy(local, delta)
	if e.opts.PairMode == BothSides {
		energy *= 0.5
	}
	p.Acc.ElasticEnergy += energy
	p.Acc.Contacts++
	p.Acc.MaxIndentation = math.Max(p.Acc.MaxIndentation, delta)

	if e.opts.Rotation {
		arm := p.Radius - delta*p.Radius/(p.Radius+n.Radius)
		e.applyMoment(p, rec.Axis, elastic, arm, local[2], rollingCoefficient(p, n), n.ID, false, diags)
	}
	return nil
}

// applyLaw runs the contact law in the local frame. elastic carries the
// previous elastic force and is returned updated together with the damping.
func applyLaw(law contact.Law, eq material.Equivalent, elastic, disp, vel mgl64.Vec3, delta float64) (mgl64.Vec3, mgl64.Vec3, bool) {
	law.InitializeContact(eq)
	elastic[2] = law.NormalForce(delta) - law.CohesiveForce(delta)
	sliding := law.TangentialForce(&elastic, disp, delta)
	return elastic, law.ViscoDamping(vel, sliding), sliding
}

func rollingCoefficient(p, n *particle.Particle) float64 {
	return math.Min(p.Material.RollingFriction*p.Radius, n.Material.RollingFriction*n.Radius)
}
