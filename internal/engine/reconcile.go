package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/particle"
)

// collect mirrors the contacts owned by lower-ID neighbors into p. It reads
// the owner's records and writes only to p. When the owner does not list p
// the contact is evaluated locally so it is not lost.
func (e *Engine) collect(p *particle.Particle, diags *[]dynamo.Diagnostic) error {
	var errs []error
	for i, n := range p.Neighbors {
		if n.ID >= p.ID || (p.New && n.New) {
			continue
		}
		rec := p.Contacts.At(i)

		owner, ok := n.Contacts.Lookup(p.ID)
		if !ok {
			msg := fmt.Sprintf("%v: owner %d does not list %d, evaluated locally", dynamo.ErrAsymmetricNeighbor, n.ID, p.ID)
			*diags = append(*diags, e.diag(p, n.ID, false, dynamo.DiagAsymmetricNeighbor, msg))
			if err := e.evaluatePair(p, n, rec, diags); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		rec.Elastic = owner.Elastic.Mul(-1)
		rec.Total = owner.Total.Mul(-1)
		rec.Evaluated = owner.Evaluated
		rec.Normal = owner.Normal
		rec.Indentation = owner.Indentation
		rec.Axis = owner.Axis.Mul(-1)

		p.Acc.Force = p.Acc.Force.Add(rec.Total)
		p.Acc.ContactForce = p.Acc.ContactForce.Add(rec.Total)
		p.Acc.ElasticForce = p.Acc.ElasticForce.Add(rec.Elastic)

		if rec.Indentation <= 0 {
			continue
		}
		p.Acc.Contacts++
		p.Acc.MaxIndentation = math.Max(p.Acc.MaxIndentation, rec.Indentation)

		if e.opts.Rotation {
			arm := p.Radius - rec.Indentation*p.Radius/(p.Radius+n.Radius)
			e.applyMoment(p, rec.Axis, rec.Elastic, arm, rec.Normal, rollingCoefficient(p, n), n.ID, false, diags)
		}
	}
	return errors.Join(errs...)
}
