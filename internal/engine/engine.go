// Package engine resolves the contact forces and moments of a set of
// spherical particles for one time step.
//
// A step runs in three parallel passes over the particles. Pass 0 zeroes the
// accumulators and re-indexes contact histories onto the current neighbor
// lists. Pass 1 evaluates every ball-ball contact the particle owns and every
// ball-wall contact. Pass 2, in one-sided mode only, mirrors the contacts
// owned by lower-ID neighbors. Every pass writes only to the storage of the
// particle being visited; wall vertices are the one shared target and carry
// their own locks.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// PairMode selects how a ball-ball contact is split between its two owners.
type PairMode int

const (
	// OneSided evaluates each contact on the lower-ID particle and mirrors it.
	OneSided PairMode = iota
	// BothSides evaluates each contact independently on both particles.
	BothSides
)

func (m PairMode) String() string {
	switch m {
	case OneSided:
		return "one_sided"
	case BothSides:
		return "both_sides"
	default:
		return fmt.Sprintf("PairMode(%d)", int(m))
	}
}

// ParsePairMode accepts the configuration spelling of a pair mode.
func ParsePairMode(s string) (PairMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one_sided", "one-sided":
		return OneSided, nil
	case "both_sides", "both-sides", "both":
		return BothSides, nil
	default:
		return OneSided, fmt.Errorf("unknown pair mode %q", s)
	}
}

// Options configure the engine. Damping and cohesion live in the contact laws.
type Options struct {
	Stiffness       material.StiffnessModel
	Rotation        bool
	RollingFriction bool
	Wear            bool
	PairMode        PairMode
	Dt              float64

	// AbsorbInitialOverlap turns wall overlaps present at the first step into
	// an initial gap instead of a force.
	AbsorbInitialOverlap bool

	// MinChunk is the smallest number of particles handed to one worker.
	MinChunk int
}

// Validate checks the options before the first step.
func (o Options) Validate() error {
	if !(o.Dt > 0) || math.IsInf(o.Dt, 0) {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "dt", o.Dt)
	}
	if o.Stiffness != material.Linear && o.Stiffness != material.Hertz {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "stiffness", o.Stiffness)
	}
	if o.PairMode != OneSided && o.PairMode != BothSides {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "pair_mode", o.PairMode)
	}
	if o.RollingFriction && !o.Rotation {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "rolling_friction", "requires rotation")
	}
	if o.MinChunk < 0 {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "min_chunk", o.MinChunk)
	}
	return nil
}

// StepReport summarizes one call to Step.
type StepReport struct {
	Step               int
	Search             dynamo.SearchControl
	Contacts           int
	WallContacts       int
	MaxIndentation     float64
	MaxWallIndentation float64
	ElasticEnergy      float64
	Diagnostics        []dynamo.Diagnostic
}

// Engine evaluates contact forces. It keeps no per-particle state of its own.
type Engine struct {
	opts     Options
	resolver material.Resolver
	log      *log.Logger
	steps    int
}

// New creates an engine. A nil logger discards output.
func New(opts Options, logger *log.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MinChunk == 0 {
		opts.MinChunk = 32
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		opts:     opts,
		resolver: material.Resolver{Model: opts.Stiffness},
		log:      logger,
	}, nil
}

func (e *Engine) Options() Options { return e.opts }

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }

// Initialize validates particles and walls and gives every particle its own
// clone of the contact law registered for its material. Any error here is a
// configuration error and the run must not start.
func (e *Engine) Initialize(ps []*particle.Particle, reg *contact.Registry, mesh *wall.Mesh) error {
	if reg == nil {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "contact_laws", nil)
	}

	seen := make(map[int]bool, len(ps))
	for _, p := range ps {
		if p == nil {
			return dynamo.InvalidField(dynamo.ErrInvalidParticle, "particle", nil)
		}
		if seen[p.ID] {
			return dynamo.InvalidField(dynamo.ErrInvalidParticle, "particle.id", p.ID)
		}
		seen[p.ID] = true

		if p.Mass == 0 && p.Material != nil {
			p.ComputeMass()
		}
		if err := p.Validate(); err != nil {
			return err
		}

		law, err := reg.Instantiate(p.Material.ID)
		if err != nil {
			return fmt.Errorf("particle %d: %w", p.ID, err)
		}
		p.Law = law

		if !e.opts.Rotation {
			p.State.AngularVelocity = mgl64.Vec3{}
		}
	}

	if mesh != nil {
		if err := mesh.Validate(); err != nil {
			return err
		}
	}

	e.log.Printf("initialized %d particles, stiffness=%s pair_mode=%s rotation=%t",
		len(ps), e.opts.Stiffness, e.opts.PairMode, e.opts.Rotation)
	return nil
}

// Step computes the contact force and moment of every particle from the
// neighbor lists set by the search collaborator. Recoverable per-contact
// conditions are returned as diagnostics; per-particle failures are joined
// into the error after the whole batch ran, and never touch other particles.
func (e *Engine) Step(ps []*particle.Particle, search dynamo.SearchControl) (*StepReport, error) {
	e.steps++
	report := &StepReport{Step: e.steps, Search: search}

	diags := make([][]dynamo.Diagnostic, len(ps))
	n := len(ps)

	prepErr := dynamo.ParallelForErr(n, e.opts.MinChunk, func(i int) error {
		e.prepare(ps[i], search)
		return nil
	})

	computeErr := dynamo.ParallelForErr(n, e.opts.MinChunk, func(i int) error {
		p := ps[i]
		var errs []error
		if err := e.ballToBall(p, &diags[i]); err != nil {
			errs = append(errs, err)
		}
		if err := e.ballToWall(p, search, &diags[i]); err != nil {
			errs = append(errs, err)
		}
		return wrapParticle(p, "compute", errors.Join(errs...))
	})

	var collectErr error
	if e.opts.PairMode == OneSided {
		collectErr = dynamo.ParallelForErr(n, e.opts.MinChunk, func(i int) error {
			return wrapParticle(ps[i], "collect", e.collect(ps[i], &diags[i]))
		})
	}

	ballContacts := 0
	for i, p := range ps {
		ballContacts += p.Acc.Contacts
		report.WallContacts += p.Acc.WallContacts
		report.ElasticEnergy += p.Acc.ElasticEnergy
		report.MaxIndentation = math.Max(report.MaxIndentation, p.Acc.MaxIndentation)
		report.MaxWallIndentation = math.Max(report.MaxWallIndentation, p.Acc.MaxWallIndentation)
		report.Diagnostics = append(report.Diagnostics, diags[i]...)
		p.New = false
	}
	report.Contacts = ballContacts / 2

	if len(report.Diagnostics) > 0 {
		e.log.Printf("step %d: %d contact diagnostics, first: %s", e.steps, len(report.Diagnostics), report.Diagnostics[0])
	}

	return report, errors.Join(prepErr, computeErr, collectErr)
}

func (e *Engine) prepare(p *particle.Particle, search dynamo.SearchControl) {
	p.Acc.Reset()

	p.Contacts.Synchronize(p.NeighborIDs())
	for i := 0; i < p.Contacts.Len(); i++ {
		p.Contacts.At(i).ResetStep()
	}
	p.WallContacts.Synchronize(p.Walls, search == dynamo.SearchPerformed || e.steps == 1)

	if e.opts.Rotation && e.opts.RollingFriction {
		p.Acc.InitialRotationMoment = p.State.AngularVelocity.Mul(p.Inertia / e.opts.Dt)
	}
}

func (e *Engine) diag(p *particle.Particle, neighbor int, wall bool, kind dynamo.DiagnosticKind, msg string) dynamo.Diagnostic {
	return dynamo.Diagnostic{Step: e.steps, Particle: p.ID, Neighbor: neighbor, Wall: wall, Kind: kind, Message: msg}
}

func wrapParticle(p *particle.Particle, pass string, err error) error {
	if err == nil {
		return nil
	}
	return &dynamo.ParticleError{Particle: p.ID, Pass: pass, Wrapped: err}
}

func side(p *particle.Particle) material.Side {
	return material.Side{Material: p.Material, Radius: p.Radius, Mass: p.Mass}
}
