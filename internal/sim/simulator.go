// Package sim drives the step loop: neighbor search on its cadence, contact
// resolution, integration and wall motion, then metrics and observers.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/engine"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

type Simulator struct {
	eng        *engine.Engine
	integrator Integrator
	finder     Finder
	mesh       *wall.Mesh
	metrics    []Metric
	observers  []Observer
	log        *log.Logger
}

// New creates a simulator. The engine must already be initialized for the
// particles and mesh that are later passed to Run.
func New(eng *engine.Engine, integrator Integrator, finder Finder, mesh *wall.Mesh) *Simulator {
	return &Simulator{
		eng:        eng,
		integrator: integrator,
		finder:     finder,
		mesh:       mesh,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		log:        log.New(io.Discard, "", 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *log.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *Simulator) Run(ctx context.Context, ps []*particle.Particle, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	every := cfg.OutputEvery
	if every <= 0 {
		every = 1
	}

	result := &Result{
		Times:   make([]float64, 0, steps/every+1),
		Series:  make(map[string][]float64),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	t := cfg.StartTime
	result.FinalTime = t
	s.log.Printf("running %d steps from t=%.6g, dt=%.3g, integrator=%s", steps, t, cfg.Dt, s.integrator.Name())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		step := cfg.StartStep + i
		control := s.finder.Control(step)
		if control == dynamo.SearchPerformed {
			if err := s.finder.Search(ps, s.mesh); err != nil {
				s.finish(result)
				return result, fmt.Errorf("neighbor search at step %d: %w", step, err)
			}
		}

		if s.mesh != nil {
			s.mesh.ResetReactions()
		}

		report, err := s.eng.Step(ps, control)
		result.Diagnostics = append(result.Diagnostics, report.Diagnostics...)
		if err != nil {
			result.Errors = append(result.Errors, StepError{Step: step, Time: t, Err: err})
			if errors.Is(err, dynamo.ErrNumericalOverflow) {
				s.log.Printf("stopping at step %d: %v", step, err)
				break
			}
		}

		s.integrator.Step(ps, cfg.Gravity, cfg.Dt)
		if s.mesh != nil {
			s.mesh.Move(cfg.Dt)
		}

		t += cfg.Dt
		result.StepsTaken++
		result.FinalTime = t

		frame := Frame{Step: step + 1, Time: t, Particles: ps, Mesh: s.mesh, Report: report}
		for _, m := range s.metrics {
			m.Observe(frame)
		}
		for _, obs := range s.observers {
			obs.OnStep(frame)
		}

		if (i+1)%every == 0 || i == steps-1 {
			s.sample(result, t)
		}
	}

	s.finish(result)
	return result, nil
}

func (s *Simulator) sample(result *Result, t float64) {
	result.Times = append(result.Times, t)
	for _, m := range s.metrics {
		result.Series[m.Name()] = append(result.Series[m.Name()], m.Value())
	}
}

func (s *Simulator) finish(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if n := len(result.Diagnostics); n > 0 {
		s.log.Printf("%d contact diagnostics over %d steps", n, result.StepsTaken)
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "dt", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "duration", cfg.Duration)
	}
	if cfg.OutputEvery < 0 {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "output_every", cfg.OutputEvery)
	}
	if s.eng == nil || s.integrator == nil || s.finder == nil {
		return fmt.Errorf("simulator needs an engine, an integrator and a finder: %w", dynamo.ErrInvalidConfig)
	}
	if d := s.eng.Options().Dt; d != cfg.Dt {
		return fmt.Errorf("engine dt %g differs from run dt %g: %w", d, cfg.Dt, dynamo.ErrInvalidConfig)
	}
	return nil
}
