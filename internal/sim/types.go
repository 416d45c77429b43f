package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/engine"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// Integrator advances positions and velocities from the accumulated contact
// force and moment plus gravity.
type Integrator interface {
	Name() string
	Step(ps []*particle.Particle, gravity mgl64.Vec3, dt float64)
}

// Finder rebuilds neighbor lists. Control is asked before every step; Search
// only runs when it answers SearchPerformed.
type Finder interface {
	Control(step int) dynamo.SearchControl
	Search(ps []*particle.Particle, mesh *wall.Mesh) error
}

// Frame is the state handed to metrics and observers after a step.
type Frame struct {
	Step      int
	Time      float64
	Particles []*particle.Particle
	Mesh      *wall.Mesh
	Report    *engine.StepReport
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

type Config struct {
	Dt       float64
	Duration float64
	Gravity  mgl64.Vec3
	// OutputEvery samples metric series every n steps. Zero samples every step.
	OutputEvery int
	// StartStep and StartTime continue a run restored from a checkpoint.
	StartStep int
	StartTime float64
}

func (c Config) Steps() int {
	return int(c.Duration/c.Dt + 0.5)
}

type Result struct {
	Times       []float64
	Series      map[string][]float64
	Metrics     map[string]float64
	StepsTaken  int
	FinalTime   float64
	Diagnostics []dynamo.Diagnostic
	Errors      []error
}

// StepError is a failure reported by the engine for one step. The run keeps
// going unless the failure left non-finite state behind.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Err)
}

func (e StepError) Unwrap() error { return e.Err }
