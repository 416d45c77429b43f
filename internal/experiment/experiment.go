// Package experiment turns a config into a ready to run simulation.
package experiment

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/engine"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/search"
	"github.com/san-kum/demsim/internal/sim"
	"github.com/san-kum/demsim/internal/wall"
)

type Experiment struct {
	cfg       *config.Config
	scene     *Scene
	engine    *engine.Engine
	finder    *search.BruteForce
	simulator *sim.Simulator
	log       *log.Logger

	startStep int
	startTime float64
}

// New creates an experiment. A nil logger discards output.
func New(cfg *config.Config, logger *log.Logger) *Experiment {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Experiment{cfg: cfg, log: logger}
}

// Setup validates the config, builds the scene and initializes the engine.
// Configuration errors surface here, before any step runs.
func (e *Experiment) Setup(reg *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	scene, err := BuildScene(e.cfg)
	if err != nil {
		return err
	}

	opts, err := e.cfg.EngineOptions()
	if err != nil {
		return err
	}
	eng, err := engine.New(opts, e.log)
	if err != nil {
		return err
	}
	laws, err := reg.ContactLaws(e.cfg)
	if err != nil {
		return err
	}
	if err := eng.Initialize(scene.Particles, laws, scene.Mesh); err != nil {
		return err
	}

	integrator, err := reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	ms, err := reg.DefaultMetrics(e.cfg.Metrics, e.cfg.GravityVec())
	if err != nil {
		return err
	}

	e.scene = scene
	e.engine = eng
	e.finder = search.NewBruteForce(e.cfg.SearchTolerance, e.cfg.SearchFrequency)
	e.simulator = sim.New(eng, integrator, e.finder, scene.Mesh)
	e.simulator.SetLogger(e.log)
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}

	if crit := scene.CriticalTimeStep(opts.Rotation); e.cfg.Dt > crit {
		e.log.Printf("warning: dt %.3g exceeds the critical time step %.3g", e.cfg.Dt, crit)
	}
	return nil
}

// Restore continues from a checkpoint. Neighbor lists are rebuilt at once so
// the restored contact histories survive the first synchronization.
func (e *Experiment) Restore(snap particle.Snapshot, vertices []wall.VertexRecord, step int, t float64) error {
	if e.simulator == nil {
		return fmt.Errorf("experiment not setup")
	}
	if err := particle.Restore(e.scene.Particles, snap); err != nil {
		return err
	}
	if err := e.scene.Mesh.Restore(vertices); err != nil {
		return err
	}
	if err := e.finder.Search(e.scene.Particles, e.scene.Mesh); err != nil {
		return err
	}
	e.startStep = step
	e.startTime = t
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:          e.cfg.Dt,
		Duration:    e.cfg.Duration,
		Gravity:     e.cfg.GravityVec(),
		OutputEvery: e.cfg.OutputEvery,
		StartStep:   e.startStep,
		StartTime:   e.startTime,
	}

	res, err := e.simulator.Run(ctx, e.scene.Particles, simCfg)
	if res != nil {
		e.startStep += res.StepsTaken
		e.startTime = res.FinalTime
	}
	return res, err
}

// Checkpoint captures the state needed by Restore.
func (e *Experiment) Checkpoint() (particle.Snapshot, []wall.VertexRecord, int, float64) {
	return particle.Capture(e.scene.Particles), e.scene.Mesh.Capture(), e.startStep, e.startTime
}

func (e *Experiment) Scene() *Scene { return e.scene }

// Clock returns the step and time the next Run starts from.
func (e *Experiment) Clock() (int, float64) { return e.startStep, e.startTime }

func (e *Experiment) Config() *config.Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
