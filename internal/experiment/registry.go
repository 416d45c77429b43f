package experiment

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/integrators"
	"github.com/san-kum/demsim/internal/material"
	"github.com/san-kum/demsim/internal/metrics"
	"github.com/san-kum/demsim/internal/sim"
)

type Registry struct {
	integrators map[string]func() sim.Integrator
	stiffness   []string
	damping     []string
	cohesion    []string
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() sim.Integrator),
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewSymplecticEuler() }
	r.integrators["taylor"] = func() sim.Integrator { return integrators.NewTaylor() }

	for _, s := range []material.StiffnessModel{material.Linear, material.Hertz} {
		r.stiffness = append(r.stiffness, s.String())
	}
	for _, d := range []contact.DampingMode{contact.DampingNone, contact.DampingNormal, contact.DampingNormalTangential} {
		r.damping = append(r.damping, d.String())
	}
	for _, c := range []contact.Cohesion{contact.NoCohesion{}, contact.ConstantCohesion{}, contact.DMTCohesion{}} {
		r.cohesion = append(r.cohesion, c.Name())
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListStiffness() []string { return r.stiffness }
func (r *Registry) ListDamping() []string   { return r.damping }
func (r *Registry) ListCohesion() []string  { return r.cohesion }

// ContactLaws registers one law prototype per configured material.
func (r *Registry) ContactLaws(cfg *config.Config) (*contact.Registry, error) {
	stiffness, err := material.ParseStiffness(cfg.Contact.Stiffness)
	if err != nil {
		return nil, err
	}
	damping, err := contact.ParseDamping(cfg.Contact.Damping)
	if err != nil {
		return nil, err
	}
	cohesion, err := contact.ParseCohesion(cfg.Contact.Cohesion)
	if err != nil {
		return nil, err
	}

	laws := contact.NewRegistry()
	for _, m := range cfg.Materials {
		laws.Register(m.ID, contact.New(stiffness, damping, cohesion))
	}
	return laws, nil
}

func (r *Registry) DefaultMetrics(names []string, gravity mgl64.Vec3) ([]sim.Metric, error) {
	return metrics.Build(names, gravity)
}
