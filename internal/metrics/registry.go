package metrics

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/sim"
)

var constructors = map[string]func(gravity mgl64.Vec3) sim.Metric{
	"kinetic_energy":   func(mgl64.Vec3) sim.Metric { return NewKineticEnergy() },
	"elastic_energy":   func(mgl64.Vec3) sim.Metric { return NewElasticEnergy() },
	"energy_drift":     func(g mgl64.Vec3) sim.Metric { return NewEnergyDrift(g) },
	"momentum":         func(mgl64.Vec3) sim.Metric { return NewMomentum() },
	"angular_momentum": func(mgl64.Vec3) sim.Metric { return NewAngularMomentum() },
	"contacts":         func(mgl64.Vec3) sim.Metric { return NewContacts() },
	"max_indentation":  func(mgl64.Vec3) sim.Metric { return NewMaxIndentation() },
	"wall_load":        func(mgl64.Vec3) sim.Metric { return NewWallLoad() },
	"stability":        func(mgl64.Vec3) sim.Metric { return NewStability(0.05) },
}

// Names lists the metrics Build knows, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build creates the named metrics. An empty list builds all of them.
func Build(names []string, gravity mgl64.Vec3) ([]sim.Metric, error) {
	if len(names) == 0 {
		names = Names()
	}
	out := make([]sim.Metric, 0, len(names))
	for _, n := range names {
		ctor, ok := constructors[n]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", n)
		}
		out = append(out, ctor(gravity))
	}
	return out, nil
}
