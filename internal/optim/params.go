package optim

import (
	"sort"

	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/dynamo"
)

// Material parameters apply to every material of the scene.
var setters = map[string]func(*config.Config, float64){
	"dt":               func(c *config.Config, v float64) { c.Dt = v },
	"search_tolerance": func(c *config.Config, v float64) { c.SearchTolerance = v },
	"gravity_z":        func(c *config.Config, v float64) { c.Gravity[2] = v },
	"young": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.Young = v })
	},
	"poisson": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.Poisson = v })
	},
	"density": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.Density = v })
	},
	"friction": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.Friction = v })
	},
	"restitution": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) {
			e := v
			m.Restitution = &e
		})
	},
	"rolling_friction": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.RollingFriction = v })
	},
	"cohesion": func(c *config.Config, v float64) {
		forMaterials(c, func(m *config.MaterialConfig) { m.Cohesion = v })
	},
}

func forMaterials(c *config.Config, fn func(*config.MaterialConfig)) {
	for i := range c.Materials {
		fn(&c.Materials[i])
	}
}

// Apply sets one named parameter on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	set, ok := setters[name]
	if !ok {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, "parameter", name)
	}
	set(cfg, v)
	return nil
}

// Parameters lists the names Apply understands.
func Parameters() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
