package config

import "sort"

// Presets are ready to run scenes grouped by scene family. Every lookup builds
// a fresh config so callers may change it.
var Presets = map[string]map[string]func() *Config{
	"settle": {
		"lattice": func() *Config {
			return DefaultConfig()
		},
		"column": func() *Config {
			c := DefaultConfig()
			c.Contact.Stiffness = "hertz"
			c.Particles = ParticleConfig{List: column(5, DefaultRadius, 0.025)}
			c.Duration = 0.3
			return c
		},
		"cohesive": func() *Config {
			c := DefaultConfig()
			c.Contact.Cohesion = "constant"
			c.Materials[0].Cohesion = 200
			return c
		},
	},
	"collision": {
		"head_on": func() *Config {
			return collision("linear", [3]float64{0.5, 0, 0}, 0)
		},
		"oblique": func() *Config {
			c := collision("linear", [3]float64{0.5, 0, 0}, 0.01)
			c.Contact.Damping = "normal_tangential"
			return c
		},
		"hertz": func() *Config {
			c := collision("hertz", [3]float64{0.5, 0, 0}, 0)
			c.Materials[0].Restitution = restitution(0.8)
			c.Contact.Damping = "normal"
			return c
		},
	},
	"rolling": {
		"floor": func() *Config {
			return rolling([3]float64{0.2, 0, 0}, [3]float64{})
		},
		"spin": func() *Config {
			return rolling([3]float64{}, [3]float64{0, 20, 0})
		},
	},
	"wear": {
		"slide": func() *Config {
			c := rolling([3]float64{0.5, 0, 0}, [3]float64{})
			c.Contact.Wear = true
			c.Contact.RollingFriction = false
			c.Materials[1].Wear = WearConfig{Severity: 1e-3, ImpactSeverity: 1e-3, BrinellHardness: 2e9}
			return c
		},
	},
}

func column(n int, radius, spacing float64) []ParticleSpec {
	list := make([]ParticleSpec, n)
	for i := range list {
		list[i] = ParticleSpec{
			ID:       i + 1,
			Material: 1,
			Radius:   radius,
			Position: [3]float64{0, 0, radius + float64(i)*spacing},
		}
	}
	return list
}

// collision shoots two equal particles at each other without gravity. offset
// moves the second one sideways.
func collision(stiffness string, v [3]float64, offset float64) *Config {
	c := DefaultConfig()
	c.Scene = "collision"
	c.Dt = 1e-5
	c.Duration = 0.03
	c.SearchFrequency = 5
	c.OutputEvery = 10
	c.Gravity = [3]float64{}
	c.Contact.Stiffness = stiffness
	c.Contact.Damping = "none"
	c.Walls = WallConfig{}
	c.Particles = ParticleConfig{List: []ParticleSpec{
		{ID: 1, Material: 1, Radius: DefaultRadius, Position: [3]float64{-0.015, 0, 0}, Velocity: v},
		{ID: 2, Material: 1, Radius: DefaultRadius, Position: [3]float64{0.015, offset, 0}, Velocity: [3]float64{-v[0], -v[1], -v[2]}},
	}}
	return c
}

// rolling puts one particle at rest height on the floor.
func rolling(v, omega [3]float64) *Config {
	c := DefaultConfig()
	c.Scene = "rolling"
	c.Contact.RollingFriction = true
	c.Materials[0].RollingFriction = 0.1
	c.Particles = ParticleConfig{List: []ParticleSpec{{
		ID:              1,
		Material:        1,
		Radius:          DefaultRadius,
		Position:        [3]float64{-0.1, 0, DefaultRadius},
		Velocity:        v,
		AngularVelocity: omega,
	}}}
	return c
}

func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	build, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	cfg := build()
	cfg.Scene = scene + "/" + preset
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenes lists the preset families, sorted.
func Scenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
