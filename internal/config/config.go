package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/contact"
	"github.com/san-kum/demsim/internal/dynamo"
	"github.com/san-kum/demsim/internal/engine"
	"github.com/san-kum/demsim/internal/material"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt              = 5e-5
	DefaultDuration        = 0.5
	DefaultSearchFrequency = 10
	DefaultSearchTolerance = 0.002
	DefaultOutputEvery     = 100
	DefaultRadius          = 0.01
)

type Config struct {
	Scene           string     `yaml:"scene"`
	Integrator      string     `yaml:"integrator"`
	Dt              float64    `yaml:"dt"`
	Duration        float64    `yaml:"duration"`
	SearchFrequency int        `yaml:"search_frequency"`
	SearchTolerance float64    `yaml:"search_tolerance"`
	Gravity         [3]float64 `yaml:"gravity,flow"`
	OutputEvery     int        `yaml:"output_every"`
	Metrics         []string   `yaml:"metrics,omitempty"`

	Contact   ContactConfig    `yaml:"contact"`
	Materials []MaterialConfig `yaml:"materials"`
	Particles ParticleConfig   `yaml:"particles"`
	Walls     WallConfig       `yaml:"walls,omitempty"`
}

type ContactConfig struct {
	Stiffness            string `yaml:"stiffness"`
	Damping              string `yaml:"damping"`
	Cohesion             string `yaml:"cohesion"`
	PairMode             string `yaml:"pair_mode"`
	Rotation             bool   `yaml:"rotation"`
	RollingFriction      bool   `yaml:"rolling_friction"`
	Wear                 bool   `yaml:"wear"`
	AbsorbInitialOverlap bool   `yaml:"absorb_initial_overlap"`
}

// MaterialConfig is a material as written by users. Restitution is the
// coefficient itself; a missing value means a perfectly elastic contact.
type MaterialConfig struct {
	ID              int        `yaml:"id"`
	Name            string     `yaml:"name,omitempty"`
	Density         float64    `yaml:"density"`
	Young           float64    `yaml:"young"`
	Poisson         float64    `yaml:"poisson"`
	Friction        float64    `yaml:"friction"`
	Restitution     *float64   `yaml:"restitution,omitempty"`
	RollingFriction float64    `yaml:"rolling_friction,omitempty"`
	Cohesion        float64    `yaml:"cohesion,omitempty"`
	Wear            WearConfig `yaml:"wear,omitempty"`
}

type WearConfig struct {
	Severity        float64 `yaml:"severity,omitempty"`
	ImpactSeverity  float64 `yaml:"impact_severity,omitempty"`
	BrinellHardness float64 `yaml:"brinell_hardness,omitempty"`
}

// ParticleConfig places particles on a lattice, from an explicit list, or both.
type ParticleConfig struct {
	Lattice *LatticeConfig `yaml:"lattice,omitempty"`
	List    []ParticleSpec `yaml:"list,omitempty"`
}

type LatticeConfig struct {
	Origin   [3]float64 `yaml:"origin,flow"`
	Count    [3]int     `yaml:"count,flow"`
	Spacing  float64    `yaml:"spacing"`
	Radius   float64    `yaml:"radius"`
	Material int        `yaml:"material"`
	Velocity [3]float64 `yaml:"velocity,flow,omitempty"`
}

type ParticleSpec struct {
	ID              int        `yaml:"id"`
	Material        int        `yaml:"material"`
	Radius          float64    `yaml:"radius"`
	Position        [3]float64 `yaml:"position,flow"`
	Velocity        [3]float64 `yaml:"velocity,flow,omitempty"`
	AngularVelocity [3]float64 `yaml:"angular_velocity,flow,omitempty"`
}

type WallConfig struct {
	Vertices []VertexConfig `yaml:"vertices,omitempty"`
	Faces    []FaceConfig   `yaml:"faces,omitempty"`
}

type VertexConfig struct {
	ID       int        `yaml:"id"`
	Position [3]float64 `yaml:"position,flow"`
	Velocity [3]float64 `yaml:"velocity,flow,omitempty"`
}

type FaceConfig struct {
	ID       int   `yaml:"id"`
	Material int   `yaml:"material"`
	Vertices []int `yaml:"vertices,flow"`
}

func restitution(e float64) *float64 { return &e }

func DefaultConfig() *Config {
	return &Config{
		Scene:           "settle",
		Integrator:      "euler",
		Dt:              DefaultDt,
		Duration:        DefaultDuration,
		SearchFrequency: DefaultSearchFrequency,
		SearchTolerance: DefaultSearchTolerance,
		Gravity:         [3]float64{0, 0, -9.81},
		OutputEvery:     DefaultOutputEvery,
		Contact: ContactConfig{
			Stiffness: "linear",
			Damping:   "normal_tangential",
			Cohesion:  "none",
			PairMode:  "one_sided",
			Rotation:  true,
		},
		Materials: []MaterialConfig{
			{ID: 1, Name: "glass", Density: 2500, Young: 1e7, Poisson: 0.25, Friction: 0.5, Restitution: restitution(0.5)},
			{ID: 2, Name: "steel", Density: 7800, Young: 2e8, Poisson: 0.3, Friction: 0.3, Restitution: restitution(0.5)},
		},
		Particles: ParticleConfig{
			Lattice: &LatticeConfig{
				Origin:   [3]float64{0, 0, 0.02},
				Count:    [3]int{3, 3, 3},
				Spacing:  0.025,
				Radius:   DefaultRadius,
				Material: 1,
			},
		},
		Walls: floor(2, 0.2),
	}
}

// floor is a square face of half width h centered under the origin.
func floor(mat int, h float64) WallConfig {
	return WallConfig{
		Vertices: []VertexConfig{
			{ID: 1, Position: [3]float64{-h, -h, 0}},
			{ID: 2, Position: [3]float64{h, -h, 0}},
			{ID: 3, Position: [3]float64{h, h, 0}},
			{ID: 4, Position: [3]float64{-h, h, 0}},
		},
		Faces: []FaceConfig{{ID: 1, Material: mat, Vertices: []int{1, 2, 3, 4}}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Options fall back to defaults; the scene itself comes from the file.
	cfg := DefaultConfig()
	cfg.Particles = ParticleConfig{}
	cfg.Walls = WallConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out Config
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Material converts the user form into the material the engine uses.
func (m MaterialConfig) Material() *material.Material {
	e := 1.0
	if m.Restitution != nil {
		e = *m.Restitution
	}
	return &material.Material{
		ID:              m.ID,
		Name:            m.Name,
		Density:         m.Density,
		Young:           m.Young,
		Poisson:         m.Poisson,
		Friction:        m.Friction,
		LnRestitution:   material.LnRestitution(e),
		RollingFriction: m.RollingFriction,
		Cohesion:        m.Cohesion,
	}
}

func (c *Config) GravityVec() mgl64.Vec3 {
	return mgl64.Vec3(c.Gravity)
}

// EngineOptions parses the contact section.
func (c *Config) EngineOptions() (engine.Options, error) {
	stiffness, err := material.ParseStiffness(c.Contact.Stiffness)
	if err != nil {
		return engine.Options{}, err
	}
	mode, err := engine.ParsePairMode(c.Contact.PairMode)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Stiffness:            stiffness,
		Rotation:             c.Contact.Rotation,
		RollingFriction:      c.Contact.RollingFriction,
		Wear:                 c.Contact.Wear,
		PairMode:             mode,
		Dt:                   c.Dt,
		AbsorbInitialOverlap: c.Contact.AbsorbInitialOverlap,
	}, nil
}

// Validate reports the first problem that would stop the run from starting.
func (c *Config) Validate() error {
	bad := func(field string, value any) error {
		return dynamo.InvalidField(dynamo.ErrInvalidConfig, field, value)
	}

	if !(c.Dt > 0) {
		return bad("dt", c.Dt)
	}
	if !(c.Duration > 0) {
		return bad("duration", c.Duration)
	}
	if c.SearchFrequency < 0 {
		return bad("search_frequency", c.SearchFrequency)
	}
	if c.SearchTolerance < 0 {
		return bad("search_tolerance", c.SearchTolerance)
	}
	if c.OutputEvery < 0 {
		return bad("output_every", c.OutputEvery)
	}
	switch c.Integrator {
	case "euler", "taylor":
	default:
		return bad("integrator", c.Integrator)
	}

	opts, err := c.EngineOptions()
	if err != nil {
		return fmt.Errorf("contact: %v: %w", err, dynamo.ErrInvalidConfig)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := contact.ParseDamping(c.Contact.Damping); err != nil {
		return fmt.Errorf("contact: %v: %w", err, dynamo.ErrInvalidConfig)
	}
	if _, err := contact.ParseCohesion(c.Contact.Cohesion); err != nil {
		return fmt.Errorf("contact: %v: %w", err, dynamo.ErrInvalidConfig)
	}

	mats := make(map[int]bool, len(c.Materials))
	for i, m := range c.Materials {
		if mats[m.ID] {
			return bad(fmt.Sprintf("materials[%d].id", i), m.ID)
		}
		mats[m.ID] = true
		if m.Restitution != nil && (*m.Restitution < 0 || *m.Restitution > 1) {
			return bad(fmt.Sprintf("materials[%d].restitution", i), *m.Restitution)
		}
		if err := m.Material().Validate(); err != nil {
			return err
		}
	}

	if err := c.validateParticles(mats, bad); err != nil {
		return err
	}
	return c.validateWalls(mats, bad)
}

func (c *Config) validateParticles(mats map[int]bool, bad func(string, any) error) error {
	n := 0
	if l := c.Particles.Lattice; l != nil {
		if !mats[l.Material] {
			return bad("particles.lattice.material", l.Material)
		}
		if !(l.Radius > 0) {
			return bad("particles.lattice.radius", l.Radius)
		}
		if l.Spacing < 2*l.Radius {
			return bad("particles.lattice.spacing", l.Spacing)
		}
		for _, k := range l.Count {
			if k < 1 {
				return bad("particles.lattice.count", l.Count)
			}
		}
		n += l.Count[0] * l.Count[1] * l.Count[2]
	}

	ids := make(map[int]bool, len(c.Particles.List))
	for i, p := range c.Particles.List {
		if ids[p.ID] {
			return bad(fmt.Sprintf("particles.list[%d].id", i), p.ID)
		}
		ids[p.ID] = true
		if !mats[p.Material] {
			return bad(fmt.Sprintf("particles.list[%d].material", i), p.Material)
		}
		if !(p.Radius > 0) {
			return bad(fmt.Sprintf("particles.list[%d].radius", i), p.Radius)
		}
		n++
	}

	if n == 0 {
		return bad("particles", "empty")
	}
	return nil
}

func (c *Config) validateWalls(mats map[int]bool, bad func(string, any) error) error {
	verts := make(map[int]bool, len(c.Walls.Vertices))
	for i, v := range c.Walls.Vertices {
		if verts[v.ID] {
			return bad(fmt.Sprintf("walls.vertices[%d].id", i), v.ID)
		}
		verts[v.ID] = true
	}

	faces := make(map[int]bool, len(c.Walls.Faces))
	for i, f := range c.Walls.Faces {
		if faces[f.ID] {
			return bad(fmt.Sprintf("walls.faces[%d].id", i), f.ID)
		}
		faces[f.ID] = true
		if !mats[f.Material] {
			return bad(fmt.Sprintf("walls.faces[%d].material", i), f.Material)
		}
		if len(f.Vertices) < 3 || len(f.Vertices) > 4 {
			return bad(fmt.Sprintf("walls.faces[%d].vertices", i), f.Vertices)
		}
		for _, id := range f.Vertices {
			if !verts[id] {
				return bad(fmt.Sprintf("walls.faces[%d].vertices", i), id)
			}
		}
	}
	return nil
}

// MaterialByID returns the configured material with the given ID.
func (c *Config) MaterialByID(id int) (MaterialConfig, bool) {
	for _, m := range c.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return MaterialConfig{}, false
}
