package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/sim"
)

// KineticEnergy is the translational plus rotational energy of all particles
// at the last observed step.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(f sim.Frame) {
	k.value = kinetic(f)
}

func (k *KineticEnergy) Value() float64 { return k.value }
func (k *KineticEnergy) Reset()         { k.value = 0 }

// ElasticEnergy is the energy stored in contact springs at the last step.
type ElasticEnergy struct {
	name  string
	value float64
}

func NewElasticEnergy() *ElasticEnergy {
	return &ElasticEnergy{name: "elastic_energy"}
}

func (e *ElasticEnergy) Name() string { return e.name }

func (e *ElasticEnergy) Observe(f sim.Frame) {
	e.value = elastic(f)
}

func (e *ElasticEnergy) Value() float64 { return e.value }
func (e *ElasticEnergy) Reset()         { e.value = 0 }

// EnergyDrift tracks the largest relative change of the mechanical energy
// (kinetic, elastic and gravitational) since the first observed step.
// Damped contacts make it grow, so it is only a check for undamped scenes.
type EnergyDrift struct {
	name          string
	gravity       mgl64.Vec3
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(gravity mgl64.Vec3) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	energy := kinetic(f) + elastic(f)
	for _, p := range f.Particles {
		energy -= p.Mass * e.gravity.Dot(p.State.Position)
	}

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

func kinetic(f sim.Frame) float64 {
	total := 0.0
	for _, p := range f.Particles {
		total += p.KineticEnergy()
	}
	return total
}

func elastic(f sim.Frame) float64 {
	if f.Report == nil {
		return 0
	}
	return f.Report.ElasticEnergy
}
