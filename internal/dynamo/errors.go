package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for contact evaluation.
var (
	// ErrInvalidMaterial indicates a material with missing or out of range parameters.
	ErrInvalidMaterial = errors.New("dynamo: invalid material parameters")

	// ErrInvalidParticle indicates a particle that cannot take part in contact (zero radius, no material).
	ErrInvalidParticle = errors.New("dynamo: invalid particle")

	// ErrInvalidConfig indicates an unusable engine or run configuration.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrDegenerateGeometry indicates coincident centers or a zero-area boundary face.
	ErrDegenerateGeometry = errors.New("dynamo: degenerate contact geometry")

	// ErrMissingLaw indicates no contact law prototype is registered for a material.
	ErrMissingLaw = errors.New("dynamo: no contact law for material")

	// ErrAsymmetricNeighbor indicates the owner of a contact does not list the collector.
	ErrAsymmetricNeighbor = errors.New("dynamo: neighbor lists are not symmetric")

	// ErrNumericalOverflow indicates a non-finite intermediate value in a contact computation.
	ErrNumericalOverflow = errors.New("dynamo: numerical overflow")
)

// ConfigError wraps a validation failure with the offending field.
type ConfigError struct {
	Field   string
	Value   any
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s = %v: %v", e.Field, e.Value, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}

// InvalidField builds a ConfigError wrapping base.
func InvalidField(base error, field string, value any) error {
	return &ConfigError{Field: field, Value: value, Wrapped: base}
}

// ParticleError wraps a failure raised while evaluating a single particle.
type ParticleError struct {
	Particle int
	Pass     string
	Wrapped  error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("particle %d (%s): %v", e.Particle, e.Pass, e.Wrapped)
}

func (e *ParticleError) Unwrap() error {
	return e.Wrapped
}
