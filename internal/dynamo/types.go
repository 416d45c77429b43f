package dynamo

import "fmt"

// SearchControl tells the engine what the broad-phase collaborator did this step.
type SearchControl int

const (
	// SearchInactive means neighbor data is never refreshed; cached wall geometry is trusted as is.
	SearchInactive SearchControl = iota
	// SearchSkipped means search is active but did not run this step; wall contacts are re-validated.
	SearchSkipped
	// SearchPerformed means neighbor lists and wall geometry were rebuilt this step.
	SearchPerformed
)

func (s SearchControl) String() string {
	switch s {
	case SearchInactive:
		return "inactive"
	case SearchSkipped:
		return "skipped"
	case SearchPerformed:
		return "performed"
	default:
		return fmt.Sprintf("SearchControl(%d)", int(s))
	}
}

// DiagnosticKind classifies a recoverable condition.
type DiagnosticKind int

const (
	DiagCoincidentCenters DiagnosticKind = iota
	DiagDegenerateFace
	DiagAsymmetricNeighbor
	DiagRollingOverflow
	DiagSelfNeighbor
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagCoincidentCenters:
		return "coincident-centers"
	case DiagDegenerateFace:
		return "degenerate-face"
	case DiagAsymmetricNeighbor:
		return "asymmetric-neighbor"
	case DiagRollingOverflow:
		return "rolling-overflow"
	case DiagSelfNeighbor:
		return "self-neighbor"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic records a contact that was skipped or degraded during a step.
// Neighbor is a particle ID for ball contacts and a face ID for wall contacts.
type Diagnostic struct {
	Step     int
	Particle int
	Neighbor int
	Wall     bool
	Kind     DiagnosticKind
	Message  string
}

func (d Diagnostic) String() string {
	target := "particle"
	if d.Wall {
		target = "face"
	}
	return fmt.Sprintf("step %d: particle %d / %s %d: %s (%s)", d.Step, d.Particle, target, d.Neighbor, d.Kind, d.Message)
}
