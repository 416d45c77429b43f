package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/wall"
)

// Checkpoint is the state a run can be resumed from.
type Checkpoint struct {
	Step      int                 `json:"step"`
	Time      float64             `json:"time"`
	Particles particle.Snapshot   `json:"particles"`
	Vertices  []wall.VertexRecord `json:"vertices,omitempty"`
}

func (s *Store) SaveCheckpoint(runID string, cp *Checkpoint) error {
	return writeJSON(filepath.Join(s.runDir(runID), "checkpoint.json"), cp)
}

func (s *Store) LoadCheckpoint(runID string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), "checkpoint.json"))
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
