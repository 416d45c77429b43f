// Package storage keeps finished runs on disk. Each run is a directory with
// metadata.json, the scene as config.yaml, the sampled metric series as
// series.csv and, when requested, checkpoint.json.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Stiffness   string             `json:"stiffness"`
	PairMode    string             `json:"pair_mode"`
	Particles   int                `json:"particles"`
	Faces       int                `json:"faces"`
	Steps       int                `json:"steps"`
	FinalTime   float64            `json:"final_time"`
	Diagnostics int                `json:"diagnostics"`
	Errors      []string           `json:"errors,omitempty"`
	ResumedFrom string             `json:"resumed_from,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Series is the sampled metric history of a run.
type Series struct {
	Names  []string
	Times  []float64
	Values map[string][]float64
}

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// Save writes a finished run and returns its ID.
func (s *Store) Save(cfg *config.Config, particles, faces int, resumedFrom string, result *sim.Result) (string, error) {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(cfg.Scene)
	if name == "" {
		name = "run"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := s.runDir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scene:       cfg.Scene,
		Timestamp:   now,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Stiffness:   cfg.Contact.Stiffness,
		PairMode:    cfg.Contact.PairMode,
		Particles:   particles,
		Faces:       faces,
		Steps:       result.StepsTaken,
		FinalTime:   result.FinalTime,
		Diagnostics: len(result.Diagnostics),
		ResumedFrom: resumedFrom,
		Metrics:     result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, "config.yaml"), cfg); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, "series.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSeries(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	names := make([]string, 0, len(result.Series))
	for name := range result.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}

	for i, t := range result.Times {
		row := []string{strconv.FormatFloat(t, 'g', 10, 64)}
		for _, name := range names {
			val := 0.0
			if vals := result.Series[name]; i < len(vals) {
				val = vals[i]
			}
			row = append(row, strconv.FormatFloat(val, 'g', 10, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadConfig reads the scene a run was started from.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.runDir(runID), "config.yaml"))
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.runDir(runID), "series.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	series := &Series{Values: make(map[string][]float64)}
	if len(records) == 0 {
		return series, nil
	}

	header := records[0]
	if len(header) > 0 {
		series.Names = header[1:]
	}

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		series.Times = append(series.Times, t)

		for j, name := range series.Names {
			val := 0.0
			if j+1 < len(record) {
				if v, err := strconv.ParseFloat(record[j+1], 64); err == nil {
					val = v
				}
			}
			series.Values[name] = append(series.Values[name], val)
		}
	}

	return series, nil
}
