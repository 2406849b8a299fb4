package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/sim"
	"github.com/san-kum/flightlab/internal/telemetry"
)

const (
	metadataFile  = "metadata.json"
	resultsFile   = "results.json"
	configFile    = "config.yaml"
	telemetryFile = "telemetry.cbor.zst"
	agentsDir     = "agents"
)

var ErrRunNotFound = errors.New("run not found")

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
	ID         string           `json:"id"`
	Label      string           `json:"label,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Seed       int64            `json:"seed"`
	Dt         float64          `json:"dt"`
	Ticks      int              `json:"ticks"`
	Time       float64          `json:"time"`
	Integrator string           `json:"integrator"`
	Agents     []string         `json:"agents"`
	Finished   int              `json:"finished"`
	Failed     int              `json:"failed"`
	Course     []gates.GateSpec `json:"course"`
}

// NewRunID is a sortable timestamp plus a short random suffix.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("%s_%s", now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// Save writes one finished episode: metadata, results, the config it ran
// with, one CSV per agent and the compressed telemetry archive.
func (s *Store) Save(label string, cfg *config.Config, course gates.Course, res *sim.Result) (string, error) {
	now := time.Now()
	runID := NewRunID(now)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(filepath.Join(runDir, agentsDir), 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Label:      label,
		Timestamp:  now,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Ticks:      res.Ticks,
		Time:       res.Time,
		Integrator: cfg.World.Integrator,
		Course:     course.Specs(),
	}
	for _, a := range res.Agents {
		meta.Agents = append(meta.Agents, a.Name)
		switch a.Status {
		case sim.Finished:
			meta.Finished++
		case sim.Failed:
			meta.Failed++
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, resultsFile), res); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}

	archive := &telemetry.Archive{Dt: cfg.Dt}
	for _, a := range res.Agents {
		if a.Telemetry == nil {
			continue
		}
		archive.Add(a.Name, a.Telemetry)
		if err := writeCSV(filepath.Join(runDir, agentsDir, a.Name+".csv"), a.Telemetry); err != nil {
			return "", err
		}
	}
	if err := writeArchive(filepath.Join(runDir, telemetryFile), archive); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns stored runs, newest first. Directories without readable
// metadata are skipped.
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
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) path(runID, name string) (string, error) {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	p, err := s.path(runID, metadataFile)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := readJSON(p, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadResults returns the stored result. Telemetry is not attached; use
// LoadTelemetry for that.
func (s *Store) LoadResults(runID string) (*sim.Result, error) {
	p, err := s.path(runID, resultsFile)
	if err != nil {
		return nil, err
	}
	var res sim.Result
	if err := readJSON(p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	p, err := s.path(runID, configFile)
	if err != nil {
		return nil, err
	}
	return config.Load(p)
}

func (s *Store) LoadTelemetry(runID string) (*telemetry.Archive, error) {
	p, err := s.path(runID, telemetryFile)
	if err != nil {
		return nil, err
	}
	return readArchive(p)
}

// AgentCSV is the path of one agent's CSV log.
func (s *Store) AgentCSV(runID, agent string) (string, error) {
	p, err := s.path(runID, filepath.Join(agentsDir, agent+".csv"))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("no telemetry for agent %s in run %s", agent, runID)
	}
	return p, nil
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

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeCSV(path string, l *telemetry.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.WriteCSV(f)
}

func writeArchive(path string, a *telemetry.Archive) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := a.Encode(zw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func readArchive(path string) (*telemetry.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	return telemetry.DecodeArchive(zr)
}
