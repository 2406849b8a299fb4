package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/flightlab/internal/config"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/sandbox"
	"github.com/san-kum/flightlab/internal/sim"
	"github.com/san-kum/flightlab/internal/telemetry"
)

func fixture(t *testing.T) (*config.Config, gates.Course, *sim.Result) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Seed = 42

	course, err := gates.CourseFromSpec([]gates.GateSpec{
		{Position: [3]float64{2, 0, 1}, Radius: 1, Width: 0.5},
		{Position: [3]float64{4, 0, 1}, Radius: 1, Width: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	l := telemetry.NewLog()
	l.Append("t", 0)
	l.Append("t", 0.04)
	l.Append("alt_err", math.NaN())
	l.Append("alt_err", 0.5)

	res := &sim.Result{
		Ticks: 2,
		Time:  0.08,
		Gates: 2,
		Agents: []sim.AgentResult{
			{Name: "alice", Status: sim.Finished, FinishTick: 1, FinishTime: 0.04, Metrics: map[string]float64{"path_length": 1.5}, Telemetry: l},
			{Name: "bob", Status: sim.Failed, Failure: sandbox.RunFault, Reason: "boom", FinishTick: -1, FinishTime: -1, Telemetry: telemetry.NewLog()},
		},
	}
	return cfg, course, res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, course, res := fixture(t)

	runID, err := st.Save("test", cfg, course, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Label != "test" {
		t.Errorf("expected label 'test', got '%s'", meta.Label)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Finished != 1 || meta.Failed != 1 {
		t.Errorf("expected 1 finished and 1 failed, got %d and %d", meta.Finished, meta.Failed)
	}
	if len(meta.Course) != 2 {
		t.Errorf("expected 2 gates in metadata, got %d", len(meta.Course))
	}

	back, err := st.LoadResults(runID)
	if err != nil {
		t.Fatalf("load results failed: %v", err)
	}
	bob, ok := back.Agent("bob")
	if !ok || bob.Failure != sandbox.RunFault || bob.Status != sim.Failed {
		t.Errorf("expected bob failed with run_fault, got %+v", bob)
	}

	loaded, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if loaded.Seed != 42 {
		t.Errorf("expected seed 42 in stored config, got %d", loaded.Seed)
	}

	archive, err := st.LoadTelemetry(runID)
	if err != nil {
		t.Fatalf("load telemetry failed: %v", err)
	}
	alice, ok := archive.Log("alice")
	if !ok {
		t.Fatal("expected alice telemetry")
	}
	errs, _ := alice.Scalar("alt_err")
	if len(errs) != 2 || !math.IsNaN(errs[0]) || errs[1] != 0.5 {
		t.Errorf("expected [NaN 0.5], got %v", errs)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", runs, err)
	}

	cfg, course, res := fixture(t)
	for i := 0; i < 2; i++ {
		if _, err := st.Save("test", cfg, course, res); err != nil {
			t.Fatal(err)
		}
	}
	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("expected distinct run ids")
	}
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTelemetry("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	cfg, course, res := fixture(t)
	runID, err := st.Save("test", cfg, course, res)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(runID, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.Metadata.ID != runID {
		t.Errorf("expected id %s, got %s", runID, data.Metadata.ID)
	}
	if len(data.Telemetry) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(data.Telemetry))
	}
	var alt *ExportColumn
	for i, c := range data.Telemetry[0].Columns {
		if c.Name == "alt_err" {
			alt = &data.Telemetry[0].Columns[i]
		}
	}
	if alt == nil {
		t.Fatal("expected alt_err column")
	}
	if alt.Data[0] != nil || alt.Data[1] == nil || *alt.Data[1] != 0.5 {
		t.Errorf("expected [null 0.5], got %v", alt.Data)
	}
}

func TestExportCSV(t *testing.T) {
	st := New(t.TempDir())
	cfg, course, res := fixture(t)
	runID, err := st.Save("test", cfg, course, res)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportCSV(runID, "alice", &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header and 2 rows, got %d lines", len(lines))
	}
	if err := st.ExportCSV(runID, "carol", &buf); err == nil {
		t.Error("expected error for unknown agent")
	}
}
