package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/san-kum/flightlab/internal/sim"
)

type ExportColumn struct {
	Name  string     `json:"name"`
	Width int        `json:"width"`
	Data  []*float64 `json:"data"`
}

type ExportAgent struct {
	Name    string         `json:"name"`
	Columns []ExportColumn `json:"columns"`
}

type ExportData struct {
	Metadata  *RunMetadata  `json:"metadata"`
	Results   *sim.Result   `json:"results"`
	Telemetry []ExportAgent `json:"telemetry"`
}

// ExportJSON writes a stored run as one JSON document. Values that JSON
// cannot carry (NaN, infinities) become null.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	res, err := s.LoadResults(runID)
	if err != nil {
		return err
	}
	archive, err := s.LoadTelemetry(runID)
	if err != nil {
		return err
	}

	data := ExportData{Metadata: meta, Results: res}
	for _, ag := range archive.Agents {
		ea := ExportAgent{Name: ag.Name}
		for _, c := range ag.Columns {
			ec := ExportColumn{Name: c.Name, Width: c.Width, Data: make([]*float64, len(c.Data))}
			for i := range c.Data {
				if !math.IsNaN(c.Data[i]) && !math.IsInf(c.Data[i], 0) {
					ec.Data[i] = &c.Data[i]
				}
			}
			ea.Columns = append(ea.Columns, ec)
		}
		data.Telemetry = append(data.Telemetry, ea)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies one agent's CSV log to w.
func (s *Store) ExportCSV(runID, agent string, w io.Writer) error {
	p, err := s.AgentCSV(runID, agent)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
