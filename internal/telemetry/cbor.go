package telemetry

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("telemetry: cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("telemetry: cbor decoder: " + err.Error())
	}
}

// AgentLog is one agent's columns inside an Archive.
type AgentLog struct {
	Name    string   `cbor:"name"`
	Columns []Column `cbor:"columns"`
}

// Archive is the binary form of a whole run's telemetry.
type Archive struct {
	Dt     float64    `cbor:"dt"`
	Agents []AgentLog `cbor:"agents"`
}

func (a *Archive) Add(name string, l *Log) {
	a.Agents = append(a.Agents, AgentLog{Name: name, Columns: l.Snapshot()})
}

func (a *Archive) Log(name string) (*Log, bool) {
	for _, ag := range a.Agents {
		if ag.Name == name {
			return FromColumns(ag.Columns), true
		}
	}
	return nil, false
}

func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

func (a *Archive) Encode(w io.Writer) error {
	if err := encMode.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	return nil
}

func DecodeArchive(r io.Reader) (*Archive, error) {
	var a Archive
	if err := decMode.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return &a, nil
}
