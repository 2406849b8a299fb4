package telemetry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	KeyTime       = "t"
	KeyGate       = "gate"
	KeyRunTime    = "run_time"
	KeyActuators  = "s"
	KeyMarkers    = "pos_markers"
	KeyRingPos    = "pos_ring"
	KeyRingDir    = "dir_ring"
	KeyIsLastRing = "is_last_ring"
)

var reserved = map[string]bool{}

func init() {
	for _, k := range ReservedKeys() {
		reserved[k] = true
	}
}

// ReservedKeys lists the columns every agent log carries, in order.
func ReservedKeys() []string {
	return []string{
		KeyTime,
		"p_x", "p_y", "p_z",
		"yaw", "pitch", "roll",
		"v_x", "v_y", "v_z",
		"w_x", "w_y", "w_z",
		KeyMarkers, KeyRingPos, KeyRingDir, KeyIsLastRing,
		"tau_x", "tau_y", "tau_z", "f_z",
		"tau_x_cmd", "tau_y_cmd", "tau_z_cmd", "f_z_cmd",
		KeyActuators, KeyGate, KeyRunTime,
	}
}

// Reserved reports whether name is a built-in column.
func Reserved(name string) bool { return reserved[name] }

// Record is one agent's tick. Velocities are in the body frame.
type Record struct {
	Time            float64
	Position        r3.Vec
	Roll            float64
	Pitch           float64
	Yaw             float64
	Velocity        r3.Vec
	AngularVelocity r3.Vec
	Markers         [2]r3.Vec
	RingPos         r3.Vec
	RingDir         r3.Vec
	IsLastRing      bool
	Requested       [4]float64
	Realized        [4]float64
	Actuators       []float64
	Gate            int
	RunTime         float64
}

func (l *Log) AppendRecord(r Record) error {
	b := 0.0
	if r.IsLastRing {
		b = 1
	}
	appends := []struct {
		name string
		vals []float64
	}{
		{KeyTime, []float64{r.Time}},
		{"p_x", []float64{r.Position.X}},
		{"p_y", []float64{r.Position.Y}},
		{"p_z", []float64{r.Position.Z}},
		{"yaw", []float64{r.Yaw}},
		{"pitch", []float64{r.Pitch}},
		{"roll", []float64{r.Roll}},
		{"v_x", []float64{r.Velocity.X}},
		{"v_y", []float64{r.Velocity.Y}},
		{"v_z", []float64{r.Velocity.Z}},
		{"w_x", []float64{r.AngularVelocity.X}},
		{"w_y", []float64{r.AngularVelocity.Y}},
		{"w_z", []float64{r.AngularVelocity.Z}},
		{KeyMarkers, []float64{
			r.Markers[0].X, r.Markers[0].Y, r.Markers[0].Z,
			r.Markers[1].X, r.Markers[1].Y, r.Markers[1].Z,
		}},
		{KeyRingPos, []float64{r.RingPos.X, r.RingPos.Y, r.RingPos.Z}},
		{KeyRingDir, []float64{r.RingDir.X, r.RingDir.Y, r.RingDir.Z}},
		{KeyIsLastRing, []float64{b}},
		{"tau_x", []float64{r.Realized[0]}},
		{"tau_y", []float64{r.Realized[1]}},
		{"tau_z", []float64{r.Realized[2]}},
		{"f_z", []float64{r.Realized[3]}},
		{"tau_x_cmd", []float64{r.Requested[0]}},
		{"tau_y_cmd", []float64{r.Requested[1]}},
		{"tau_z_cmd", []float64{r.Requested[2]}},
		{"f_z_cmd", []float64{r.Requested[3]}},
		{KeyActuators, r.Actuators},
		{KeyGate, []float64{float64(r.Gate)}},
		{KeyRunTime, []float64{r.RunTime}},
	}
	for _, a := range appends {
		if err := l.Append(a.name, a.vals...); err != nil {
			return err
		}
	}
	return nil
}

// Position returns the recorded position at row i.
func (l *Log) Position(i int) r3.Vec {
	get := func(name string) float64 {
		if c := l.Column(name); c != nil && i < c.Rows() {
			return c.Data[i]
		}
		return 0
	}
	return r3.Vec{X: get("p_x"), Y: get("p_y"), Z: get("p_z")}
}
