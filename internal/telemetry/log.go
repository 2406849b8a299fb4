package telemetry

import (
	"errors"
	"fmt"
)

var (
	ErrWidth   = errors.New("telemetry: column width changed")
	ErrEmpty   = errors.New("telemetry: no values to append")
	ErrUnknown = errors.New("telemetry: unknown column")
)

// Column stores one field for every tick, row-major: sample i is
// Data[i*Width : (i+1)*Width].
type Column struct {
	Name  string    `cbor:"name" json:"name"`
	Width int       `cbor:"width" json:"width"`
	Data  []float64 `cbor:"data" json:"data"`
}

func (c *Column) Rows() int {
	if c.Width == 0 {
		return 0
	}
	return len(c.Data) / c.Width
}

func (c *Column) Row(i int) []float64 {
	return c.Data[i*c.Width : (i+1)*c.Width]
}

// Log is one agent's telemetry: an ordered set of columns that grow by one
// row per tick the agent flies.
type Log struct {
	cols  []*Column
	index map[string]int
}

func NewLog() *Log {
	return &Log{index: make(map[string]int)}
}

func (l *Log) Append(name string, values ...float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	i, ok := l.index[name]
	if !ok {
		l.index[name] = len(l.cols)
		l.cols = append(l.cols, &Column{Name: name, Width: len(values)})
		i = len(l.cols) - 1
	}
	c := l.cols[i]
	if c.Width != len(values) {
		return fmt.Errorf("%w: %s has width %d, got %d values", ErrWidth, name, c.Width, len(values))
	}
	c.Data = append(c.Data, values...)
	return nil
}

// Len is the number of recorded ticks.
func (l *Log) Len() int {
	if c := l.Column(KeyTime); c != nil {
		return c.Rows()
	}
	return 0
}

func (l *Log) Column(name string) *Column {
	i, ok := l.index[name]
	if !ok {
		return nil
	}
	return l.cols[i]
}

func (l *Log) Columns() []*Column {
	return l.cols
}

// Scalar returns a width-1 column as a plain series.
func (l *Log) Scalar(name string) ([]float64, error) {
	c := l.Column(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if c.Width != 1 {
		return nil, fmt.Errorf("%w: %s has width %d", ErrWidth, name, c.Width)
	}
	return c.Data, nil
}

// Tail returns the last n samples of a scalar column, or fewer if the
// column is shorter.
func (l *Log) Tail(name string, n int) []float64 {
	s, err := l.Scalar(name)
	if err != nil {
		return nil
	}
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// FromColumns rebuilds a Log from decoded columns.
func FromColumns(cols []Column) *Log {
	l := NewLog()
	for i := range cols {
		c := cols[i]
		l.index[c.Name] = len(l.cols)
		l.cols = append(l.cols, &c)
	}
	return l
}

// Snapshot copies the columns out, for encoding.
func (l *Log) Snapshot() []Column {
	out := make([]Column, len(l.cols))
	for i, c := range l.cols {
		out[i] = Column{Name: c.Name, Width: c.Width, Data: append([]float64(nil), c.Data...)}
	}
	return out
}
