package control

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/flightlab/internal/dynamo"
)

// LQR is full-state feedback u = -K (x - target) with a precomputed gain.
type LQR struct {
	K      *mat.Dense
	Target dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) (*LQR, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty gain", dynamo.ErrDimensionMismatch)
	}
	cols := len(k[0])
	data := make([]float64, 0, len(k)*cols)
	for i, row := range k {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: gain row %d has %d columns, want %d", dynamo.ErrDimensionMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	if len(target) != cols {
		return nil, fmt.Errorf("%w: target has %d entries, gain expects %d", dynamo.ErrDimensionMismatch, len(target), cols)
	}
	return &LQR{K: mat.NewDense(len(k), cols, data), Target: target.Clone()}, nil
}

func (l *LQR) Compute(x dynamo.State) dynamo.Control {
	rows, cols := l.K.Dims()
	e := make([]float64, cols)
	for j := range e {
		if j < len(x) {
			e[j] = x[j] - l.Target[j]
		}
	}
	var u mat.VecDense
	u.MulVec(l.K, mat.NewVecDense(cols, e))
	out := make(dynamo.Control, rows)
	for i := range out {
		out[i] = -u.AtVec(i)
	}
	return out
}

// attitudeGains act on [roll, roll rate, yaw error, yaw rate] and return
// [tau_x, tau_z]. Tuned for the default quadrotor at dt = 0.04.
var attitudeGains = [][]float64{
	{0.02, 0.006, 0, 0},
	{0, 0, 0.01, 0.005},
}

func NewAttitudeLQR() *LQR {
	l, err := NewLQR(attitudeGains, dynamo.State{0, 0, 0, 0})
	if err != nil {
		panic(err)
	}
	return l
}
