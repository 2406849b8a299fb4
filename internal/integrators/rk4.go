package integrators

import "github.com/san-kum/flightlab/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. When the system is a
// dynamo.Projector every stage state and the result are projected back onto
// its constraint before use, so a quaternion never drifts off the unit
// sphere between stages.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// stageNodes are the time offsets and slopes feeding stages two to four.
var stageNodes = [3]float64{0.5, 0.5, 1}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))
	proj, _ := dyn.(dynamo.Projector)

	copy(r.k[0], dyn.Derive(x, u, t))
	for s, c := range stageNodes {
		advance(r.stage, x, r.k[s], c*dt)
		if proj != nil {
			proj.Project(r.stage)
		}
		copy(r.k[s+1], dyn.Derive(r.stage, u, t+c*dt))
	}

	next := make(dynamo.State, len(x))
	h := dt / 6
	for i := range x {
		next[i] = x[i] + h*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	if proj != nil {
		proj.Project(next)
	}
	return next
}

// advance writes x + h*k into dst.
func advance(dst, x, k dynamo.State, h float64) {
	for i := range x {
		dst[i] = x[i] + h*k[i]
	}
}
