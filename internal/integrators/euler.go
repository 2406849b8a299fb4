package integrators

import (
	"fmt"

	"github.com/san-kum/flightlab/internal/dynamo"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	next := make(dynamo.State, len(x))
	advance(next, x, dyn.Derive(x, u, t), dt)
	if proj, ok := dyn.(dynamo.Projector); ok {
		proj.Project(next)
	}
	return next
}

// ByName resolves the integrators selectable from episode config.
func ByName(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "rk4":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}
