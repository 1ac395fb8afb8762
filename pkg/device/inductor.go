package device

import (
	"github.com/monkey2000/spicy/pkg/matrix"
)

// Inductor is modelled as a current source holding its present current,
// flowing from v to u through the element.
type Inductor struct {
	BaseDevice
	Inductance float64
}

var _ TimeDependent = (*Inductor)(nil)

func NewInductor(id, u, v int, current, inductance float64) *Inductor {
	return &Inductor{
		BaseDevice: NewBaseDevice(KindInductor, id, u, v, current),
		Inductance: inductance,
	}
}

func (l *Inductor) Validate() error { return l.requirePositive("inductance", l.Inductance) }

func (l *Inductor) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(l.Name, branch); err != nil {
		return err
	}

	stampCurrentBranch(matrix, l.U, l.V, branch.Index)
	matrix.AddRHS(branch.Index, l.Value)
	return nil
}

func (l *Inductor) Current() float64 { return l.Value }

func (l *Inductor) UpdateState(solution []float64, _ int, status *CircuitStatus) float64 {
	vd := solution[l.V] - solution[l.U]
	l.Value += vd / l.Inductance * status.TimeStep
	return l.Value
}
