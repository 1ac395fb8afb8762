package device

import (
	"github.com/monkey2000/spicy/pkg/matrix"
)

type Resistor struct {
	BaseDevice
}

func NewResistor(id, u, v int, value float64) *Resistor {
	return &Resistor{BaseDevice: NewBaseDevice(KindResistor, id, u, v, value)}
}

func (r *Resistor) Validate() error { return r.requirePositive("resistance", r.Value) }

func (r *Resistor) Stamp(matrix matrix.DeviceMatrix, _ Branch) error {
	n1, n2 := r.U, r.V
	g := 1.0 / r.Value // Conductance. G = 1/R

	matrix.AddElement(n1, n1, g)
	matrix.AddElement(n1, n2, -g)
	matrix.AddElement(n2, n1, -g)
	matrix.AddElement(n2, n2, g)

	return nil
}

// StampSense adds the row x[q] = (x[u] - x[v]) / R so that unknown q carries
// the current through the resistor for a current-controlled source.
func (r *Resistor) StampSense(matrix matrix.DeviceMatrix, q int) {
	g := 1.0 / r.Value
	matrix.AddElement(q, q, 1)
	matrix.AddElement(q, r.U, -g)
	matrix.AddElement(q, r.V, g)
}

// Current returns the current flowing from u to v for a solved system.
func (r *Resistor) Current(solution []float64) float64 {
	return (solution[r.U] - solution[r.V]) / r.Value
}
