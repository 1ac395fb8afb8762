package device

import (
	"github.com/monkey2000/spicy/pkg/matrix"
)

// Capacitor is modelled as a voltage source holding its present voltage.
// Its branch unknown is the current it delivers into u, which the transient
// loop integrates into the next voltage.
type Capacitor struct {
	BaseDevice
	Capacitance float64
}

var _ TimeDependent = (*Capacitor)(nil)

func NewCapacitor(id, u, v int, voltage, capacitance float64) *Capacitor {
	return &Capacitor{
		BaseDevice:  NewBaseDevice(KindCapacitor, id, u, v, voltage),
		Capacitance: capacitance,
	}
}

func (c *Capacitor) Validate() error { return c.requirePositive("capacitance", c.Capacitance) }

func (c *Capacitor) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(c.Name, branch); err != nil {
		return err
	}

	stampVoltageBranch(matrix, c.U, c.V, branch.Index)
	matrix.AddRHS(branch.Index, c.Value)
	return nil
}

// Voltage returns the present capacitor voltage x[u] - x[v].
func (c *Capacitor) Voltage() float64 { return c.Value }

func (c *Capacitor) UpdateState(solution []float64, slot int, status *CircuitStatus) float64 {
	c.Value -= solution[slot] / c.Capacitance * status.TimeStep
	return c.Value
}
