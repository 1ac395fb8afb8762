package device

import (
	"math"

	"github.com/monkey2000/spicy/pkg/matrix"
)

type VoltageSource struct {
	BaseDevice
}

func NewVoltageSource(id, u, v int, value float64) *VoltageSource {
	return &VoltageSource{BaseDevice: NewBaseDevice(KindVoltageSource, id, u, v, value)}
}

func (vs *VoltageSource) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(vs.Name, branch); err != nil {
		return err
	}

	// x[u] - x[v] = V
	stampVoltageBranch(matrix, vs.U, vs.V, branch.Index)
	matrix.AddRHS(branch.Index, vs.Value)
	return nil
}

func (vs *VoltageSource) SetValue(value float64) { vs.Value = value }

// ACSource forces x[u] - x[v] = amplitude * cos(omega * t). The right-hand
// side is rewritten every step; the matrix row is the one of a voltage source.
type ACSource struct {
	BaseDevice
	Omega float64 // angular frequency (rad/s)
}

var _ TimeDependent = (*ACSource)(nil)

func NewACSource(id, u, v int, amplitude, omega float64) *ACSource {
	return &ACSource{
		BaseDevice: NewBaseDevice(KindAC, id, u, v, amplitude),
		Omega:      omega,
	}
}

func (ac *ACSource) GetVoltage(t float64) float64 {
	return ac.Value * math.Cos(ac.Omega*t)
}

func (ac *ACSource) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(ac.Name, branch); err != nil {
		return err
	}

	stampVoltageBranch(matrix, ac.U, ac.V, branch.Index)
	matrix.AddRHS(branch.Index, ac.GetVoltage(0))
	return nil
}

func (ac *ACSource) UpdateState(_ []float64, _ int, status *CircuitStatus) float64 {
	return ac.GetVoltage(status.Time)
}
