package device

import (
	"github.com/monkey2000/spicy/pkg/matrix"
)

type CurrentSource struct {
	BaseDevice
}

func NewCurrentSource(id, u, v int, value float64) *CurrentSource {
	return &CurrentSource{BaseDevice: NewBaseDevice(KindCurrentSource, id, u, v, value)}
}

// Stamp drives the source current out of v and into u through its branch
// unknown instead of stamping the RHS of the node rows directly.
func (i *CurrentSource) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(i.Name, branch); err != nil {
		return err
	}

	stampCurrentBranch(matrix, i.U, i.V, branch.Index)
	matrix.AddRHS(branch.Index, i.Value)
	return nil
}

func (i *CurrentSource) SetValue(value float64) { i.Value = value }
