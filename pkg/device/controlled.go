package device

import (
	"fmt"

	"github.com/monkey2000/spicy/pkg/matrix"
)

// VCVS forces x[u] - x[v] = gain * (x[refU] - x[refV]).
type VCVS struct {
	BaseDevice
	RefU int
	RefV int
}

func NewVCVS(id, u, v int, gain float64, refU, refV int) *VCVS {
	return &VCVS{BaseDevice: NewBaseDevice(KindVCVS, id, u, v, gain), RefU: refU, RefV: refV}
}

func (e *VCVS) GetNodes() []int { return []int{e.U, e.V, e.RefU, e.RefV} }

func (e *VCVS) Validate() error { return validateRefNodes(&e.BaseDevice, e.RefU, e.RefV) }

func (e *VCVS) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(e.Name, branch); err != nil {
		return err
	}

	p := branch.Index
	stampVoltageBranch(matrix, e.U, e.V, p)
	matrix.AddElement(p, e.RefU, -e.Value)
	matrix.AddElement(p, e.RefV, e.Value)
	return nil
}

// VCCS delivers gm * (x[refU] - x[refV]) into u.
type VCCS struct {
	BaseDevice
	RefU int
	RefV int
}

func NewVCCS(id, u, v int, gm float64, refU, refV int) *VCCS {
	return &VCCS{BaseDevice: NewBaseDevice(KindVCCS, id, u, v, gm), RefU: refU, RefV: refV}
}

func (g *VCCS) GetNodes() []int { return []int{g.U, g.V, g.RefU, g.RefV} }

func (g *VCCS) Validate() error { return validateRefNodes(&g.BaseDevice, g.RefU, g.RefV) }

func (g *VCCS) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkBranch(g.Name, branch); err != nil {
		return err
	}

	p := branch.Index
	stampCurrentBranch(matrix, g.U, g.V, p)
	matrix.AddElement(p, g.RefU, -g.Value)
	matrix.AddElement(p, g.RefV, g.Value)
	return nil
}

// CCVS forces x[u] - x[v] = r * ic, ic being the current through Ref.
type CCVS struct {
	BaseDevice
	Ref string
}

var _ Controlled = (*CCVS)(nil)

func NewCCVS(id, u, v int, transresistance float64, ref string) *CCVS {
	return &CCVS{BaseDevice: NewBaseDevice(KindCCVS, id, u, v, transresistance), Ref: ref}
}

func (h *CCVS) ControlName() string { return h.Ref }

func (h *CCVS) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkControl(h.Name, branch); err != nil {
		return err
	}

	p := branch.Index
	stampVoltageBranch(matrix, h.U, h.V, p)
	matrix.AddElement(p, branch.Control, -h.Value*branch.Sign)
	return nil
}

// CCCS delivers beta * ic into u, ic being the current through Ref.
type CCCS struct {
	BaseDevice
	Ref string
}

var _ Controlled = (*CCCS)(nil)

func NewCCCS(id, u, v int, gain float64, ref string) *CCCS {
	return &CCCS{BaseDevice: NewBaseDevice(KindCCCS, id, u, v, gain), Ref: ref}
}

func (f *CCCS) ControlName() string { return f.Ref }

func (f *CCCS) Stamp(matrix matrix.DeviceMatrix, branch Branch) error {
	if err := checkControl(f.Name, branch); err != nil {
		return err
	}

	p := branch.Index
	stampCurrentBranch(matrix, f.U, f.V, p)
	matrix.AddElement(p, branch.Control, -f.Value*branch.Sign)
	return nil
}

func validateRefNodes(d *BaseDevice, refU, refV int) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if refU < 0 || refV < 0 {
		return &InvalidElementError{Name: d.Name, Reason: fmt.Sprintf("negative controlling node (%d, %d)", refU, refV)}
	}
	return nil
}

func checkControl(name string, branch Branch) error {
	if err := checkBranch(name, branch); err != nil {
		return err
	}
	if branch.Control < 0 || branch.Sign == 0 {
		return fmt.Errorf("%s: controlling current not resolved", name)
	}
	return nil
}
