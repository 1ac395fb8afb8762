package device

import (
	"fmt"
	"strconv"

	"github.com/monkey2000/spicy/pkg/matrix"
)

type Device interface {
	GetName() string
	GetKind() Kind
	GetID() int
	Terminals() (u, v int)
	GetNodes() []int
	GetValue() float64
	Validate() error
	Stamp(matrix matrix.DeviceMatrix, branch Branch) error
}

// TimeDependent devices own a present value that the transient loop advances
// once per step. UpdateState consumes the solution of the step and returns the
// new right-hand side entry for the device's branch slot.
type TimeDependent interface {
	Device
	UpdateState(solution []float64, slot int, status *CircuitStatus) float64
}

// Controlled is implemented by current-controlled sources.
type Controlled interface {
	Device
	ControlName() string
}

// Branch locates the auxiliary unknowns of one device in the MNA system.
type Branch struct {
	Index   int     // own branch unknown, -1 for resistors
	Control int     // unknown carrying the controlling current
	Sign    float64 // orientation of the controlling current
}

var NoBranch = Branch{Index: -1, Control: -1}

type Kind int

const (
	KindResistor Kind = iota
	KindVoltageSource
	KindCurrentSource
	KindVCVS
	KindVCCS
	KindCCVS
	KindCCCS
	KindCapacitor
	KindInductor
	KindAC
)

var kindPrefix = [...]string{
	KindResistor:      "R",
	KindVoltageSource: "VS",
	KindCurrentSource: "CS",
	KindVCVS:          "VCVS",
	KindVCCS:          "VCCS",
	KindCCVS:          "CCVS",
	KindCCCS:          "CCCS",
	KindCapacitor:     "C",
	KindInductor:      "L",
	KindAC:            "AC",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindPrefix) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindPrefix[k]
}

// ParseKind maps a netlist prefix such as "VCVS" to its kind.
func ParseKind(prefix string) (Kind, bool) {
	for k, p := range kindPrefix {
		if p == prefix {
			return Kind(k), true
		}
	}
	return 0, false
}

// HasBranch reports whether devices of this kind own an auxiliary unknown.
func (k Kind) HasBranch() bool { return k != KindResistor }

// Name composes the registry key of a device, e.g. "VCVS3".
func Name(kind Kind, id int) string {
	return kind.String() + strconv.Itoa(id)
}

type CircuitStatus struct {
	Time     float64 // time of the solution being consumed
	TimeStep float64
}

type BaseDevice struct {
	Name  string
	Kind  Kind
	ID    int
	U     int
	V     int
	Value float64
}

func NewBaseDevice(kind Kind, id, u, v int, value float64) BaseDevice {
	return BaseDevice{
		Name:  Name(kind, id),
		Kind:  kind,
		ID:    id,
		U:     u,
		V:     v,
		Value: value,
	}
}

func (d *BaseDevice) GetName() string { return d.Name }

func (d *BaseDevice) GetKind() Kind { return d.Kind }

func (d *BaseDevice) GetID() int { return d.ID }

func (d *BaseDevice) Terminals() (int, int) { return d.U, d.V }

func (d *BaseDevice) GetNodes() []int { return []int{d.U, d.V} }

func (d *BaseDevice) GetValue() float64 { return d.Value }

func (d *BaseDevice) Validate() error {
	if d.ID < 0 {
		return &InvalidElementError{Name: d.Name, Reason: fmt.Sprintf("negative identity %d", d.ID)}
	}
	if d.U < 0 || d.V < 0 {
		return &InvalidElementError{Name: d.Name, Reason: fmt.Sprintf("negative node index (%d, %d)", d.U, d.V)}
	}
	return nil
}

func (d *BaseDevice) requirePositive(what string, value float64) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if !(value > 0) {
		return &InvalidElementError{Name: d.Name, Reason: fmt.Sprintf("%s must be positive, got %g", what, value)}
	}
	return nil
}

func stampVoltageBranch(m matrix.DeviceMatrix, u, v, p int) {
	// x[p] is the current the branch delivers into u
	m.AddElement(u, p, -1)
	m.AddElement(v, p, 1)
	// x[u] - x[v] = ...
	m.AddElement(p, u, 1)
	m.AddElement(p, v, -1)
}

func stampCurrentBranch(m matrix.DeviceMatrix, u, v, p int) {
	m.AddElement(u, p, -1)
	m.AddElement(v, p, 1)
	m.AddElement(p, p, 1)
}

func checkBranch(name string, branch Branch) error {
	if branch.Index < 0 {
		return fmt.Errorf("%s: no branch unknown assigned", name)
	}
	return nil
}
