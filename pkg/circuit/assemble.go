package circuit

import (
	"errors"
	"fmt"

	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/matrix"
)

// DynamicSlot binds a time-dependent device to the branch row whose
// right-hand side it rewrites every step.
type DynamicSlot struct {
	Device device.TimeDependent
	Slot   int
}

// System is the assembled MNA system of a circuit. Unknowns 0..NodeCount-1
// are node voltages, the rest are branch unknowns.
type System struct {
	Circuit   *Circuit
	Matrix    *matrix.CircuitMatrix
	NodeCount int
	Size      int
	Branch    map[string]int // device name -> branch unknown
	Control   map[string]int // current-controlled source -> controlling current unknown
	Dynamic   []DynamicSlot
	Devices   []device.Device // stamped devices in discovery order
	Warnings  []error
}

// B returns a copy of the assembled right-hand side.
func (s *System) B() []float64 {
	return append([]float64(nil), s.Matrix.RHS()...)
}

// BranchCurrent returns the current through a branch device from u to v.
func (s *System) BranchCurrent(name string, solution []float64) (float64, bool) {
	p, ok := s.Branch[name]
	if !ok {
		return 0, false
	}
	return -solution[p], true
}

// Assemble builds the MNA matrix and right-hand side of ckt. Elements that
// cannot be stamped are skipped with a warning; they never touch the matrix.
func Assemble(ckt *Circuit) (*System, error) {
	logger := ckt.Logger()
	if ckt.Len() == 0 {
		return nil, &AssemblyError{Circuit: ckt.Name(), Err: errors.New("circuit has no elements")}
	}

	n := ckt.NodeCount()
	sys := &System{
		Circuit:   ckt,
		NodeCount: n,
		Branch:    make(map[string]int),
		Control:   make(map[string]int),
	}

	rejected := resolveControls(ckt, sys)

	// Discovery order: nodes ascending, devices leaving each node in insertion order
	next := n
	for node := range n {
		for dev := range ckt.Leaving(node) {
			if rejected[dev.GetName()] {
				continue
			}
			sys.Devices = append(sys.Devices, dev)
			if !dev.GetKind().HasBranch() {
				continue
			}
			sys.Branch[dev.GetName()] = next
			next++
			if ref, ok := senseResistor(ckt, dev); ok {
				sys.Control[dev.GetName()] = next
				logger.Debug("controlling current routed through resistor", "element", dev.GetName(), "ref", ref.GetName(), "index", next)
				next++
			}
		}
	}
	sys.Size = next

	mat := matrix.NewMatrix(sys.Size)
	mat.SetLogger(logger)
	for _, dev := range sys.Devices {
		branch := sys.branchOf(ckt, dev)
		if err := dev.Stamp(mat, branch); err != nil {
			return nil, &AssemblyError{Circuit: ckt.Name(), Size: sys.Size, Err: fmt.Errorf("stamping device %s: %w", dev.GetName(), err)}
		}
		if ref, ok := senseResistor(ckt, dev); ok {
			ref.StampSense(mat, branch.Control)
		}
		if td, ok := dev.(device.TimeDependent); ok {
			sys.Dynamic = append(sys.Dynamic, DynamicSlot{Device: td, Slot: branch.Index})
		}
	}
	mat.Ground()
	sys.Matrix = mat

	for node := 1; node < n; node++ {
		if !sys.touches(node) {
			logger.Warn("node is not connected to any element", "node", node)
		}
	}

	logger.Debug("assembled circuit", "circuit", ckt.Name(), "nodes", n, "branches", sys.Size-n, "size", sys.Size)
	return sys, nil
}

// resolveControls walks devices in insertion order, which places every
// controlling element before the sources it controls, and rejects
// current-controlled sources whose control cannot be read.
func resolveControls(ckt *Circuit, sys *System) map[string]bool {
	rejected := make(map[string]bool)
	for _, dev := range ckt.Devices() {
		cd, ok := dev.(device.Controlled)
		if !ok {
			continue
		}
		ref, exists := ckt.Lookup(cd.ControlName())
		if !exists || rejected[cd.ControlName()] || !providesCurrent(ref) {
			err := &UnresolvedReferenceError{Name: dev.GetName(), Ref: cd.ControlName()}
			rejected[dev.GetName()] = true
			sys.Warnings = append(sys.Warnings, err)
			ckt.Logger().Warn("skipping element", "element", dev.GetName(), "error", err)
		}
	}
	return rejected
}

// providesCurrent reports whether the current through dev can be read from
// the solution: resistors through a sense row, everything else through its
// own branch unknown.
func providesCurrent(dev device.Device) bool {
	switch dev.(type) {
	case *device.Resistor:
		return true
	}
	return dev.GetKind().HasBranch()
}

func senseResistor(ckt *Circuit, dev device.Device) (*device.Resistor, bool) {
	cd, ok := dev.(device.Controlled)
	if !ok {
		return nil, false
	}
	ref, ok := ckt.Lookup(cd.ControlName())
	if !ok {
		return nil, false
	}
	r, ok := ref.(*device.Resistor)
	return r, ok
}

func (s *System) branchOf(ckt *Circuit, dev device.Device) device.Branch {
	p, ok := s.Branch[dev.GetName()]
	if !ok {
		return device.NoBranch
	}
	branch := device.Branch{Index: p, Control: -1}

	cd, ok := dev.(device.Controlled)
	if !ok {
		return branch
	}
	if q, ok := s.Control[dev.GetName()]; ok {
		// (x[u] - x[v]) / R, already oriented from u to v
		branch.Control, branch.Sign = q, 1
		return branch
	}
	if q, ok := s.Branch[cd.ControlName()]; ok {
		// the branch unknown flows from v to u
		branch.Control, branch.Sign = q, -1
	}
	return branch
}

func (s *System) touches(node int) bool {
	for _, dev := range s.Devices {
		for _, n := range dev.GetNodes() {
			if n == node {
				return true
			}
		}
	}
	return false
}
