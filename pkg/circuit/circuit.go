package circuit

import (
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/monkey2000/spicy/pkg/device"
)

// Circuit is the netlist model of one simulation: the registry of devices and
// the topology queries the assembler walks. It is owned by the caller; nothing
// in this module keeps a process-wide registry.
type Circuit struct {
	name    string
	devices []device.Device
	byName  map[string]device.Device
	busy    atomic.Bool
	logger  *slog.Logger
}

func New(name string) *Circuit {
	return &Circuit{
		name:    name,
		devices: make([]device.Device, 0),
		byName:  make(map[string]device.Device),
		logger:  slog.Default(),
	}
}

func (c *Circuit) SetLogger(logger *slog.Logger) { c.logger = logger }

func (c *Circuit) Logger() *slog.Logger { return c.logger }

func (c *Circuit) Name() string { return c.name }

// Add inserts a device. A duplicate (kind, id), a current-controlled source
// whose controlling element is not registered or an invalid element leaves the
// registry unchanged.
func (c *Circuit) Add(dev device.Device) error {
	if err := c.Lock(); err != nil {
		return err
	}
	defer c.Unlock()

	name := dev.GetName()
	if _, exists := c.byName[name]; exists {
		return &DuplicateElementError{Name: name}
	}
	if err := dev.Validate(); err != nil {
		return err
	}
	if cd, ok := dev.(device.Controlled); ok {
		if _, exists := c.byName[cd.ControlName()]; !exists {
			return &UnresolvedReferenceError{Name: name, Ref: cd.ControlName()}
		}
	}

	c.devices = append(c.devices, dev)
	c.byName[name] = dev
	return nil
}

func (c *Circuit) Lookup(name string) (device.Device, bool) {
	dev, ok := c.byName[name]
	return dev, ok
}

// NodeCount is one plus the largest node index any device touches, so ground
// is always counted and unused low indices are included.
func (c *Circuit) NodeCount() int {
	n := 0
	for _, dev := range c.devices {
		for _, node := range dev.GetNodes() {
			n = max(n, node)
		}
	}
	return n + 1
}

// Leaving yields the devices whose u terminal is node, in insertion order.
func (c *Circuit) Leaving(node int) iter.Seq[device.Device] {
	return func(yield func(device.Device) bool) {
		for _, dev := range c.devices {
			if u, _ := dev.Terminals(); u == node {
				if !yield(dev) {
					return
				}
			}
		}
	}
}

// Arriving yields the devices whose v terminal is node, in insertion order.
func (c *Circuit) Arriving(node int) iter.Seq[device.Device] {
	return func(yield func(device.Device) bool) {
		for _, dev := range c.devices {
			if _, v := dev.Terminals(); v == node {
				if !yield(dev) {
					return
				}
			}
		}
	}
}

func (c *Circuit) Devices() []device.Device {
	return append([]device.Device(nil), c.devices...)
}

func (c *Circuit) Len() int { return len(c.devices) }

// Reset clears the registry so a new netlist can be loaded.
func (c *Circuit) Reset() error {
	if err := c.Lock(); err != nil {
		return err
	}
	defer c.Unlock()

	c.devices = make([]device.Device, 0)
	c.byName = make(map[string]device.Device)
	return nil
}

// Lock takes the gate that serializes mutation and simulation runs. While a run
// holds it, Add and Reset fail with ErrCircuitBusy.
func (c *Circuit) Lock() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrCircuitBusy
	}
	return nil
}

func (c *Circuit) Unlock() { c.busy.Store(false) }

func (c *Circuit) IsLocked() bool { return c.busy.Load() }
