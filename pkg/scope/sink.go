// Package scope receives the periodic probe frames of a transient run and
// turns them into recordings, images, charts and tables.
package scope

import (
	"errors"
	"fmt"
)

// Sink consumes one frame: the simulation time and the probe values, in
// probe order. The slice is owned by the sink.
type Sink interface {
	Emit(t float64, values []float64) error
}

type SinkFunc func(t float64, values []float64) error

func (f SinkFunc) Emit(t float64, values []float64) error { return f(t, values) }

// Probe reads the voltage between two nodes, x[From] - x[To].
type Probe struct {
	From int
	To   int
}

func (p Probe) Read(x []float64) float64 { return x[p.From] - x[p.To] }

func (p Probe) Label() string {
	if p.To == 0 {
		return fmt.Sprintf("V(%d)", p.From)
	}
	return fmt.Sprintf("V(%d,%d)", p.From, p.To)
}

// NodeProbes probes every non-ground node against ground.
func NodeProbes(nodeCount int) []Probe {
	probes := make([]Probe, 0, max(nodeCount-1, 0))
	for n := 1; n < nodeCount; n++ {
		probes = append(probes, Probe{From: n})
	}
	return probes
}

func Labels(probes []Probe) []string {
	labels := make([]string, len(probes))
	for i, p := range probes {
		labels[i] = p.Label()
	}
	return labels
}

// Multi fans a frame out to every sink. Each sink gets its own copy of the
// values; all sinks are called even if one fails.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Emit(t float64, values []float64) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(t, append([]float64(nil), values...)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
