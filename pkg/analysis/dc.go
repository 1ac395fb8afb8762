package analysis

import (
	"fmt"
	"math"

	"github.com/monkey2000/spicy/internal/consts"
	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/matrix"
)

// DCSweep steps the value of one independent source and solves the system at
// every point. Only the source's right-hand side slot changes, so the matrix
// is factored once.
type DCSweep struct {
	BaseAnalysis
	sourceName string
	sweepVals  []float64
	slot       int
}

func NewDCSweep(backend matrix.Backend, source string, start, stop, increment float64) (*DCSweep, error) {
	if increment == 0 || math.IsNaN(increment) || math.IsInf(increment, 0) {
		return nil, fmt.Errorf("invalid sweep increment %g", increment)
	}
	if (stop-start)*increment < 0 {
		return nil, fmt.Errorf("sweep from %g to %g never reached with increment %g", start, stop, increment)
	}

	// Points are start + i*increment so the last one does not drift
	count := int(math.Floor((stop-start)/increment+consts.StepSlack)) + 1
	sweep := make([]float64, count)
	for i := range sweep {
		sweep[i] = start + float64(i)*increment
	}

	return &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(backend),
		sourceName:   source,
		sweepVals:    sweep,
		slot:         -1,
	}, nil
}

func (dc *DCSweep) Setup(sys *circuit.System) error {
	dc.System = sys

	dev, ok := sys.Circuit.Lookup(dc.sourceName)
	if !ok {
		return fmt.Errorf("source %s not found", dc.sourceName)
	}
	switch dev.GetKind() {
	case device.KindVoltageSource, device.KindCurrentSource:
	default:
		return fmt.Errorf("%s is not an independent source", dc.sourceName)
	}
	slot, ok := sys.Branch[dc.sourceName]
	if !ok {
		return fmt.Errorf("source %s has no branch in the system", dc.sourceName)
	}
	dc.slot = slot
	return nil
}

func (dc *DCSweep) Execute() error {
	if dc.slot < 0 {
		return fmt.Errorf("sweep not set up")
	}

	operator, err := dc.factorize()
	if err != nil {
		return fmt.Errorf("factorizing system: %w", err)
	}

	b := dc.System.B()
	for _, val := range dc.sweepVals {
		b[dc.slot] = val

		x, err := operator.Apply(b)
		if err != nil {
			return fmt.Errorf("solve error at %s=%g: %w", dc.sourceName, val, err)
		}
		if i := firstNonFinite(x); i >= 0 {
			return &DivergedSimulationError{Index: i, Value: x[i]}
		}
		dc.StoreResult("SWEEP1", val, NamedSolution(dc.System, x))
	}

	dc.logger.Debug("dc sweep done", "source", dc.sourceName, "points", len(dc.sweepVals))
	return nil
}

func (dc *DCSweep) Points() []float64 { return dc.sweepVals }
