package analysis

import (
	"fmt"

	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/matrix"
)

// OperatingPoint solves the assembled system once, with every dynamic element
// held at its present value.
type OperatingPoint struct {
	BaseAnalysis
	solution []float64
}

func NewOP(backend matrix.Backend) *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(backend),
	}
}

func (op *OperatingPoint) Setup(sys *circuit.System) error {
	op.System = sys
	return nil
}

func (op *OperatingPoint) Execute() error {
	operator, err := op.factorize()
	if err != nil {
		return fmt.Errorf("factorizing system: %w", err)
	}

	x, err := operator.Apply(op.System.B())
	if err != nil {
		return fmt.Errorf("matrix solve error: %w", err)
	}
	if i := firstNonFinite(x); i >= 0 {
		return &DivergedSimulationError{Index: i, Value: x[i]}
	}

	op.solution = x
	for name, value := range NamedSolution(op.System, x) {
		op.results[name] = []float64{value}
	}
	op.logger.Debug("operating point solved", "size", len(x))
	return nil
}

// Solution returns the raw solution vector of the last Execute.
func (op *OperatingPoint) Solution() []float64 { return op.solution }
