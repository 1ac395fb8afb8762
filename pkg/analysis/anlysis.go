package analysis

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/matrix"
)

type Analysis interface {
	Setup(sys *circuit.System) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	System  *circuit.System
	Backend matrix.Backend
	results map[string][]float64 // key: variable name, value: result per point
	logger  *slog.Logger
}

func NewBaseAnalysis(backend matrix.Backend) *BaseAnalysis {
	return &BaseAnalysis{
		Backend: backend,
		results: make(map[string][]float64),
		logger:  slog.Default(),
	}
}

func (a *BaseAnalysis) SetLogger(logger *slog.Logger) { a.logger = logger }

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

// factorize checks the assembled system once for the whole analysis.
func (a *BaseAnalysis) factorize() (matrix.Operator, error) {
	if a.System == nil {
		return nil, fmt.Errorf("system not set")
	}
	return matrix.Factorize(a.System.Matrix.Dense(), a.Backend)
}

// StoreResult appends one point: the sweep variable under key and every named
// quantity of the solution.
func (a *BaseAnalysis) StoreResult(key string, keyVal float64, solution map[string]float64) {
	a.results[key] = append(a.results[key], keyVal)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

// NamedSolution maps a solved vector to V(n) node voltages and I(name)
// element currents, currents flowing from u to v through the element.
func NamedSolution(sys *circuit.System, x []float64) map[string]float64 {
	named := make(map[string]float64, sys.Size)
	for n := 1; n < sys.NodeCount; n++ {
		named[fmt.Sprintf("V(%d)", n)] = x[n]
	}
	for _, dev := range sys.Devices {
		if r, ok := dev.(*device.Resistor); ok {
			named[fmt.Sprintf("I(%s)", r.GetName())] = r.Current(x)
			continue
		}
		if i, ok := sys.BranchCurrent(dev.GetName(), x); ok {
			named[fmt.Sprintf("I(%s)", dev.GetName())] = i
		}
	}
	return named
}

// firstNonFinite returns the index of the first NaN or Inf entry, or -1.
func firstNonFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
