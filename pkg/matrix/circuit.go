package matrix

import (
	"fmt"
	"io"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

var _ DeviceMatrix = (*CircuitMatrix)(nil)

// CircuitMatrix holds the dense MNA coefficient matrix and its right-hand side.
type CircuitMatrix struct {
	Size   int
	matrix *mat.Dense
	rhs    []float64
	logger *slog.Logger
}

func NewMatrix(size int) *CircuitMatrix {
	return &CircuitMatrix{
		Size:   size,
		matrix: mat.NewDense(size, size, nil),
		rhs:    make([]float64, size),
		logger: slog.Default(),
	}
}

func (m *CircuitMatrix) SetLogger(logger *slog.Logger) { m.logger = logger }

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if i < 0 || j < 0 || i >= m.Size || j >= m.Size {
		m.logger.Warn("matrix index out of bounds", "i", i, "j", j, "size", m.Size)
		return
	}
	m.matrix.Set(i, j, m.matrix.At(i, j)+value)
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if i < 0 || i >= m.Size {
		m.logger.Warn("rhs index out of bounds", "i", i, "size", m.Size)
		return
	}
	m.rhs[i] += value
}

// Ground replaces row 0 with x[0] = 0 and clears column 0 in the other rows,
// so the ground unknown solves to exactly zero.
func (m *CircuitMatrix) Ground() {
	for j := 0; j < m.Size; j++ {
		m.matrix.Set(0, j, 0)
	}
	for i := 1; i < m.Size; i++ {
		m.matrix.Set(i, 0, 0)
	}
	m.matrix.Set(0, 0, 1)
	m.rhs[0] = 0
}

func (m *CircuitMatrix) Clear() {
	m.matrix.Zero()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *CircuitMatrix) At(i, j int) float64 { return m.matrix.At(i, j) }

// Dense exposes the coefficient matrix for factorization.
func (m *CircuitMatrix) Dense() *mat.Dense { return m.matrix }

func (m *CircuitMatrix) RHS() []float64 { return m.rhs }

func (m *CircuitMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nCircuit Equations (%dx%d):\n", m.Size, m.Size)
	fmt.Fprintln(w, "Node equations 0..n-1, followed by branch equations")

	for i := 0; i < m.Size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		rowHasElements := false
		for j := 0; j < m.Size; j++ {
			if value := m.matrix.At(i, j); value != 0 {
				fmt.Fprintf(w, "  %+g*x%d", value, j)
				rowHasElements = true
			}
		}
		if !rowHasElements {
			fmt.Fprint(w, "  (empty)")
		}
		fmt.Fprintf(w, " = %g\n", m.rhs[i])
	}

	fmt.Fprintf(w, "\n%v\n", mat.Formatted(m.matrix, mat.Squeeze()))
}
