package matrix

import (
	"fmt"
	"math"
	"sync"

	"github.com/edp1096/sparse"
	"gonum.org/v1/gonum/mat"
)

type Backend string

const (
	DenseBackend  Backend = "dense"  // gonum LU with partial pivoting
	SparseBackend Backend = "sparse" // Markowitz-ordered sparse LU
)

func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", DenseBackend:
		return DenseBackend, nil
	case SparseBackend:
		return SparseBackend, nil
	}
	return "", fmt.Errorf("unknown solver backend %q", name)
}

// Operator solves A*x = b for the matrix it was factored from. Apply may be
// called once per time step; the factorization is never recomputed.
type Operator interface {
	Apply(b []float64) ([]float64, error)
	Size() int
}

// Factorize checks that a is invertible and returns a reusable solve operator.
// The condition estimate always comes from gonum so both backends reject the
// same systems.
func Factorize(a mat.Matrix, backend Backend) (Operator, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("matrix is not square (%dx%d)", r, c)
	}

	var lu mat.LU
	lu.Factorize(a)
	cond := lu.Cond()
	if math.IsNaN(cond) || cond >= mat.ConditionTolerance {
		return nil, &SingularSystemError{Size: r, Cond: cond}
	}

	switch backend {
	case "", DenseBackend:
		return &denseOperator{lu: &lu, n: r}, nil
	case SparseBackend:
		return newSparseOperator(a)
	}
	return nil, fmt.Errorf("unknown solver backend %q", backend)
}

type denseOperator struct {
	lu *mat.LU
	n  int
}

func (o *denseOperator) Size() int { return o.n }

func (o *denseOperator) Apply(b []float64) ([]float64, error) {
	if len(b) != o.n {
		return nil, fmt.Errorf("rhs size %d does not match matrix size %d", len(b), o.n)
	}

	x := mat.NewVecDense(o.n, nil)
	if err := o.lu.SolveVecTo(x, false, mat.NewVecDense(o.n, b)); err != nil {
		return nil, &SingularSystemError{Size: o.n, Cond: o.lu.Cond(), Err: err}
	}
	return x.RawVector().Data, nil
}

// sparseOperator keeps a factored sparse.Matrix. Solve goes through the
// matrix's intermediate vector, so calls are serialized.
type sparseOperator struct {
	mu     sync.Mutex
	matrix *sparse.Matrix
	n      int
}

func newSparseOperator(a mat.Matrix) (*sparseOperator, error) {
	n, _ := a.Dims()

	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	}

	sm, err := sparse.Create(int64(n), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	// 1-based; every position is created so the ordering never needs fill-ins
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			sm.GetElement(int64(i), int64(j)).Real += a.At(i-1, j-1)
		}
	}

	if err := sm.Factor(); err != nil {
		sm.Destroy()
		return nil, &SingularSystemError{Size: n, Cond: math.Inf(1), Err: err}
	}

	return &sparseOperator{matrix: sm, n: n}, nil
}

func (o *sparseOperator) Size() int { return o.n }

func (o *sparseOperator) Apply(b []float64) ([]float64, error) {
	if len(b) != o.n {
		return nil, fmt.Errorf("rhs size %d does not match matrix size %d", len(b), o.n)
	}

	rhs := make([]float64, o.n+1)
	copy(rhs[1:], b)

	o.mu.Lock()
	solution, err := o.matrix.Solve(rhs)
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sparse solve: %w", err)
	}
	return solution[1 : o.n+1], nil
}
