package matrix

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

// VS1(1,0)=10, R1(1,2)=1k, R2(2,0)=1k; unknown 3 is the source branch.
func dividerMatrix() *CircuitMatrix {
	m := NewMatrix(4)
	g := 1e-3
	m.AddElement(1, 1, g)
	m.AddElement(1, 2, -g)
	m.AddElement(2, 1, -g)
	m.AddElement(2, 2, g)
	m.AddElement(2, 2, g)
	m.AddElement(1, 3, -1)
	m.AddElement(0, 3, 1)
	m.AddElement(3, 1, 1)
	m.AddElement(3, 0, -1)
	m.AddRHS(3, 10)
	m.Ground()
	return m
}

func closeTo(got, want, rel float64) bool {
	return math.Abs(got-want) <= rel*math.Max(1, math.Abs(want))
}

func TestFactorizeDivider(t *testing.T) {
	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		t.Run(string(backend), func(t *testing.T) {
			m := dividerMatrix()
			op, err := Factorize(m.Dense(), backend)
			if err != nil {
				t.Fatalf("Factorize: %v", err)
			}
			if op.Size() != 4 {
				t.Fatalf("Size() = %d, want 4", op.Size())
			}

			x, err := op.Apply(m.RHS())
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if x[0] != 0 {
				t.Errorf("x[0] = %g, want exactly 0", x[0])
			}
			if !closeTo(x[1], 10, 1e-9) || !closeTo(x[2], 5, 1e-9) {
				t.Errorf("node voltages = %v, want [_ 10 5 _]", x)
			}
			if !closeTo(x[3], 5e-3, 1e-9) {
				t.Errorf("branch current = %g, want 5e-3", x[3])
			}

			// same factorization, new right-hand side
			b := append([]float64(nil), m.RHS()...)
			b[3] = 4
			x, err = op.Apply(b)
			if err != nil {
				t.Fatalf("second Apply: %v", err)
			}
			if !closeTo(x[2], 2, 1e-9) {
				t.Errorf("x[2] = %g after rhs change, want 2", x[2])
			}
		})
	}
}

func TestFactorizeSingular(t *testing.T) {
	// R(1,2) floating, nothing tied to ground
	m := NewMatrix(3)
	m.AddElement(1, 1, 1)
	m.AddElement(1, 2, -1)
	m.AddElement(2, 1, -1)
	m.AddElement(2, 2, 1)
	m.Ground()

	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		t.Run(string(backend), func(t *testing.T) {
			_, err := Factorize(m.Dense(), backend)
			var singular *SingularSystemError
			if !errors.As(err, &singular) {
				t.Fatalf("Factorize error = %v, want SingularSystemError", err)
			}
			if singular.Size != 3 {
				t.Errorf("Size = %d, want 3", singular.Size)
			}
		})
	}
}

func TestApplySizeMismatch(t *testing.T) {
	m := dividerMatrix()
	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		op, err := Factorize(m.Dense(), backend)
		if err != nil {
			t.Fatalf("%s: Factorize: %v", backend, err)
		}
		if _, err := op.Apply([]float64{1, 2}); err == nil {
			t.Errorf("%s: Apply with short rhs succeeded", backend)
		}
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", DenseBackend, false},
		{"dense", DenseBackend, false},
		{"sparse", SparseBackend, false},
		{"klu", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGroundDecouplesNodeZero(t *testing.T) {
	m := NewMatrix(3)
	for i := range 3 {
		for j := range 3 {
			m.AddElement(i, j, float64(i+j+1))
		}
		m.AddRHS(i, 7)
	}
	m.Ground()

	if m.At(0, 0) != 1 || m.RHS()[0] != 0 {
		t.Fatalf("ground row = %g, rhs %g", m.At(0, 0), m.RHS()[0])
	}
	for k := 1; k < 3; k++ {
		if m.At(0, k) != 0 || m.At(k, 0) != 0 {
			t.Errorf("A[0][%d] = %g, A[%d][0] = %g, want 0", k, m.At(0, k), k, m.At(k, 0))
		}
	}
	if m.At(1, 1) != 3 {
		t.Errorf("A[1][1] = %g, want untouched 3", m.At(1, 1))
	}
}

func TestOutOfBoundsStampIgnored(t *testing.T) {
	m := NewMatrix(2)
	m.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.AddElement(2, 0, 1)
	m.AddElement(-1, 1, 1)
	m.AddRHS(5, 1)

	for i := range 2 {
		for j := range 2 {
			if m.At(i, j) != 0 {
				t.Errorf("A[%d][%d] = %g, want 0", i, j, m.At(i, j))
			}
		}
	}
}
