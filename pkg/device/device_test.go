package device

import (
	"errors"
	"math"
	"testing"
)

type recordingMatrix struct {
	a   map[[2]int]float64
	rhs map[int]float64
}

func newRecordingMatrix() *recordingMatrix {
	return &recordingMatrix{a: make(map[[2]int]float64), rhs: make(map[int]float64)}
}

func (m *recordingMatrix) AddElement(i, j int, value float64) { m.a[[2]int{i, j}] += value }

func (m *recordingMatrix) AddRHS(i int, value float64) { m.rhs[i] += value }

func (m *recordingMatrix) expect(t *testing.T, want map[[2]int]float64) {
	t.Helper()
	for k, v := range want {
		if got := m.a[k]; math.Abs(got-v) > 1e-15 {
			t.Errorf("A%v = %g, want %g", k, got, v)
		}
	}
	for k, v := range m.a {
		if _, ok := want[k]; !ok && v != 0 {
			t.Errorf("unexpected entry A%v = %g", k, v)
		}
	}
}

func TestResistorStamp(t *testing.T) {
	m := newRecordingMatrix()
	r := NewResistor(1, 1, 2, 500)
	if err := r.Stamp(m, NoBranch); err != nil {
		t.Fatal(err)
	}
	g := 1.0 / 500
	m.expect(t, map[[2]int]float64{
		{1, 1}: g, {1, 2}: -g,
		{2, 1}: -g, {2, 2}: g,
	})
	if got := r.Current([]float64{0, 3, 1}); math.Abs(got-2.0/500) > 1e-15 {
		t.Errorf("Current = %g, want %g", got, 2.0/500)
	}
}

func TestVoltageBranchStamps(t *testing.T) {
	tests := []struct {
		name string
		dev  Device
		rhs  float64
	}{
		{"VS", NewVoltageSource(1, 1, 2, 5), 5},
		{"C", NewCapacitor(1, 1, 2, 0.5, 1e-6), 0.5},
		{"AC", NewACSource(1, 1, 2, 3, 100), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRecordingMatrix()
			if err := tt.dev.Stamp(m, Branch{Index: 3, Control: -1}); err != nil {
				t.Fatal(err)
			}
			m.expect(t, map[[2]int]float64{
				{1, 3}: -1, {2, 3}: 1,
				{3, 1}: 1, {3, 2}: -1,
			})
			if m.rhs[3] != tt.rhs {
				t.Errorf("b[3] = %g, want %g", m.rhs[3], tt.rhs)
			}
		})
	}
}

func TestCurrentBranchStamps(t *testing.T) {
	tests := []struct {
		name string
		dev  Device
		rhs  float64
	}{
		{"CS", NewCurrentSource(1, 1, 0, 2e-3), 2e-3},
		{"L", NewInductor(1, 1, 0, 1e-3, 1e-3), 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRecordingMatrix()
			if err := tt.dev.Stamp(m, Branch{Index: 2, Control: -1}); err != nil {
				t.Fatal(err)
			}
			m.expect(t, map[[2]int]float64{
				{1, 2}: -1, {0, 2}: 1, {2, 2}: 1,
			})
			if m.rhs[2] != tt.rhs {
				t.Errorf("b[2] = %g, want %g", m.rhs[2], tt.rhs)
			}
		})
	}
}

func TestControlledSourceStamps(t *testing.T) {
	m := newRecordingMatrix()
	if err := NewVCVS(1, 2, 0, 3, 1, 0).Stamp(m, Branch{Index: 4, Control: -1}); err != nil {
		t.Fatal(err)
	}
	m.expect(t, map[[2]int]float64{
		{2, 4}: -1, {0, 4}: 1, {4, 2}: 1,
		{4, 1}: -3, {4, 0}: -1 + 3,
	})

	m = newRecordingMatrix()
	if err := NewVCCS(1, 2, 0, 0.01, 1, 0).Stamp(m, Branch{Index: 4, Control: -1}); err != nil {
		t.Fatal(err)
	}
	m.expect(t, map[[2]int]float64{
		{2, 4}: -1, {0, 4}: 1, {4, 4}: 1,
		{4, 1}: -0.01, {4, 0}: 0.01,
	})

	m = newRecordingMatrix()
	if err := NewCCCS(1, 2, 0, 2, "R1").Stamp(m, Branch{Index: 3, Control: 4, Sign: 1}); err != nil {
		t.Fatal(err)
	}
	m.expect(t, map[[2]int]float64{
		{2, 3}: -1, {0, 3}: 1, {3, 3}: 1,
		{3, 4}: -2,
	})

	m = newRecordingMatrix()
	if err := NewCCVS(1, 2, 0, 100, "VS1").Stamp(m, Branch{Index: 3, Control: 5, Sign: -1}); err != nil {
		t.Fatal(err)
	}
	m.expect(t, map[[2]int]float64{
		{2, 3}: -1, {0, 3}: 1, {3, 2}: 1, {3, 0}: -1,
		{3, 5}: 100,
	})
}

func TestStampWithoutBranch(t *testing.T) {
	devs := []Device{
		NewVoltageSource(1, 1, 0, 1),
		NewCurrentSource(1, 1, 0, 1),
		NewCapacitor(1, 1, 0, 0, 1),
		NewInductor(1, 1, 0, 0, 1),
		NewACSource(1, 1, 0, 1, 1),
		NewVCVS(1, 1, 0, 1, 1, 0),
		NewVCCS(1, 1, 0, 1, 1, 0),
	}
	for _, dev := range devs {
		if err := dev.Stamp(newRecordingMatrix(), NoBranch); err == nil {
			t.Errorf("%s stamped without a branch", dev.GetName())
		}
	}

	// branch present but control unresolved
	err := NewCCCS(1, 1, 0, 1, "R1").Stamp(newRecordingMatrix(), Branch{Index: 2, Control: -1})
	if err == nil {
		t.Error("CCCS stamped without a controlling current")
	}
}

func TestUpdateState(t *testing.T) {
	status := &CircuitStatus{Time: 0, TimeStep: 1e-5}

	// 1 mA flowing into the capacitor from u
	c := NewCapacitor(1, 1, 0, 0, 1e-6)
	if got := c.UpdateState([]float64{0, 0, -1e-3}, 2, status); math.Abs(got-0.01) > 1e-15 {
		t.Errorf("capacitor voltage = %g, want 0.01", got)
	}
	if c.Voltage() != c.UpdateState([]float64{0, 0, 0}, 2, status) {
		t.Error("capacitor voltage changed with zero current")
	}

	// 2 V across v->u drives the current up
	l := NewInductor(1, 0, 1, 0, 1e-3)
	if got := l.UpdateState([]float64{0, 2, 0}, 2, status); math.Abs(got-0.02) > 1e-15 {
		t.Errorf("inductor current = %g, want 0.02", got)
	}
	if math.Abs(l.Current()-0.02) > 1e-15 {
		t.Errorf("Current() = %g", l.Current())
	}

	ac := NewACSource(1, 1, 0, 2, math.Pi)
	if got := ac.UpdateState(nil, 0, &CircuitStatus{Time: 1, TimeStep: 1e-5}); math.Abs(got+2) > 1e-12 {
		t.Errorf("AC value at t=1 = %g, want -2", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		dev   Device
		valid bool
	}{
		{NewResistor(1, 1, 0, 1), true},
		{NewResistor(2, 1, 0, 0), false},
		{NewResistor(3, -1, 0, 1), false},
		{NewCapacitor(1, 1, 0, 0, -1e-6), false},
		{NewInductor(1, 1, 0, 0, 0), false},
		{NewInductor(2, 1, 0, 0, 1e-3), true},
		{NewVCVS(1, 1, 0, 2, -1, 0), false},
		{NewVoltageSource(-1, 1, 0, 1), false},
		{NewCCCS(1, 1, 0, 1, "R1"), true},
	}
	for _, tt := range tests {
		err := tt.dev.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("%s.Validate() = %v, want valid=%v", tt.dev.GetName(), err, tt.valid)
		}
		var invalid *InvalidElementError
		if err != nil && !errors.As(err, &invalid) {
			t.Errorf("%s.Validate() error %T, want InvalidElementError", tt.dev.GetName(), err)
		}
	}
}

func TestKind(t *testing.T) {
	for _, prefix := range []string{"R", "VS", "CS", "VCVS", "VCCS", "CCVS", "CCCS", "C", "L", "AC"} {
		k, ok := ParseKind(prefix)
		if !ok || k.String() != prefix {
			t.Errorf("ParseKind(%q) = %v, %v", prefix, k, ok)
		}
	}
	if _, ok := ParseKind("Q"); ok {
		t.Error("ParseKind(Q) succeeded")
	}
	if Name(KindVCVS, 3) != "VCVS3" {
		t.Errorf("Name = %q", Name(KindVCVS, 3))
	}
	if KindResistor.HasBranch() || !KindCapacitor.HasBranch() {
		t.Error("HasBranch mismatch")
	}
}
