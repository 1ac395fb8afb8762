package util

import "testing"

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{0, "V", "0.000 V"},
		{4.7e3, "Ω", "4.700 kΩ"},
		{12, "V", "12.000 V"},
		{-2.5e-3, "A", "-2.500 mA"},
		{1e-6, "s", "1.000 us"},
		{3.3e-9, "F", "3.300 nF"},
		{10e-12, "F", "10.000 pF"},
		{1e-15, "A", "1.000e-15 A"},
		{2e6, "V", "2000000.000 V"},
	}
	for _, tt := range tests {
		if got := FormatValueFactor(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatValueFactor(%g, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
		}
	}
}
