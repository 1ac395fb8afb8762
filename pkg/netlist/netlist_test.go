package netlist

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/scope"
)

const rcNetlist = `* RC low-pass
3 4
VS1 1 0 5
R1 1 2 1k   # series
C1 2 0 0 1u
CCCS1 3 0 2
+ R1
R2 3 0 100

.probe 2 0
.probe 1 2
.tran 10us 10ms 50
.end
`

func TestParse(t *testing.T) {
	data, err := ParseString(rcNetlist)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Warnings) != 0 {
		t.Fatalf("warnings: %v", data.Warnings)
	}
	if !data.Header.Present || data.Header.Nodes != 3 || data.Header.Elements != 4 {
		t.Errorf("header = %+v", data.Header)
	}

	want := []Element{
		{Kind: device.KindVoltageSource, ID: 1, Name: "VS1", U: 1, V: 0, Value: 5, Line: 3},
		{Kind: device.KindResistor, ID: 1, Name: "R1", U: 1, V: 2, Value: 1e3, Line: 4},
		{Kind: device.KindCapacitor, ID: 1, Name: "C1", U: 2, V: 0, Value: 0, Factor: 1e-6, Line: 5},
		{Kind: device.KindCCCS, ID: 1, Name: "CCCS1", U: 3, V: 0, Value: 2, Ref: "R1", Line: 6},
		{Kind: device.KindResistor, ID: 2, Name: "R2", U: 3, V: 0, Value: 100, Line: 8},
	}
	if !reflect.DeepEqual(data.Elements, want) {
		t.Errorf("elements =\n%+v\nwant\n%+v", data.Elements, want)
	}

	if !reflect.DeepEqual(data.Probes, []scope.Probe{{From: 2}, {From: 1, To: 2}}) {
		t.Errorf("probes = %v", data.Probes)
	}
	if data.Analysis != AnalysisTRAN {
		t.Errorf("analysis = %v", data.Analysis)
	}
	tran := data.TranParam
	if math.Abs(tran.TStep-1e-5) > 1e-20 || math.Abs(tran.TStop-1e-2) > 1e-17 || tran.EmitEvery != 50 {
		t.Errorf("tran = %+v", tran)
	}
}

func TestParseDirectives(t *testing.T) {
	data, err := ParseString("VS1 1 0 1\nR1 1 0 1\n.DC vs1 0 5 0.5\n")
	if err != nil {
		t.Fatal(err)
	}
	if data.Analysis != AnalysisDC {
		t.Fatalf("analysis = %v, want DC", data.Analysis)
	}
	if dc := data.DCParam; dc.Source != "VS1" || dc.Start != 0 || dc.Stop != 5 || dc.Increment != 0.5 {
		t.Errorf("dc = %+v", dc)
	}

	data, _ = ParseString("R1 1 0 1\n.op\n")
	if data.Analysis != AnalysisOP || data.Header.Present {
		t.Errorf("analysis = %v, header = %+v", data.Analysis, data.Header)
	}
}

func TestParseWarnings(t *testing.T) {
	input := strings.Join([]string{
		"R1 1 0 1k",
		"Q1 1 2 3 model",
		"R2 1 0",
		"R3 1 x 10",
		"C1 1 0 0 1z",
		".tran 0 1m",
		".probe 1",
		".ac dec 10 1 1k",
		"2 2",
		"R4 1 0 10 extra fields",
	}, "\n")
	data, err := ParseString(input)
	if err != nil {
		t.Fatal(err)
	}

	if len(data.Elements) != 2 || data.Elements[0].Name != "R1" || data.Elements[1].Name != "R4" {
		t.Errorf("elements = %+v", data.Elements)
	}
	if len(data.Warnings) != 8 {
		t.Fatalf("got %d warnings: %v", len(data.Warnings), data.Warnings)
	}

	var kind *UnrecognizedKindError
	if !errors.As(data.Warnings[0], &kind) || kind.Line != 2 || kind.Kind != "Q" {
		t.Errorf("warning 0 = %v", data.Warnings[0])
	}
	if got := data.Warnings[0].Error(); got != "line 2: unrecognized type 'Q'" {
		t.Errorf("message = %q", got)
	}
	for i, w := range data.Warnings[1:] {
		var perr *ParseError
		if !errors.As(w, &perr) || perr.Line != i+3 {
			t.Errorf("warning %d = %v, want ParseError on line %d", i+1, w, i+3)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"-2.5", -2.5},
		{"1e-3", 1e-3},
		{"4.7k", 4.7e3},
		{"4.7K", 4.7e3},
		{"2meg", 2e6},
		{"2M", 2e6},
		{"10m", 10e-3},
		{"10ms", 10e-3},
		{"1u", 1e-6},
		{"3n", 3e-9},
		{"5p", 5e-12},
		{"1f", 1e-15},
		{"1G", 1e9},
		{"1T", 1e12},
		{".5", 0.5},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.in)
		if err != nil {
			t.Errorf("ParseValue(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12*math.Abs(tt.want) {
			t.Errorf("ParseValue(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "k", "1x", "1..2", "abc"} {
		if _, err := ParseValue(bad); err == nil {
			t.Errorf("ParseValue(%q) succeeded", bad)
		}
	}
}

func quietCircuit() *circuit.Circuit {
	ckt := circuit.New("test")
	ckt.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return ckt
}

func TestLoad(t *testing.T) {
	data, err := ParseString(rcNetlist)
	if err != nil {
		t.Fatal(err)
	}
	ckt := quietCircuit()
	if warnings := Load(ckt, data); len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	if ckt.Len() != 5 {
		t.Errorf("Len = %d, want 5", ckt.Len())
	}
	dev, ok := ckt.Lookup("C1")
	if c, isCap := dev.(*device.Capacitor); !ok || !isCap || c.Capacitance != 1e-6 {
		t.Errorf("C1 = %#v", dev)
	}
	if _, err := circuit.Assemble(ckt); err != nil {
		t.Errorf("Assemble: %v", err)
	}
}

func TestLoadWarnings(t *testing.T) {
	data, err := ParseString("CCCS1 2 0 1 R9\nR1 1 0 1\nR1 2 0 1\nR2 1 0 0\n")
	if err != nil {
		t.Fatal(err)
	}
	ckt := quietCircuit()
	warnings := Load(ckt, data)
	if len(warnings) != 3 {
		t.Fatalf("got %d warnings: %v", len(warnings), warnings)
	}

	var unresolved *circuit.UnresolvedReferenceError
	if !errors.As(warnings[0], &unresolved) || !strings.HasPrefix(warnings[0].Error(), "line 1:") {
		t.Errorf("warning 0 = %v", warnings[0])
	}
	var dup *circuit.DuplicateElementError
	if !errors.As(warnings[1], &dup) {
		t.Errorf("warning 1 = %v", warnings[1])
	}
	var invalid *device.InvalidElementError
	if !errors.As(warnings[2], &invalid) {
		t.Errorf("warning 2 = %v", warnings[2])
	}
	if ckt.Len() != 1 {
		t.Errorf("Len = %d, want 1", ckt.Len())
	}
}

func TestWriteRoundTrip(t *testing.T) {
	ckt := quietCircuit()
	for _, dev := range []device.Device{
		device.NewVoltageSource(1, 1, 0, 5),
		device.NewResistor(1, 1, 2, 1.0/3),
		device.NewCapacitor(1, 2, 0, 0.25, 4.7e-9),
		device.NewInductor(1, 2, 3, -1e-3, 1e-3),
		device.NewACSource(1, 4, 0, 2, 2*math.Pi*50),
		device.NewVCVS(1, 5, 0, 10, 2, 0),
		device.NewVCCS(1, 6, 0, 1e-3, 4, 0),
		device.NewCCVS(1, 7, 0, 50, "R1"),
		device.NewCCCS(1, 8, 0, 2, "VS1"),
		device.NewCurrentSource(1, 3, 0, 1e-6),
	} {
		if err := ckt.Add(dev); err != nil {
			t.Fatalf("Add(%s): %v", dev.GetName(), err)
		}
	}

	data := FromCircuit(ckt)
	data.Probes = []scope.Probe{{From: 2}}
	data.TranParam.TStep = 1e-6
	data.TranParam.TStop = 2e-3
	data.TranParam.EmitEvery = 7

	var buf bytes.Buffer
	if err := Write(&buf, data); err != nil {
		t.Fatal(err)
	}
	back, err := Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Warnings) != 0 {
		t.Fatalf("warnings: %v\n%s", back.Warnings, buf.String())
	}

	if back.Header.Nodes != 9 || back.Header.Elements != 10 {
		t.Errorf("header = %+v", back.Header)
	}
	if len(back.Elements) != len(data.Elements) {
		t.Fatalf("%d elements, want %d", len(back.Elements), len(data.Elements))
	}
	for i, elem := range back.Elements {
		elem.Line = 0
		if !reflect.DeepEqual(elem, data.Elements[i]) {
			t.Errorf("element %d = %+v, want %+v", i, elem, data.Elements[i])
		}
	}
	if !reflect.DeepEqual(back.Probes, data.Probes) || back.TranParam != data.TranParam {
		t.Errorf("directives = %v %+v", back.Probes, back.TranParam)
	}
}
