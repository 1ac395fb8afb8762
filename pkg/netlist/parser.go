package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/scope"
)

type AnalysisType int

const (
	AnalysisTRAN AnalysisType = iota
	AnalysisOP
	AnalysisDC
)

type NetlistData struct {
	Header struct {
		Present  bool
		Nodes    int // informational
		Elements int // informational
	}
	Elements  []Element     // Circuit elements, in file order
	Probes    []scope.Probe // Oscilloscope node pairs
	Analysis  AnalysisType  // Analysis type
	TranParam struct {
		TStep     float64 // timestep, 0 when not given
		TStop     float64 // duration
		EmitEvery int     // steps between frames, 0 when not given
	}
	DCParam struct {
		Source    string
		Start     float64
		Stop      float64
		Increment float64
	}
	Warnings []error // skipped lines
}

type Element struct {
	Kind   device.Kind
	ID     int
	Name   string  // kind prefix + id
	U, V   int     // terminals
	Value  float64 // primary value
	Factor float64 // C: capacitance, L: inductance, AC: angular frequency
	RefU   int     // VCVS, VCCS
	RefV   int
	Ref    string // CCVS, CCCS controlling element
	Line   int
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"M":   1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?s?$`)
	nameRe  = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)
)

// Parse reads a netlist. Lines that cannot be used are recorded in Warnings
// and skipped; only a read failure is returned as an error.
func Parse(r io.Reader) (*NetlistData, error) {
	scanner := bufio.NewScanner(r)
	netlistData := &NetlistData{}

	var currentLine string
	currentNo, lineNo := 0, 0
	flush := func() {
		if currentLine != "" {
			parseLine(netlistData, currentNo, currentLine)
			currentLine = ""
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comment
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 || strings.HasPrefix(line, "*") {
			flush()
			continue
		}

		// Line continue
		if strings.HasPrefix(line, "+") {
			if currentLine != "" {
				currentLine += " " + strings.TrimSpace(line[1:])
			}
			continue
		}

		flush()
		currentLine, currentNo = line, lineNo
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}
	return netlistData, nil
}

func ParseString(input string) (*NetlistData, error) {
	return Parse(strings.NewReader(input))
}

func parseLine(netlistData *NetlistData, lineNo int, line string) {
	fields := strings.Fields(line)

	var err error
	switch {
	case strings.HasPrefix(fields[0], "."):
		err = parseDotOperator(netlistData, fields)
	case isInteger(fields[0]):
		err = parseHeader(netlistData, fields)
	default:
		var elem *Element
		elem, err = parseElement(fields)
		if elem != nil {
			elem.Line = lineNo
			netlistData.Elements = append(netlistData.Elements, *elem)
		}
	}
	if err == nil {
		return
	}

	var kindErr *UnrecognizedKindError
	if errors.As(err, &kindErr) {
		kindErr.Line = lineNo
		netlistData.Warnings = append(netlistData.Warnings, kindErr)
		return
	}
	netlistData.Warnings = append(netlistData.Warnings, &ParseError{Line: lineNo, Text: line, Err: err})
}

// "n m" node and element counts
func parseHeader(netlistData *NetlistData, fields []string) error {
	if netlistData.Header.Present || len(netlistData.Elements) > 0 {
		return fmt.Errorf("header must be the first line")
	}
	if len(fields) != 2 {
		return fmt.Errorf("header needs node and element counts")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("invalid node count: %v", err)
	}
	m, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("invalid element count: %v", err)
	}

	netlistData.Header.Present = true
	netlistData.Header.Nodes = n
	netlistData.Header.Elements = m
	return nil
}

// Parse .tran, .probe, .op, .dc
func parseDotOperator(netlistData *NetlistData, fields []string) error {
	var err error

	switch strings.ToLower(fields[0]) {
	case ".op":
		netlistData.Analysis = AnalysisOP

	case ".tran":
		if len(fields) < 3 {
			return fmt.Errorf("insufficient tran parameters, need tstep and duration")
		}
		tstep, err := ParseValue(fields[1])
		if err != nil {
			return fmt.Errorf("invalid tstep: %v", err)
		}
		if !(tstep > 0) {
			return fmt.Errorf("tstep must be positive")
		}
		tstop, err := ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid duration: %v", err)
		}
		emit := 0
		if len(fields) > 3 {
			emit, err = strconv.Atoi(fields[3])
			if err != nil || emit < 1 {
				return fmt.Errorf("invalid emit cadence %q", fields[3])
			}
		}
		netlistData.Analysis = AnalysisTRAN
		netlistData.TranParam.TStep = tstep
		netlistData.TranParam.TStop = tstop
		netlistData.TranParam.EmitEvery = emit

	case ".probe":
		if len(fields) != 3 {
			return fmt.Errorf("probe needs from and to nodes")
		}
		from, err := parseNode(fields[1])
		if err != nil {
			return err
		}
		to, err := parseNode(fields[2])
		if err != nil {
			return err
		}
		netlistData.Probes = append(netlistData.Probes, scope.Probe{From: from, To: to})

	case ".dc":
		if len(fields) < 5 {
			return fmt.Errorf("insufficient DC sweep parameters")
		}
		netlistData.DCParam.Source = strings.ToUpper(fields[1])
		netlistData.DCParam.Start, err = ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid start value: %v", err)
		}
		netlistData.DCParam.Stop, err = ParseValue(fields[3])
		if err != nil {
			return fmt.Errorf("invalid stop value: %v", err)
		}
		netlistData.DCParam.Increment, err = ParseValue(fields[4])
		if err != nil {
			return fmt.Errorf("invalid increment value: %v", err)
		}
		netlistData.Analysis = AnalysisDC

	case ".end":

	default:
		return fmt.Errorf("unsupported directive: %s", fields[0])
	}

	return nil
}

func parseElement(fields []string) (*Element, error) {
	matches := nameRe.FindStringSubmatch(fields[0])
	if matches == nil {
		return nil, fmt.Errorf("invalid element name %q", fields[0])
	}
	prefix := strings.ToUpper(matches[1])
	kind, ok := device.ParseKind(prefix)
	if !ok {
		return nil, &UnrecognizedKindError{Kind: prefix}
	}
	id, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid element id: %v", err)
	}

	want := 4
	switch kind {
	case device.KindVCVS, device.KindVCCS:
		want = 6
	case device.KindCCVS, device.KindCCCS, device.KindCapacitor, device.KindInductor, device.KindAC:
		want = 5
	}
	if len(fields) < want {
		return nil, fmt.Errorf("%s needs %d fields, got %d", prefix, want, len(fields))
	}

	elem := &Element{
		Kind: kind,
		ID:   id,
		Name: device.Name(kind, id),
	}
	if elem.U, err = parseNode(fields[1]); err != nil {
		return nil, err
	}
	if elem.V, err = parseNode(fields[2]); err != nil {
		return nil, err
	}
	if elem.Value, err = ParseValue(fields[3]); err != nil {
		return nil, err
	}

	switch kind {
	case device.KindVCVS, device.KindVCCS:
		if elem.RefU, err = parseNode(fields[4]); err != nil {
			return nil, err
		}
		if elem.RefV, err = parseNode(fields[5]); err != nil {
			return nil, err
		}
	case device.KindCCVS, device.KindCCCS:
		elem.Ref = strings.ToUpper(fields[4])
	case device.KindCapacitor, device.KindInductor, device.KindAC:
		if elem.Factor, err = ParseValue(fields[4]); err != nil {
			return nil, err
		}
	}

	return elem, nil
}

func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if matches[2] != "" {
		if multiplier, ok := unitMap[matches[2]]; ok {
			num *= multiplier
		}
	}

	return num, nil
}

func parseNode(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("invalid node %q", field)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative node %d", n)
	}
	return n, nil
}

func isInteger(field string) bool {
	_, err := strconv.Atoi(field)
	return err == nil
}
