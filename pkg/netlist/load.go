package netlist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/device"
)

func CreateDevice(elem Element) (device.Device, error) {
	switch elem.Kind {
	case device.KindResistor:
		return device.NewResistor(elem.ID, elem.U, elem.V, elem.Value), nil
	case device.KindVoltageSource:
		return device.NewVoltageSource(elem.ID, elem.U, elem.V, elem.Value), nil
	case device.KindCurrentSource:
		return device.NewCurrentSource(elem.ID, elem.U, elem.V, elem.Value), nil
	case device.KindVCVS:
		return device.NewVCVS(elem.ID, elem.U, elem.V, elem.Value, elem.RefU, elem.RefV), nil
	case device.KindVCCS:
		return device.NewVCCS(elem.ID, elem.U, elem.V, elem.Value, elem.RefU, elem.RefV), nil
	case device.KindCCVS:
		return device.NewCCVS(elem.ID, elem.U, elem.V, elem.Value, elem.Ref), nil
	case device.KindCCCS:
		return device.NewCCCS(elem.ID, elem.U, elem.V, elem.Value, elem.Ref), nil
	case device.KindCapacitor:
		return device.NewCapacitor(elem.ID, elem.U, elem.V, elem.Value, elem.Factor), nil
	case device.KindInductor:
		return device.NewInductor(elem.ID, elem.U, elem.V, elem.Value, elem.Factor), nil
	case device.KindAC:
		return device.NewACSource(elem.ID, elem.U, elem.V, elem.Value, elem.Factor), nil
	}
	return nil, fmt.Errorf("unsupported element kind: %v", elem.Kind)
}

// Load inserts the parsed elements into ckt in file order. Elements the
// circuit refuses are skipped; the returned warnings say why.
func Load(ckt *circuit.Circuit, netlistData *NetlistData) []error {
	var warnings []error
	for _, elem := range netlistData.Elements {
		dev, err := CreateDevice(elem)
		if err == nil {
			err = ckt.Add(dev)
		}
		if err != nil {
			err = fmt.Errorf("line %d: %w", elem.Line, err)
			warnings = append(warnings, err)
			ckt.Logger().Warn("skipping element", "element", elem.Name, "error", err)
		}
	}
	return warnings
}

// FromCircuit describes the devices of ckt as netlist elements, in insertion
// order. Dynamic elements are written with their present value.
func FromCircuit(ckt *circuit.Circuit) *NetlistData {
	netlistData := &NetlistData{}
	for _, dev := range ckt.Devices() {
		u, v := dev.Terminals()
		elem := Element{
			Kind:  dev.GetKind(),
			ID:    dev.GetID(),
			Name:  dev.GetName(),
			U:     u,
			V:     v,
			Value: dev.GetValue(),
		}
		switch d := dev.(type) {
		case *device.VCVS:
			elem.RefU, elem.RefV = d.RefU, d.RefV
		case *device.VCCS:
			elem.RefU, elem.RefV = d.RefU, d.RefV
		case *device.CCVS:
			elem.Ref = d.Ref
		case *device.CCCS:
			elem.Ref = d.Ref
		case *device.Capacitor:
			elem.Factor = d.Capacitance
		case *device.Inductor:
			elem.Factor = d.Inductance
		case *device.ACSource:
			elem.Factor = d.Omega
		}
		netlistData.Elements = append(netlistData.Elements, elem)
	}
	netlistData.Header.Present = true
	netlistData.Header.Nodes = ckt.NodeCount()
	netlistData.Header.Elements = len(netlistData.Elements)
	return netlistData
}

// Write renders netlistData in the format Parse reads. Values are written
// exactly, so a written netlist parses back to the same elements.
func Write(w io.Writer, netlistData *NetlistData) error {
	bw := bufio.NewWriter(w)

	nodes := netlistData.Header.Nodes
	if !netlistData.Header.Present {
		nodes = nodeCount(netlistData.Elements)
	}
	fmt.Fprintf(bw, "%d %d\n", nodes, len(netlistData.Elements))

	for _, elem := range netlistData.Elements {
		fmt.Fprintf(bw, "%s %d %d %s", elem.Name, elem.U, elem.V, formatValue(elem.Value))
		switch elem.Kind {
		case device.KindVCVS, device.KindVCCS:
			fmt.Fprintf(bw, " %d %d", elem.RefU, elem.RefV)
		case device.KindCCVS, device.KindCCCS:
			fmt.Fprintf(bw, " %s", elem.Ref)
		case device.KindCapacitor, device.KindInductor, device.KindAC:
			fmt.Fprintf(bw, " %s", formatValue(elem.Factor))
		}
		bw.WriteByte('\n')
	}

	for _, p := range netlistData.Probes {
		fmt.Fprintf(bw, ".probe %d %d\n", p.From, p.To)
	}

	switch netlistData.Analysis {
	case AnalysisOP:
		fmt.Fprintln(bw, ".op")
	case AnalysisDC:
		dc := netlistData.DCParam
		fmt.Fprintf(bw, ".dc %s %s %s %s\n", dc.Source, formatValue(dc.Start), formatValue(dc.Stop), formatValue(dc.Increment))
	case AnalysisTRAN:
		tran := netlistData.TranParam
		if tran.TStep > 0 {
			fmt.Fprintf(bw, ".tran %s %s", formatValue(tran.TStep), formatValue(tran.TStop))
			if tran.EmitEvery > 0 {
				fmt.Fprintf(bw, " %d", tran.EmitEvery)
			}
			bw.WriteByte('\n')
		}
	}

	return bw.Flush()
}

func formatValue(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func nodeCount(elements []Element) int {
	n := 0
	for _, elem := range elements {
		n = max(n, elem.U, elem.V)
		if elem.Kind == device.KindVCVS || elem.Kind == device.KindVCCS {
			n = max(n, elem.RefU, elem.RefV)
		}
	}
	return n + 1
}
