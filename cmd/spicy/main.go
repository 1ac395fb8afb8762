package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/monkey2000/spicy/pkg/analysis"
	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/matrix"
	"github.com/monkey2000/spicy/pkg/netlist"
	"github.com/monkey2000/spicy/pkg/scope"
	"github.com/monkey2000/spicy/pkg/util"
)

var (
	backendFlag  = flag.String("backend", string(matrix.DenseBackend), "solver backend: dense or sparse")
	dtFlag       = flag.Float64("dt", 0, "time step in seconds (overrides .tran)")
	durationFlag = flag.Float64("duration", 0, "simulated time in seconds (overrides .tran)")
	emitFlag     = flag.Int("emit", 0, "steps between oscilloscope frames (overrides .tran)")
	untilStopped = flag.Bool("until-stopped", false, "run until interrupted instead of for a fixed duration")
	tableFlag    = flag.Bool("table", true, "print frames as a text table")
	printFlag    = flag.Bool("print", false, "print the assembled equations")
	plotFlag     = flag.String("plot", "", "write waveforms to an image (png, svg, pdf)")
	chartFlag    = flag.String("chart", "", "write waveforms to an HTML chart")
	jsonFlag     = flag.String("json", "", "write the recording as JSON")
	serveFlag    = flag.String("serve", "", "serve the live chart on this address, e.g. :8080")
	verboseFlag  = flag.Bool("v", false, "debug logging")
)

func getKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printResults(results map[string][]float64) {
	fmt.Println("\nAnalysis Results:")
	fmt.Println("================")

	var voltageNames, currentNames []string
	for _, name := range getKeys(results) {
		if strings.HasPrefix(name, "V(") {
			voltageNames = append(voltageNames, name)
		} else if strings.HasPrefix(name, "I(") {
			currentNames = append(currentNames, name)
		}
	}

	// DC Sweep
	if sweep1, isDC := results["SWEEP1"]; isDC {
		fmt.Printf("\nDC Sweep Analysis Results (%d points):\n", len(sweep1))
		for i := range sweep1 {
			fmt.Printf("SWEEP=%-11s  ", util.FormatValueFactor(sweep1[i], ""))
			for _, name := range voltageNames {
				fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "V"))
			}
			for _, name := range currentNames {
				fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
			}
			fmt.Println()
		}
		return
	}

	// Operating point
	fmt.Println("\nNode Voltages:")
	for _, name := range voltageNames {
		fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "V"))
	}
	fmt.Println("\nBranch Currents:")
	for _, name := range currentNames {
		fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "A"))
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func tranConfig(data *netlist.NetlistData, backend matrix.Backend) analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.Backend = backend

	if data.TranParam.TStep > 0 {
		cfg.TimeStep = data.TranParam.TStep
		cfg.Duration = data.TranParam.TStop
	}
	if data.TranParam.EmitEvery > 0 {
		cfg.EmitEvery = data.TranParam.EmitEvery
	}

	set := setFlags()
	if set["dt"] {
		cfg.TimeStep = *dtFlag
	}
	if set["duration"] {
		cfg.Duration = *durationFlag
	}
	if set["emit"] {
		cfg.EmitEvery = *emitFlag
	}
	cfg.UntilStopped = *untilStopped
	return cfg
}

func runTransient(ctx context.Context, sys *circuit.System, data *netlist.NetlistData, cfg analysis.Config) {
	sim, err := analysis.NewSimulator(sys, cfg)
	if err != nil {
		fatal("Simulator setup failed", err)
	}
	if len(data.Probes) > 0 {
		if err := sim.SetProbes(data.Probes); err != nil {
			fatal("Invalid probe", err)
		}
	}

	labels := scope.Labels(sim.Probes())
	recorder := scope.NewRecorder(labels)
	sinks := []scope.Sink{recorder}
	if *tableFlag {
		sinks = append(sinks, scope.NewTableWriter(os.Stdout, labels))
	}
	sim.SetSink(scope.Multi(sinks...))

	title := sys.Circuit.Name()
	chart := scope.NewChartWriter(title, recorder)

	var server *http.Server
	if *serveFlag != "" {
		mux := http.NewServeMux()
		mux.Handle("/", chart)
		server = &http.Server{Addr: *serveFlag, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("chart server failed", "error", err)
			}
		}()
		slog.Info("serving live chart", "addr", *serveFlag)
	}

	err = sim.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fatal("Transient analysis failed", err)
	}
	slog.Info("transient analysis done", "state", sim.State(), "t", sim.Time(), "steps", sim.Steps(), "frames", recorder.Len())

	rec := recorder.Snapshot()
	if *jsonFlag != "" {
		writeFile(*jsonFlag, recorder.Render)
	}
	if *plotFlag != "" {
		if err := scope.NewPlotWriter(title).Save(*plotFlag, rec); err != nil {
			fatal("Writing plot failed", err)
		}
	}
	if *chartFlag != "" {
		writeFile(*chartFlag, func(w io.Writer) error { return chart.Render(w, rec) })
	}

	if server != nil {
		if ctx.Err() == nil {
			slog.Info("simulation finished, still serving; interrupt to exit")
			<-ctx.Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
}

func writeFile(path string, render func(io.Writer) error) {
	f, err := os.Create(path)
	if err != nil {
		fatal("Creating output file failed", err)
	}
	defer f.Close()
	if err := render(f); err != nil {
		fatal("Writing output file failed", err)
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: spicy [flags] <netlist_file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	backend, err := matrix.ParseBackend(*backendFlag)
	if err != nil {
		fatal("Invalid backend", err)
	}

	// 1. Open and parse netlist
	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fatal("Error reading netlist file", err)
	}
	data, err := netlist.Parse(f)
	f.Close()
	if err != nil {
		fatal("Error parsing netlist", err)
	}
	for _, w := range data.Warnings {
		slog.Warn("skipping netlist line", "error", w)
	}

	// 2. Setup circuit
	ckt := circuit.New(strings.TrimSuffix(filepath.Base(flag.Arg(0)), filepath.Ext(flag.Arg(0))))
	netlist.Load(ckt, data)

	sys, err := circuit.Assemble(ckt)
	if err != nil {
		fatal("Assembling circuit failed", err)
	}
	if *printFlag {
		sys.Matrix.PrintSystem(os.Stdout)
	}

	// 3. Run analysis
	var analyzer analysis.Analysis
	switch data.Analysis {
	case netlist.AnalysisOP:
		analyzer = analysis.NewOP(backend)
	case netlist.AnalysisDC:
		param := data.DCParam
		analyzer, err = analysis.NewDCSweep(backend, param.Source, param.Start, param.Stop, param.Increment)
		if err != nil {
			fatal("Invalid DC sweep", err)
		}
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		runTransient(ctx, sys, data, tranConfig(data, backend))
		return
	}

	if err := analyzer.Setup(sys); err != nil {
		fatal("Analysis setup failed", err)
	}
	if err := analyzer.Execute(); err != nil {
		fatal("Analysis execution failed", err)
	}
	printResults(analyzer.GetResults())
}
