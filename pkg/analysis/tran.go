package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/monkey2000/spicy/pkg/circuit"
	"github.com/monkey2000/spicy/pkg/device"
	"github.com/monkey2000/spicy/pkg/matrix"
	"github.com/monkey2000/spicy/pkg/scope"
)

type State int32

const (
	Idle State = iota
	Running
	Stopped
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Simulator advances an assembled system with a fixed timestep. The matrix is
// factored once in NewSimulator; each step solves against the evolving
// right-hand side, then lets every dynamic element rewrite its slot.
type Simulator struct {
	sys    *circuit.System
	cfg    Config
	op     matrix.Operator
	b      []float64
	probes []scope.Probe
	sink   scope.Sink
	logger *slog.Logger

	stop  atomic.Bool
	state atomic.Int32
	steps atomic.Int64

	mu    sync.Mutex // guards limit, last and err
	limit int64
	last  []float64
	err   error
}

func NewSimulator(sys *circuit.System, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op, err := matrix.Factorize(sys.Matrix.Dense(), cfg.Backend)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		sys:    sys,
		cfg:    cfg,
		op:     op,
		b:      sys.B(),
		probes: scope.NodeProbes(sys.NodeCount),
		logger: slog.Default(),
		limit:  cfg.PlannedSteps(),
	}, nil
}

func (s *Simulator) SetLogger(logger *slog.Logger) { s.logger = logger }

// SetSink installs the frame consumer. Call before Start.
func (s *Simulator) SetSink(sink scope.Sink) { s.sink = sink }

// SetProbes replaces the default node-to-ground probes. Call before Start.
func (s *Simulator) SetProbes(probes []scope.Probe) error {
	for _, p := range probes {
		if p.From < 0 || p.To < 0 || p.From >= s.sys.NodeCount || p.To >= s.sys.NodeCount {
			return fmt.Errorf("probe %s outside nodes 0..%d", p.Label(), s.sys.NodeCount-1)
		}
	}
	s.probes = append([]scope.Probe(nil), probes...)
	return nil
}

func (s *Simulator) Probes() []scope.Probe { return append([]scope.Probe(nil), s.probes...) }

// SetDuration extends (or shortens) the run measured from t = 0, so that a
// completed simulation can be resumed further.
func (s *Simulator) SetDuration(duration float64) {
	s.mu.Lock()
	s.limit = plannedSteps(duration, s.cfg.TimeStep)
	s.mu.Unlock()
}

func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) State() State { return State(s.state.Load()) }

func (s *Simulator) IsRunning() bool { return s.State() == Running }

func (s *Simulator) Steps() int64 { return s.steps.Load() }

// Time is the time of the next solution, steps * Δt.
func (s *Simulator) Time() float64 { return float64(s.Steps()) * s.cfg.TimeStep }

// Stop asks a running loop to halt at the next step boundary.
func (s *Simulator) Stop() { s.stop.Store(true) }

// Probe reads the configured probes from a solution vector.
func (s *Simulator) Probe(x []float64) []float64 {
	values := make([]float64, len(s.probes))
	for i, p := range s.probes {
		values[i] = p.Read(x)
	}
	return values
}

// Solution returns a copy of the last solved vector, nil before the first step.
func (s *Simulator) Solution() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.last...)
}

// Start runs the loop on the calling goroutine until Stop, ctx cancellation
// or the planned step count. It resumes from the current time. The circuit is
// locked against mutation for the duration of the run.
func (s *Simulator) Start(ctx context.Context) error {
	cur := State(s.state.Load())
	if cur == Running {
		return ErrAlreadyRunning
	}
	if cur == Failed {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	}
	s.stop.Store(false)
	if !s.state.CompareAndSwap(int32(cur), int32(Running)) {
		return ErrAlreadyRunning
	}

	if err := s.sys.Circuit.Lock(); err != nil {
		s.state.Store(int32(cur))
		return err
	}
	defer s.sys.Circuit.Unlock()

	s.mu.Lock()
	limit := s.limit
	s.mu.Unlock()

	s.logger.Info("simulation started", "t", s.Time(), "dt", s.cfg.TimeStep, "steps", limit, "until_stopped", s.cfg.UntilStopped)

	for {
		if s.stop.Load() {
			s.finish(Stopped)
			return nil
		}
		select {
		case <-ctx.Done():
			s.finish(Stopped)
			return ctx.Err()
		default:
		}
		if !s.cfg.UntilStopped && s.Steps() >= limit {
			s.finish(Completed)
			return nil
		}

		if err := s.step(); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.state.Store(int32(Failed))
			s.logger.Error("simulation failed", "error", err)
			return err
		}
	}
}

func (s *Simulator) finish(state State) {
	s.state.Store(int32(state))
	s.logger.Info("simulation "+state.String(), "t", s.Time(), "steps", s.Steps())
}

func (s *Simulator) step() error {
	steps := s.steps.Load()
	t := float64(steps) * s.cfg.TimeStep

	x, err := s.op.Apply(s.b)
	if err != nil {
		return fmt.Errorf("solving step %d: %w", steps, err)
	}
	if i := firstNonFinite(x); i >= 0 {
		return &DivergedSimulationError{Step: steps, Time: t, Index: i, Value: x[i]}
	}

	s.mu.Lock()
	s.last = x
	s.mu.Unlock()

	if steps%int64(s.cfg.EmitEvery) == 0 {
		s.emit(t, x)
	}

	status := &device.CircuitStatus{Time: t, TimeStep: s.cfg.TimeStep}
	for _, d := range s.sys.Dynamic {
		s.b[d.Slot] = d.Device.UpdateState(x, d.Slot, status)
	}

	s.steps.Add(1)
	return nil
}

func (s *Simulator) emit(t float64, x []float64) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(t, s.Probe(x)); err != nil {
		s.logger.Warn("sink emit failed", "t", t, "error", err)
	}
}

// Transient wraps a Simulator as an Analysis, recording every emitted frame
// into the result map under "TIME" and the probe labels.
type Transient struct {
	BaseAnalysis
	cfg      Config
	sim      *Simulator
	recorder *scope.Recorder
}

func NewTransient(cfg Config) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(cfg.Backend),
		cfg:          cfg,
	}
}

func (tr *Transient) Setup(sys *circuit.System) error {
	tr.System = sys

	sim, err := NewSimulator(sys, tr.cfg)
	if err != nil {
		return fmt.Errorf("transient setup error: %w", err)
	}
	sim.SetLogger(tr.logger)
	tr.recorder = scope.NewRecorder(scope.Labels(sim.Probes()))
	sim.SetSink(tr.recorder)
	tr.sim = sim
	return nil
}

func (tr *Transient) Simulator() *Simulator { return tr.sim }

// SetProbes changes what is recorded. Call between Setup and Execute.
func (tr *Transient) SetProbes(probes []scope.Probe) error {
	if tr.sim == nil {
		return fmt.Errorf("circuit not set")
	}
	if err := tr.sim.SetProbes(probes); err != nil {
		return err
	}
	tr.recorder = scope.NewRecorder(scope.Labels(probes))
	tr.sim.SetSink(tr.recorder)
	return nil
}

func (tr *Transient) Recorder() *scope.Recorder { return tr.recorder }

func (tr *Transient) Execute() error {
	if tr.sim == nil {
		return fmt.Errorf("circuit not set")
	}
	if tr.cfg.UntilStopped {
		return fmt.Errorf("transient analysis needs a finite duration")
	}
	if err := tr.sim.Start(context.Background()); err != nil {
		return err
	}
	tr.results = tr.recorder.Results()
	return nil
}
