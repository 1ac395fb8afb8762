package analysis

import (
	"fmt"
	"math"

	"github.com/monkey2000/spicy/internal/consts"
	"github.com/monkey2000/spicy/pkg/matrix"
)

// Config fixes the timestep and run length of a transient simulation.
type Config struct {
	TimeStep     float64 // Δt (s)
	Duration     float64 // total simulated time (s); <= 0 means no steps
	UntilStopped bool    // ignore Duration and run until Stop or cancellation
	EmitEvery    int     // steps between sink emissions
	Backend      matrix.Backend
}

func DefaultConfig() Config {
	return Config{
		TimeStep:  consts.DefaultTimeStep,
		Duration:  consts.DefaultDuration,
		EmitEvery: consts.DefaultEmitEvery,
		Backend:   matrix.DenseBackend,
	}
}

func (c Config) Validate() error {
	if !(c.TimeStep > 0) || math.IsInf(c.TimeStep, 0) {
		return fmt.Errorf("time step must be positive and finite, got %g", c.TimeStep)
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("duration must be finite, got %g", c.Duration)
	}
	if c.EmitEvery < 1 {
		return fmt.Errorf("emit cadence must be at least 1, got %d", c.EmitEvery)
	}
	if _, err := matrix.ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	return nil
}

// PlannedSteps is the number of steps needed to cover Duration.
func (c Config) PlannedSteps() int64 {
	return plannedSteps(c.Duration, c.TimeStep)
}

func plannedSteps(duration, dt float64) int64 {
	if !(duration > 0) {
		return 0
	}
	return int64(math.Ceil(duration/dt - consts.StepSlack))
}
