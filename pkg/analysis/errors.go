package analysis

import (
	"errors"
	"fmt"
)

var ErrAlreadyRunning = errors.New("simulation already running")

// DivergedSimulationError reports the first non-finite unknown of a step.
type DivergedSimulationError struct {
	Step  int64
	Time  float64
	Index int
	Value float64
}

func (e *DivergedSimulationError) Error() string {
	return fmt.Sprintf("simulation diverged at step %d (t=%g): x[%d] = %g", e.Step, e.Time, e.Index, e.Value)
}
