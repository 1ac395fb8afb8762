package matrix

import "fmt"

// SingularSystemError is returned when the coefficient matrix cannot be
// inverted, e.g. because a node has no path to ground.
type SingularSystemError struct {
	Size int
	Cond float64
	Err  error
}

func (e *SingularSystemError) Error() string {
	msg := fmt.Sprintf("singular system (%dx%d, cond=%g)", e.Size, e.Size, e.Cond)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SingularSystemError) Unwrap() error { return e.Err }
