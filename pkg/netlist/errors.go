package netlist

import "fmt"

// UnrecognizedKindError is reported for an element line whose name prefix is
// not a known element kind. The line is skipped.
type UnrecognizedKindError struct {
	Line int
	Kind string
}

func (e *UnrecognizedKindError) Error() string {
	return fmt.Sprintf("line %d: unrecognized type '%s'", e.Line, e.Kind)
}

// ParseError is reported for a malformed line. The line is skipped.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
