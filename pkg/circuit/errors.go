package circuit

import (
	"errors"
	"fmt"
)

var ErrCircuitBusy = errors.New("circuit is locked by a running simulation")

type DuplicateElementError struct {
	Name string
}

func (e *DuplicateElementError) Error() string {
	return fmt.Sprintf("element %s already exists", e.Name)
}

// UnresolvedReferenceError reports a current-controlled source whose
// controlling element is missing or cannot provide a controlling current.
type UnresolvedReferenceError struct {
	Name string
	Ref  string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("cannot recognize reference component '%s' of %s", e.Ref, e.Name)
}

type AssemblyError struct {
	Circuit string
	Size    int
	Err     error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling circuit %q (size %d): %v", e.Circuit, e.Size, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
