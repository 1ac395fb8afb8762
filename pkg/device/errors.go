package device

import "fmt"

// InvalidElementError reports an element whose parameters cannot be stamped.
type InvalidElementError struct {
	Name   string
	Reason string
}

func (e *InvalidElementError) Error() string {
	return fmt.Sprintf("invalid element %s: %s", e.Name, e.Reason)
}
