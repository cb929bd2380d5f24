package engine

import (
	"fmt"

	"github.com/relaykit/chainforge/pkg/event"
)

// StepError is the one error type the executor surfaces for any run-ending
// condition below validation: it wraps an underlying cause with a sentinel
// Kind so callers can taxonomy-switch on event.ErrorKind rather than on an
// unexported concrete error type.
type StepError struct {
	StepID string
	Kind   event.ErrorKind
	Err    error
}

func (e *StepError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %s: %s: %s", e.StepID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
