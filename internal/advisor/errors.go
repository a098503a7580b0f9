package advisor

import (
	"errors"
	"fmt"
)

// ErrImplausible marks requests the feasibility gate rejected. It is never
// retried; the reasoning is meant for the caller.
var ErrImplausible = errors.New("chemically implausible request")

// ImplausibleError carries the model's reasoning for a rejection.
type ImplausibleError struct {
	Reasoning string
}

func (e *ImplausibleError) Error() string {
	return fmt.Sprintf("chemically implausible request: %s", e.Reasoning)
}

// Is reports true for ErrImplausible so sentinel checks work through
// wrapping.
func (e *ImplausibleError) Is(target error) bool { return target == ErrImplausible }
