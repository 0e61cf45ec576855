package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrRunning indicates a mutation or nested run attempted while a run is in progress.
	ErrRunning = errors.New("dynamo: simulation is running")

	// ErrInvalidParams indicates a parameter value is outside its valid range.
	ErrInvalidParams = errors.New("dynamo: invalid parameters")

	// ErrUnstable indicates an ion position became NaN or Inf.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrCoincident indicates two ions share a position with no softening set.
	ErrCoincident = errors.New("dynamo: coincident ions in coulomb evaluation")

	// ErrCanceled indicates the simulation was interrupted.
	ErrCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4e): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
