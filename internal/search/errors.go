package search

import (
	"errors"
	"fmt"
)

// ErrExhaustedRetries is returned when a bounded corrective loop gives up.
var ErrExhaustedRetries = errors.New("exhausted retries")

// Gate names, in the order the mutation loop applies them.
const (
	GateDuplicate = "duplicate"
	GateOverlap   = "overlap"
	GateHeight    = "height"
	GateRange     = "range"
	GateCount     = "count"
	GatePath      = "path"
)

// GateError reports the gate whose corrective loop ran out of attempts.
type GateError struct {
	Gate      string
	Iteration int
	Attempts  int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("iteration %d: %s gate: %v after %d attempts", e.Iteration, e.Gate, ErrExhaustedRetries, e.Attempts)
}

func (e *GateError) Unwrap() error { return ErrExhaustedRetries }
