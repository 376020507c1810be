package sim

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Neither is retried: both mean corrupted input or a broken
// policy contract, and the simulator refuses further ticks once one is returned.
var (
	// ErrStructuralViolation reports a defect in process data or policy logic.
	ErrStructuralViolation = errors.New("structural violation")
	// ErrResourceExhaustion reports that runtime structures could not be allocated.
	ErrResourceExhaustion = errors.New("resource exhaustion")
)

// ViolationError describes a structural violation with the tick and PID it was
// detected at. PID is -1 when no single process is involved.
type ViolationError struct {
	Tick   int64
	PID    int
	Reason string
}

func (e *ViolationError) Error() string {
	if e.PID < 0 {
		return fmt.Sprintf("%v at tick %d: %s", ErrStructuralViolation, e.Tick, e.Reason)
	}
	return fmt.Sprintf("%v at tick %d (pid %d): %s", ErrStructuralViolation, e.Tick, e.PID, e.Reason)
}

// Unwrap lets errors.Is match ErrStructuralViolation.
func (e *ViolationError) Unwrap() error {
	return ErrStructuralViolation
}

func violationf(tick int64, pid int, format string, args ...any) error {
	return &ViolationError{Tick: tick, PID: pid, Reason: fmt.Sprintf(format, args...)}
}
