// Defines the Process struct, the load-time description of a simulated process.

package sim

import "fmt"

// Process is the immutable input describing one process: when it arrives and
// the bursts it will execute, in order. It is consumed once by admission.
type Process struct {
	PID         int
	ArrivalTime int64
	Bursts      []Burst
}

// Validate checks the structural requirements of a process: at least one
// burst, every burst of a known kind with a non-negative duration.
func (p *Process) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil process", ErrStructuralViolation)
	}
	if p.ArrivalTime < 0 {
		return fmt.Errorf("%w: pid %d has negative arrival time %d", ErrStructuralViolation, p.PID, p.ArrivalTime)
	}
	if len(p.Bursts) == 0 {
		return fmt.Errorf("%w: pid %d has no bursts", ErrStructuralViolation, p.PID)
	}
	for i, b := range p.Bursts {
		if !b.Kind.Valid() {
			return fmt.Errorf("%w: pid %d burst %d has unknown kind %d", ErrStructuralViolation, p.PID, i, int(b.Kind))
		}
		if b.Remaining < 0 {
			return fmt.Errorf("%w: pid %d burst %d has negative duration %d", ErrStructuralViolation, p.PID, i, b.Remaining)
		}
	}
	return nil
}

// TotalBurst returns the sum of all burst durations of the given kind.
func (p *Process) TotalBurst(kind BurstKind) int {
	total := 0
	for _, b := range p.Bursts {
		if b.Kind == kind {
			total += b.Remaining
		}
	}
	return total
}

func (p *Process) String() string {
	return fmt.Sprintf("Process: (PID: %d, ArrivalTime: %d, Bursts: %v)", p.PID, p.ArrivalTime, p.Bursts)
}
