// Defines the PCB, the runtime record of an admitted process.
// Tracks the remaining bursts, the SJF prediction and per-process accounting.

package sim

import "fmt"

// ProcessState is the lifecycle state of a process. It is derived from where
// the process currently lives, never stored.
type ProcessState string

const (
	StatePending    ProcessState = "pending"
	StateReady      ProcessState = "ready"
	StateRunning    ProcessState = "running"
	StateWaiting    ProcessState = "waiting"
	StateTerminated ProcessState = "terminated"
)

// PCB models a single admitted process. Exactly one PCB exists per admitted
// process; it is dropped the instant its burst sequence empties.
type PCB struct {
	PID int

	bursts *burstList // head is the burst currently being served or awaited

	PreviousPrediction float64 // last SJF prediction; 0 for a fresh PCB
	TotalDuration      int64   // ticks spent occupying a core slot

	ArrivalTime   int64 // tick the process was admitted at
	FirstDispatch int64 // tick of the first dispatch, -1 until dispatched
	CPUTicks      int64 // CPU burst ticks served
	IOTicks       int64 // IO burst ticks served
	ReadyTicks    int64 // ticks spent in the ready queue at end of tick
	Dispatches    int   // times placed on a core
	Preemptions   int   // quantum expiries
}

func newPCB(p *Process) *PCB {
	return &PCB{
		PID:           p.PID,
		bursts:        newBurstList(p.Bursts),
		ArrivalTime:   p.ArrivalTime,
		FirstDispatch: -1,
	}
}

// Head returns the burst at the front of the sequence, or nil when empty.
// Policies may modify it in place.
func (p *PCB) Head() *Burst {
	return p.bursts.Head()
}

// Bursts returns a copy of the remaining burst sequence.
func (p *PCB) Bursts() []Burst {
	return p.bursts.Snapshot()
}

// NumBursts returns the length of the remaining burst sequence.
func (p *PCB) NumBursts() int {
	return p.bursts.Len()
}

// SliceHead applies quantum slicing to the head CPU burst: when it is longer
// than quantum, a CPU burst of exactly quantum ticks is pushed in front of it
// and the original is shortened by quantum. Returns whether a slice was made.
func (p *PCB) SliceHead(quantum int) (bool, error) {
	e := p.Head()
	if e == nil {
		return false, fmt.Errorf("%w: pid %d has no bursts to slice", ErrStructuralViolation, p.PID)
	}
	if e.Kind != CPU {
		return false, fmt.Errorf("%w: pid %d dispatched with %s head burst", ErrStructuralViolation, p.PID, e.Kind)
	}
	if e.Remaining <= quantum {
		return false, nil
	}
	e.Remaining -= quantum
	p.bursts.PushFront(Burst{Kind: CPU, Remaining: quantum, Slice: true})
	return true, nil
}

// This method returns a human-readable string representation of a PCB.
func (p PCB) String() string {
	return fmt.Sprintf("PCB: (PID: %d, Bursts: %v, Prediction: %.3f, Duration: %d)", p.PID, p.bursts.Snapshot(), p.PreviousPrediction, p.TotalDuration)
}
