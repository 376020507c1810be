// Package trace provides per-tick trace recording for scheduler simulations.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// NoticeKind names a state transition reported in a tick record.
type NoticeKind string

const (
	NoticeAdmit       NoticeKind = "admit"
	NoticeBurstEnd    NoticeKind = "burst-end"
	NoticeProcessEnd  NoticeKind = "process-end"
	NoticeMoveReady   NoticeKind = "move-ready"
	NoticeMoveWaiting NoticeKind = "move-waiting"
	NoticeDispatch    NoticeKind = "dispatch"
	NoticePreempt     NoticeKind = "preempt"
)

// IdlePID marks an empty core slot in a CoreEntry.
const IdlePID = -1

// Notice captures a single transition. Core is -1 when the transition did not
// happen on a core (admission, waiting queue).
type Notice struct {
	Kind  NoticeKind `json:"kind" yaml:"kind"`
	PID   int        `json:"pid" yaml:"pid"`
	Core  int        `json:"core" yaml:"core"`
	Burst int        `json:"burst,omitempty" yaml:"burst,omitempty"` // head burst length on dispatch
}

// WaitingEntry is a waiting PCB and the remaining ticks of its IO burst,
// taken right after the waiting queue advanced.
type WaitingEntry struct {
	PID       int `json:"pid" yaml:"pid"`
	Remaining int `json:"remaining" yaml:"remaining"`
}

// CoreEntry is the end-of-tick occupant of a core slot.
type CoreEntry struct {
	Core      int `json:"core" yaml:"core"`
	PID       int `json:"pid" yaml:"pid"` // IdlePID when the slot is empty
	Remaining int `json:"remaining" yaml:"remaining"`
}

// Idle reports whether the core slot was empty at the end of the tick.
func (c CoreEntry) Idle() bool {
	return c.PID == IdlePID
}

// TickRecord captures everything observable about one simulation tick.
type TickRecord struct {
	Tick     int64          `json:"tick" yaml:"tick"`
	Admitted []int          `json:"admitted,omitempty" yaml:"admitted,omitempty"`
	Waiting  []WaitingEntry `json:"waiting,omitempty" yaml:"waiting,omitempty"`
	Cores    []CoreEntry    `json:"cores" yaml:"cores"`
	Notices  []Notice       `json:"notices,omitempty" yaml:"notices,omitempty"`
}

// NoticesOf returns the notices of the given kind, in order.
func (r *TickRecord) NoticesOf(kind NoticeKind) []Notice {
	var out []Notice
	for _, n := range r.Notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
