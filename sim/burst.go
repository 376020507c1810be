package sim

import (
	"fmt"
	"strings"
)

// BurstKind is the resource a burst demands.
type BurstKind int

const (
	CPU BurstKind = iota
	IO
)

func (k BurstKind) String() string {
	switch k {
	case CPU:
		return "CPU"
	case IO:
		return "IO"
	default:
		return fmt.Sprintf("BurstKind(%d)", int(k))
	}
}

// Valid reports whether k is CPU or IO.
func (k BurstKind) Valid() bool {
	return k == CPU || k == IO
}

// ParseBurstKind accepts "cpu"/"io" in any case.
func ParseBurstKind(s string) (BurstKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "io":
		return IO, nil
	default:
		return 0, fmt.Errorf("unknown burst kind %q; valid: cpu, io", s)
	}
}

// Burst is one contiguous demand for a single resource.
type Burst struct {
	Kind      BurstKind
	Remaining int
	// Slice marks a burst inserted by quantum slicing. Its completion is a
	// preemption rather than the end of a real burst.
	Slice bool
}

func (b Burst) String() string {
	return fmt.Sprintf("%s(%d)", b.Kind, b.Remaining)
}

// burstList is the owned, ordered burst sequence of a PCB. The head is index 0.
type burstList struct {
	items []Burst
}

func newBurstList(bursts []Burst) *burstList {
	items := make([]Burst, len(bursts))
	copy(items, bursts)
	return &burstList{items: items}
}

func (l *burstList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Head returns a pointer to the head burst, or nil if the list is empty.
func (l *burstList) Head() *Burst {
	if l == nil || len(l.items) == 0 {
		return nil
	}
	return &l.items[0]
}

func (l *burstList) PushFront(b Burst) {
	l.items = append([]Burst{b}, l.items...)
}

func (l *burstList) PopFront() Burst {
	b := l.items[0]
	l.items = l.items[1:]
	return b
}

// Snapshot returns a copy of the remaining bursts.
func (l *burstList) Snapshot() []Burst {
	if l == nil {
		return nil
	}
	out := make([]Burst, len(l.items))
	copy(out, l.items)
	return out
}
