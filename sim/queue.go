// Implements the PCBQueue, the ordered container behind the ready and waiting queues.
// PCBs are appended at the back as they become ready or start waiting.

package sim

import (
	"fmt"
	"strings"
)

// PCBQueue represents a FIFO queue of PCBs. Moving a PCB between queues is a
// logical move: it is removed from one queue and enqueued on the other.
type PCBQueue struct {
	queue []*PCB // FIFO queue of PCBs
}

// Enqueue adds a PCB to the back of the queue.
func (q *PCBQueue) Enqueue(p *PCB) {
	if p == nil {
		panic("Enqueue: pcb must not be nil")
	}
	q.queue = append(q.queue, p)
}

func (q *PCBQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, p := range q.queue {
		sb.WriteString(fmt.Sprint(p.PID))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of PCBs in the queue.
func (q *PCBQueue) Len() int {
	return len(q.queue)
}

// Peek returns the PCB at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *PCBQueue) Peek() *PCB {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Dequeue removes the PCB at the front of the queue.
// Returns nil if the queue is empty.
func (q *PCBQueue) Dequeue() *PCB {
	if len(q.queue) == 0 {
		return nil
	}
	p := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return p
}

// RemoveAt detaches the PCB at index i, preserving the order of the rest.
// Panics if i is out of range.
func (q *PCBQueue) RemoveAt(i int) *PCB {
	if i < 0 || i >= len(q.queue) {
		panic(fmt.Sprintf("RemoveAt: index %d out of range [0,%d)", i, len(q.queue)))
	}
	p := q.queue[i]
	q.queue = append(q.queue[:i], q.queue[i+1:]...)
	return p
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers may iterate
// over it but MUST NOT append to or reslice it. Use RemoveAt to detach.
func (q *PCBQueue) Items() []*PCB {
	return q.queue
}

// IndexOf returns the position of the PCB with the given PID, or -1.
func (q *PCBQueue) IndexOf(pid int) int {
	for i, p := range q.queue {
		if p.PID == pid {
			return i
		}
	}
	return -1
}

// Clear drops every PCB in the queue.
func (q *PCBQueue) Clear() {
	for i := range q.queue {
		q.queue[i] = nil
	}
	q.queue = nil
}

// drain empties the queue and returns its former contents in order.
func (q *PCBQueue) drain() []*PCB {
	items := q.queue
	q.queue = nil
	return items
}
