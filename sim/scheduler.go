package sim

import (
	"fmt"
	"math"
)

// PredictionWeight is the default weight of the observed burst in the SJF
// exponential average.
const PredictionWeight = 0.125

// SchedulingPolicy selects a ready PCB for a free core.
// Schedule is invoked once per free-slot dispatch opportunity. It must do
// nothing when the ready queue is empty; otherwise it removes exactly one PCB
// from the ready queue, places it on a free core and may slice its head burst.
type SchedulingPolicy interface {
	Name() string
	Schedule(sim *Simulator) error
}

// RoundRobin dispatches the front of the ready queue and slices its burst to
// at most Quantum ticks. Sliced PCBs re-enter the back of the ready queue on
// quantum expiry, which yields round-robin behavior across ticks.
type RoundRobin struct {
	Quantum int
}

func (r *RoundRobin) Name() string { return "rr" }

func (r *RoundRobin) Schedule(sim *Simulator) error {
	if sim.Ready.Len() == 0 {
		return nil
	}
	if err := checkQuantum(sim, r.Quantum); err != nil {
		return err
	}
	return dispatchAt(sim, 0, r.Quantum)
}

// SJFPrediction dispatches the ready PCB with the shortest predicted next
// burst, using an exponential average of the quantum-capped head burst:
//
//	predicted = Weight*min(head, Quantum) + (1-Weight)*PreviousPrediction
//
// Ties go to the PCB closest to the front of the ready queue. The winner's
// PreviousPrediction is updated with the value computed for the burst it is
// about to run, before it leaves the ready queue.
type SJFPrediction struct {
	Quantum int
	Weight  float64 // 0 selects PredictionWeight
}

func (s *SJFPrediction) Name() string { return "sjf" }

func (s *SJFPrediction) weight() float64 {
	if s.Weight == 0 {
		return PredictionWeight
	}
	return s.Weight
}

// Predict returns the predicted next burst of pcb without modifying it.
func (s *SJFPrediction) Predict(pcb *PCB) float64 {
	observed := min(pcb.Head().Remaining, s.Quantum)
	w := s.weight()
	return w*float64(observed) + (1-w)*pcb.PreviousPrediction
}

func (s *SJFPrediction) Schedule(sim *Simulator) error {
	if sim.Ready.Len() == 0 {
		return nil
	}
	if err := checkQuantum(sim, s.Quantum); err != nil {
		return err
	}
	best := -1
	bestPrediction := math.Inf(1)
	for i, pcb := range sim.Ready.Items() {
		h := pcb.Head()
		if h == nil || h.Kind != CPU {
			return violationf(sim.Clock, pcb.PID, "ready with non-CPU head burst %v", h)
		}
		if p := s.Predict(pcb); p < bestPrediction {
			best, bestPrediction = i, p
		}
	}
	sim.Ready.Items()[best].PreviousPrediction = bestPrediction
	return dispatchAt(sim, best, s.Quantum)
}

// checkQuantum rejects a quantum that would slice a burst into empty pieces
// forever.
func checkQuantum(sim *Simulator, quantum int) error {
	if quantum < 1 {
		return violationf(sim.Clock, -1, "quantum must be at least 1, got %d", quantum)
	}
	return nil
}

// dispatchAt removes the ready PCB at index i, slices its head burst to
// quantum and places it on the lowest free core.
func dispatchAt(sim *Simulator, i, quantum int) error {
	core := sim.FreeCore()
	if core < 0 {
		return violationf(sim.Clock, -1, "policy invoked with no free core")
	}
	pcb := sim.Ready.RemoveAt(i)
	if _, err := pcb.SliceHead(quantum); err != nil {
		return fmt.Errorf("tick %d: %w", sim.Clock, err)
	}
	return sim.Place(pcb, core)
}

// validPolicies lists the accepted policy names.
var validPolicies = map[string]bool{
	"":     true,
	"fcfs": true,
	"rr":   true,
	"sjf":  true,
}

// IsValidPolicy reports whether name is a recognized policy.
func IsValidPolicy(name string) bool {
	return validPolicies[name]
}

// NewPolicy creates a SchedulingPolicy by name.
// Valid names: "fcfs" (default, returns a nil policy: plain FCFS without
// slicing), "rr", "sjf". Quantum must be at least 1 for rr and sjf; weight
// must lie in [0, 1], with 0 selecting PredictionWeight.
func NewPolicy(name string, quantum int, weight float64) (SchedulingPolicy, error) {
	if !IsValidPolicy(name) {
		return nil, fmt.Errorf("unknown policy %q; valid: fcfs, rr, sjf", name)
	}
	if name == "" || name == "fcfs" {
		return nil, nil
	}
	if quantum < 1 {
		return nil, fmt.Errorf("quantum must be at least 1, got %d", quantum)
	}
	switch name {
	case "rr":
		return &RoundRobin{Quantum: quantum}, nil
	case "sjf":
		if math.IsNaN(weight) || weight < 0 || weight > 1 {
			return nil, fmt.Errorf("prediction weight must be in [0, 1] (0 selects %g), got %f", PredictionWeight, weight)
		}
		return &SJFPrediction{Quantum: quantum, Weight: weight}, nil
	default:
		panic(fmt.Sprintf("unhandled policy %q", name))
	}
}

// PolicyName returns p.Name(), or "fcfs" for a nil policy.
func PolicyName(p SchedulingPolicy) string {
	if p == nil {
		return "fcfs"
	}
	return p.Name()
}
