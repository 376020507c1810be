package sim

import "fmt"

// PolicyConfig groups scheduling policy selection.
type PolicyConfig struct {
	Name             string  // "fcfs" (default), "rr", "sjf"
	Quantum          int     // max ticks per dispatch for rr/sjf (must be >= 1)
	PredictionWeight float64 // sjf weight of the observed burst (0 = PredictionWeight)
}

// SimConfig groups everything needed to build a Simulator.
type SimConfig struct {
	Cores         int // number of core slots (1..MaxCores)
	Policy        PolicyConfig
	CheckEachTick bool // verify invariants after every tick
}

// Validate checks the configuration without building anything.
func (c SimConfig) Validate() error {
	if c.Cores < 1 {
		return fmt.Errorf("cores must be positive, got %d", c.Cores)
	}
	if c.Cores > MaxCores {
		return fmt.Errorf("%w: %d cores requested, limit is %d", ErrResourceExhaustion, c.Cores, MaxCores)
	}
	_, err := NewPolicy(c.Policy.Name, c.Policy.Quantum, c.Policy.PredictionWeight)
	return err
}

// NewSimulatorFromConfig builds a Simulator with its policy registered.
func NewSimulatorFromConfig(c SimConfig) (*Simulator, error) {
	policy, err := NewPolicy(c.Policy.Name, c.Policy.Quantum, c.Policy.PredictionWeight)
	if err != nil {
		return nil, err
	}
	s, err := NewSimulator(c.Cores)
	if err != nil {
		return nil, err
	}
	s.SetPolicy(policy)
	s.CheckEachTick = c.CheckEachTick
	return s, nil
}
