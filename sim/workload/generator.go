package workload

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/coresim/sim"
)

// GenerateProcesses expands a WorkloadSpec into processes: the explicit ones
// followed by the synthesized ones, stably sorted by arrival time so processes
// arriving in the same tick keep that order.
// Deterministic given the same spec and seed.
func GenerateProcesses(spec *WorkloadSpec) ([]*sim.Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	procs, err := spec.ExplicitProcesses()
	if err != nil {
		return nil, err
	}
	if spec.Generator != nil {
		generated, err := synthesize(spec.Generator, spec.Seed)
		if err != nil {
			return nil, err
		}
		procs = append(procs, generated...)
	}
	sortByArrival(procs)
	logrus.Debugf("workload: %d processes (%d explicit)", len(procs), len(spec.Processes))
	return procs, nil
}

func synthesize(g *GeneratorSpec, seed int64) ([]*sim.Process, error) {
	rng := NewPartitionedRNG(seed)
	arrivalRNG := rng.ForSubsystem(SubsystemArrival)
	burstRNG := rng.ForSubsystem(SubsystemBursts)

	arrivals := NewArrivalSampler(g.Arrival)
	countSampler, err := NewDurationSampler(g.Bursts.Count)
	if err != nil {
		return nil, fmt.Errorf("burst count distribution: %w", err)
	}
	cpuSampler, err := NewDurationSampler(g.Bursts.CPU)
	if err != nil {
		return nil, fmt.Errorf("cpu distribution: %w", err)
	}
	ioSampler, err := NewDurationSampler(g.Bursts.IO)
	if err != nil {
		return nil, fmt.Errorf("io distribution: %w", err)
	}

	first := sim.CPU
	if g.StartWith == "io" {
		first = sim.IO
	}

	procs := make([]*sim.Process, 0, g.Count)
	arrival := g.Arrival.Start
	for i := 0; i < g.Count; i++ {
		if i > 0 {
			arrival += arrivals.SampleGap(arrivalRNG)
		}
		// per-process RNG (derived from the burst RNG for isolation)
		procRNG := newRandFromSeed(burstRNG.Int63())
		n := countSampler.Sample(procRNG)
		p := &sim.Process{PID: g.FirstPID + i, ArrivalTime: arrival, Bursts: make([]sim.Burst, 0, n)}
		kind := first
		for j := 0; j < n; j++ {
			d := cpuSampler
			if kind == sim.IO {
				d = ioSampler
			}
			p.Bursts = append(p.Bursts, sim.Burst{Kind: kind, Remaining: d.Sample(procRNG)})
			if kind == sim.CPU {
				kind = sim.IO
			} else {
				kind = sim.CPU
			}
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func sortByArrival(procs []*sim.Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].ArrivalTime < procs[j].ArrivalTime
	})
}

// newRandFromSeed creates a new *rand.Rand from a seed (avoids importing math/rand in callers).
func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
