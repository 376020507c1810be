package workload

import (
	"math"
	"math/rand"
)

// ArrivalSampler generates gaps between consecutive process arrivals.
type ArrivalSampler interface {
	// SampleGap returns the next inter-arrival gap in ticks (>= 0).
	// A zero gap admits two processes in the same tick.
	SampleGap(rng *rand.Rand) int64
}

// ConstantArrival spaces arrivals exactly interval ticks apart.
type ConstantArrival struct {
	interval int64
}

func (s *ConstantArrival) SampleGap(_ *rand.Rand) int64 {
	return s.interval
}

// PoissonArrival generates exponentially-distributed gaps with the given mean,
// rounded to whole ticks.
type PoissonArrival struct {
	mean float64
}

func (s *PoissonArrival) SampleGap(rng *rand.Rand) int64 {
	gap := math.Round(rng.ExpFloat64() * s.mean)
	if math.IsInf(gap, 0) || math.IsNaN(gap) || gap < 0 {
		return 0
	}
	return int64(gap)
}

// NewArrivalSampler creates an ArrivalSampler from a validated spec.
func NewArrivalSampler(spec ArrivalSpec) ArrivalSampler {
	switch spec.Process {
	case "poisson":
		return &PoissonArrival{mean: spec.Interval}
	default:
		return &ConstantArrival{interval: int64(math.Round(spec.Interval))}
	}
}
