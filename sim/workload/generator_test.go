package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/coresim/sim"
)

func TestGenerateProcesses_Deterministic(t *testing.T) {
	// GIVEN the same spec and seed
	// WHEN generated twice
	a, err := GenerateProcesses(generatorSpec())
	require.NoError(t, err)
	b, err := GenerateProcesses(generatorSpec())
	require.NoError(t, err)

	// THEN the processes are identical
	assert.Equal(t, a, b)
}

func TestGenerateProcesses_DifferentSeed_Differs(t *testing.T) {
	s2 := generatorSpec()
	s2.Seed = 43
	a, err := GenerateProcesses(generatorSpec())
	require.NoError(t, err)
	b, err := GenerateProcesses(s2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateProcesses_ShapeOfGeneratedProcesses(t *testing.T) {
	// GIVEN a generator of 8 processes starting at pid 100
	procs, err := GenerateProcesses(generatorSpec())
	require.NoError(t, err)

	// THEN pids are contiguous, arrivals non-decreasing, bursts alternate from CPU
	require.Len(t, procs, 8)
	seen := map[int]bool{}
	for i, p := range procs {
		require.NoError(t, p.Validate())
		seen[p.PID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, p.ArrivalTime, procs[i-1].ArrivalTime)
		}
		assert.LessOrEqual(t, len(p.Bursts), 5)
		for j, b := range p.Bursts {
			want := sim.CPU
			if j%2 == 1 {
				want = sim.IO
			}
			assert.Equal(t, want, b.Kind, "pid %d burst %d", p.PID, j)
			assert.GreaterOrEqual(t, b.Remaining, 1)
		}
	}
	for pid := 100; pid < 108; pid++ {
		assert.True(t, seen[pid], "pid %d missing", pid)
	}
	assert.Equal(t, int64(0), procs[0].ArrivalTime)
}

func TestGenerateProcesses_ConstantArrival_StartWithIO(t *testing.T) {
	// GIVEN constant arrivals every 2 ticks from tick 5 and IO-first bursts
	spec := &WorkloadSpec{Generator: &GeneratorSpec{
		Count:     3,
		Arrival:   ArrivalSpec{Process: "constant", Interval: 2, Start: 5},
		StartWith: "io",
		Bursts: BurstsSpec{
			Count: DistSpec{Type: "constant", Params: map[string]float64{"value": 3}},
			CPU:   DistSpec{Type: "constant", Params: map[string]float64{"value": 4}},
			IO:    DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
		},
	}}

	procs, err := GenerateProcesses(spec)

	require.NoError(t, err)
	require.Len(t, procs, 3)
	for i, p := range procs {
		assert.Equal(t, i, p.PID)
		assert.Equal(t, int64(5+2*i), p.ArrivalTime)
		assert.Equal(t, []sim.Burst{
			{Kind: sim.IO, Remaining: 1},
			{Kind: sim.CPU, Remaining: 4},
			{Kind: sim.IO, Remaining: 1},
		}, p.Bursts)
	}
}

func TestGenerateProcesses_ExplicitAndGenerated_StableArrivalOrder(t *testing.T) {
	// GIVEN an explicit process at tick 0 and a generator also starting at 0
	spec := &WorkloadSpec{
		Processes: []ProcessSpec{{PID: 1, Arrival: 0, Bursts: []BurstSpec{{Kind: "cpu", Duration: 2}}}},
		Generator: &GeneratorSpec{
			Count:    2,
			FirstPID: 10,
			Arrival:  ArrivalSpec{Process: "constant", Interval: 0},
			Bursts: BurstsSpec{
				Count: DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
				CPU:   DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
				IO:    DistSpec{Type: "constant", Params: map[string]float64{"value": 1}},
			},
		},
	}

	procs, err := GenerateProcesses(spec)

	// THEN the explicit process comes first among same-tick arrivals
	require.NoError(t, err)
	var pids []int
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	assert.Equal(t, []int{1, 10, 11}, pids)
}

func TestGenerateProcesses_InvalidSpec_ReturnsError(t *testing.T) {
	_, err := GenerateProcesses(&WorkloadSpec{})
	assert.Error(t, err)
}

func TestGenerateProcesses_RunsToQuiescence(t *testing.T) {
	// GIVEN a generated workload
	procs, err := GenerateProcesses(generatorSpec())
	require.NoError(t, err)

	// WHEN simulated under round robin on 2 cores
	s, err := sim.NewSimulator(2)
	require.NoError(t, err)
	s.SetPolicy(&sim.RoundRobin{Quantum: 3})
	s.CheckEachTick = true
	for _, p := range procs {
		require.NoError(t, s.AddProcess(p))
	}
	require.NoError(t, s.Run())

	// THEN every process completes
	assert.Equal(t, len(procs), s.Metrics.CompletedProcesses())
}
