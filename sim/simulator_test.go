package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/coresim/sim/trace"
)

func TestNewSimulator_InvalidCoreCount_ReturnsError(t *testing.T) {
	_, err := NewSimulator(0)
	assert.Error(t, err)

	_, err = NewSimulator(MaxCores + 1)
	assert.ErrorIs(t, err, ErrResourceExhaustion)
}

func TestNewSimulator_InitialState(t *testing.T) {
	// GIVEN a fresh 4-core simulator
	s, err := NewSimulator(4)
	require.NoError(t, err)

	// THEN it has 4 empty slots, empty queues, clock 0, no policy
	assert.Len(t, s.Cores, 4)
	for _, pcb := range s.Cores {
		assert.Nil(t, pcb)
	}
	assert.Equal(t, int64(0), s.Clock)
	assert.Nil(t, s.Policy)
	assert.True(t, s.IsQuiescent())
}

// A single CPU burst of 3 on one core.
func TestSimulator_SingleBurst_CompletesAfterThreeRunningTicks(t *testing.T) {
	// GIVEN one core and pid 1 arriving at 0 with [CPU 3]
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(3)))

	// WHEN the simulation runs to quiescence
	records := runRecorded(t, s, 10)

	// THEN pid 1 is admitted and dispatched at tick 0
	require.Len(t, records, 4)
	assert.Equal(t, []int{1}, records[0].Admitted)
	dispatches := noticesOf(records, trace.NoticeDispatch)
	require.Len(t, dispatches, 1)
	assert.Equal(t, int64(0), dispatches[0].Tick)
	assert.Equal(t, 3, dispatches[0].Burst)

	// AND the end-of-tick core snapshots show 3, 2, 1 at ticks 0, 1, 2
	for tick, want := range []int{3, 2, 1} {
		assert.Equal(t, trace.CoreEntry{Core: 0, PID: 1, Remaining: want}, records[tick].Cores[0], "tick %d", tick)
	}

	// AND the burst and the process end during tick 3's running advance
	ends := noticesOf(records, trace.NoticeProcessEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, int64(3), ends[0].Tick)
	assert.Equal(t, 0, ends[0].Core)
	assert.True(t, records[3].Cores[0].Idle())

	// AND the engine is quiescent with the clock at 4
	assert.True(t, s.IsQuiescent())
	assert.Equal(t, int64(4), s.Clock)
	rec := s.Metrics.Completed[1]
	require.NotNil(t, rec)
	assert.Equal(t, int64(3), rec.CoreTicks)
	assert.Equal(t, int64(3), rec.CPUTicks)
}

// Round robin with quantum 5 splits a 12-tick burst into 5, 5, 2.
func TestSimulator_RoundRobin_SlicesLongBurst(t *testing.T) {
	// GIVEN one core, RR quantum 5 and pid 1 with [CPU 12]
	s := newTestSim(t, 1, &RoundRobin{Quantum: 5}, proc(1, 0, cpu(12)))

	// WHEN the first tick runs
	require.NoError(t, s.Tick())

	// THEN the head burst was sliced into a quantum-sized burst
	require.NotNil(t, s.Cores[0])
	assert.Equal(t, []Burst{{Kind: CPU, Remaining: 5, Slice: true}, cpu(7)}, s.Cores[0].Bursts())

	// WHEN the simulation continues to quiescence
	records := runRecorded(t, s, 30)

	// THEN the PCB cycled ready -> running three times with slices 5, 5, 2
	dispatches := noticesOf(records, trace.NoticeDispatch)
	require.Len(t, dispatches, 2) // the first dispatch happened before recording started
	assert.Equal(t, int64(5), dispatches[0].Tick)
	assert.Equal(t, 5, dispatches[0].Burst)
	assert.Equal(t, int64(10), dispatches[1].Tick)
	assert.Equal(t, 2, dispatches[1].Burst)

	preempts := noticesOf(records, trace.NoticePreempt)
	require.Len(t, preempts, 2)
	assert.Equal(t, int64(5), preempts[0].Tick)
	assert.Equal(t, int64(10), preempts[1].Tick)

	rec := s.Metrics.Completed[1]
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Dispatches)
	assert.Equal(t, 2, rec.Preemptions)
	assert.Equal(t, int64(12), rec.CompletionTick)
}

func TestSimulator_FCFS_NoPolicy_NoSlicing(t *testing.T) {
	// GIVEN no policy and a 12-tick burst
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(12)))

	// WHEN it runs
	records := runRecorded(t, s, 30)

	// THEN it is dispatched once and never preempted
	assert.Len(t, noticesOf(records, trace.NoticeDispatch), 1)
	assert.Empty(t, noticesOf(records, trace.NoticePreempt))
	assert.Equal(t, int64(12), s.Metrics.Completed[1].CompletionTick)
}

func TestSimulator_FCFS_FillsCoresInSlotOrder(t *testing.T) {
	// GIVEN 2 cores and three CPU-bound processes arriving together
	s := newTestSim(t, 2, nil,
		proc(1, 0, cpu(4)), proc(2, 0, cpu(4)), proc(3, 0, cpu(4)))

	// WHEN the first tick runs
	require.NoError(t, s.Tick())

	// THEN pid 1 and 2 occupy cores 0 and 1, pid 3 stays ready
	assert.Equal(t, 1, s.Cores[0].PID)
	assert.Equal(t, 2, s.Cores[1].PID)
	assert.Equal(t, []int{3}, pids(s.Ready))
}

func TestSimulator_IOFirstProcess_AdvancesInAdmissionTick(t *testing.T) {
	// GIVEN pid 1 starting with [IO 2, CPU 1]
	s := newTestSim(t, 1, nil, proc(1, 0, ioBurst(2), cpu(1)))

	// WHEN tick 0 runs
	records := runRecorded(t, s, 10)

	// THEN the IO burst is decremented in the admission tick
	require.Len(t, records[0].Waiting, 1)
	assert.Equal(t, trace.WaitingEntry{PID: 1, Remaining: 1}, records[0].Waiting[0])

	// AND at tick 1 the IO completes, the PCB moves to ready and is dispatched
	assert.Len(t, records[1].NoticesOf(trace.NoticeMoveReady), 1)
	assert.Len(t, records[1].NoticesOf(trace.NoticeDispatch), 1)

	// AND the CPU burst completes at tick 2
	ends := noticesOf(records, trace.NoticeProcessEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, int64(2), ends[0].Tick)
}

func TestSimulator_WaitingAdvance_IOToIORequeuesAtBack(t *testing.T) {
	// GIVEN pid 1 [IO 1, IO 2] ahead of pid 2 [IO 3] in the waiting queue
	s := newTestSim(t, 1, nil,
		proc(1, 0, ioBurst(1), ioBurst(2)), proc(2, 0, ioBurst(3)))

	// WHEN tick 0 runs
	require.NoError(t, s.Tick())

	// THEN pid 1 moved to the back and its next IO burst is untouched this tick
	assert.Equal(t, []int{2, 1}, pids(s.Waiting))
	assert.Equal(t, 2, s.Waiting.Items()[1].Head().Remaining)
	assert.Equal(t, 2, s.Waiting.Items()[0].Head().Remaining)
}

func TestSimulator_IOTerminatesProcessFromWaiting(t *testing.T) {
	// GIVEN a process whose last burst is IO
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(1), ioBurst(2)))

	// WHEN it runs
	records := runRecorded(t, s, 10)

	// THEN it terminates from the waiting queue (no core)
	ends := noticesOf(records, trace.NoticeProcessEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, -1, ends[0].Core)
	assert.Equal(t, int64(3), ends[0].Tick)
}

func TestSimulator_RunningToWaiting_FreesCoreForSameTickDispatch(t *testing.T) {
	// GIVEN pid 1 [CPU 1, IO 5] and pid 2 [CPU 2] on one core
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(1), ioBurst(5)), proc(2, 0, cpu(2)))

	// WHEN two ticks run
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())

	// THEN pid 1 blocked on IO and pid 2 took the core in the same tick
	assert.Equal(t, []int{1}, pids(s.Waiting))
	require.NotNil(t, s.Cores[0])
	assert.Equal(t, 2, s.Cores[0].PID)
	state, ok := s.StateOf(1)
	assert.True(t, ok)
	assert.Equal(t, StateWaiting, state)
}

func TestSimulator_ZeroDurationBurst_CompletesOnFirstDecrement(t *testing.T) {
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(0)))
	records := runRecorded(t, s, 5)
	ends := noticesOf(records, trace.NoticeProcessEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, int64(1), ends[0].Tick)
}

func TestSimulator_AdmissionTiming_ExactlyAtArrival(t *testing.T) {
	// GIVEN pid 7 arriving at tick 3
	s := newTestSim(t, 1, nil, proc(7, 3, cpu(1)))

	// WHEN ticks 0..2 run THEN pid 7 is still pending
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tick())
		state, ok := s.StateOf(7)
		require.True(t, ok)
		assert.Equal(t, StatePending, state, "after tick %d", i)
	}

	// WHEN tick 3 runs THEN it is admitted and running
	records := runRecorded(t, s, 10)
	assert.Equal(t, int64(3), records[0].Tick)
	assert.Equal(t, []int{7}, records[0].Admitted)
	state, ok := s.StateOf(7)
	assert.True(t, ok)
	assert.Equal(t, StateTerminated, state)
}

func TestSimulator_SameTickArrivals_AdmittedInListOrder(t *testing.T) {
	// GIVEN three arrivals at tick 0 interleaved with a later one
	s := newTestSim(t, 1, nil,
		proc(3, 0, cpu(1)), proc(9, 5, cpu(1)), proc(1, 0, cpu(1)), proc(2, 0, ioBurst(2)))

	// WHEN tick 0 runs
	records := runRecorded(t, s, 20)

	// THEN admissions follow list order and the later arrival stays pending
	assert.Equal(t, []int{3, 1, 2}, records[0].Admitted)
	assert.Equal(t, []int{9}, records[5].Admitted)
}

func TestSimulator_AddProcess_StructuralViolations(t *testing.T) {
	tests := []struct {
		name string
		p    *Process
	}{
		{"empty bursts", proc(1, 0)},
		{"unknown kind", proc(1, 0, Burst{Kind: BurstKind(7), Remaining: 1})},
		{"negative duration", proc(1, 0, cpu(-1))},
		{"negative arrival", proc(1, -2, cpu(1))},
		{"nil process", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSimulator(1)
			require.NoError(t, err)
			err = s.AddProcess(tt.p)
			assert.ErrorIs(t, err, ErrStructuralViolation)
		})
	}
}

func TestSimulator_AddProcess_DuplicatePID_ReturnsViolation(t *testing.T) {
	// GIVEN pid 1 already pending
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(5)))

	// WHEN another pid 1 is added
	err := s.AddProcess(proc(1, 2, cpu(1)))

	// THEN a structural violation naming the pid is returned
	require.ErrorIs(t, err, ErrStructuralViolation)
	var ve *ViolationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.PID)
}

func TestSimulator_Admit_PIDCollisionWithRunning_ReturnsViolation(t *testing.T) {
	// GIVEN pid 1 running after tick 0
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(5)))
	require.NoError(t, s.Tick())

	// WHEN pid 1 is admitted directly at the current tick
	err := s.Admit(proc(1, s.Clock, cpu(1)))

	// THEN the collision is reported
	assert.ErrorIs(t, err, ErrStructuralViolation)
}

func TestSimulator_Admit_TimeMismatch_ReturnsViolation(t *testing.T) {
	s := newTestSim(t, 1, nil)
	err := s.Admit(proc(1, 4, cpu(1)))
	assert.ErrorIs(t, err, ErrStructuralViolation)
}

func TestSimulator_Admit_Direct_RoutesByHeadBurst(t *testing.T) {
	s := newTestSim(t, 1, nil)
	require.NoError(t, s.Admit(proc(1, 0, cpu(1))))
	require.NoError(t, s.Admit(proc(2, 0, ioBurst(1))))
	assert.Equal(t, []int{1}, pids(s.Ready))
	assert.Equal(t, []int{2}, pids(s.Waiting))
	assert.Equal(t, 2, s.Metrics.ProcessesAdded)
}

func TestSimulator_Tick_CPUHeadInWaiting_IsFatal(t *testing.T) {
	// GIVEN a corrupted waiting queue holding a CPU-headed PCB
	s := newTestSim(t, 1, nil)
	s.CheckEachTick = false
	s.Waiting.Enqueue(newPCB(proc(1, 0, cpu(2))))

	// WHEN ticking
	err := s.Tick()

	// THEN a structural violation aborts the run, sticky across calls
	require.ErrorIs(t, err, ErrStructuralViolation)
	assert.Equal(t, err, s.Tick())
	assert.Equal(t, err, s.Err())
	assert.Equal(t, []int{1}, pids(s.Waiting))
}

func TestSimulator_Tick_IOHeadOnCore_IsFatal(t *testing.T) {
	s := newTestSim(t, 2, nil)
	s.CheckEachTick = false
	s.Cores[1] = newPCB(proc(4, 0, ioBurst(2)))

	err := s.Tick()

	require.ErrorIs(t, err, ErrStructuralViolation)
	var ve *ViolationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 4, ve.PID)
}

func TestSimulator_Tick_MissedArrival_IsFatal(t *testing.T) {
	// GIVEN a pending process whose arrival was skipped by direct manipulation
	s := newTestSim(t, 1, nil)
	s.Clock = 5
	s.Pending = append(s.Pending, proc(1, 2, cpu(1)))

	// THEN the tick refuses to continue instead of looping forever
	assert.ErrorIs(t, s.Tick(), ErrStructuralViolation)
}

func TestSimulator_Shutdown_IdempotentAndStopsTicks(t *testing.T) {
	s := newTestSim(t, 2, nil, proc(1, 0, cpu(3)), proc(2, 4, cpu(1)))
	require.NoError(t, s.Tick())

	s.Shutdown()
	s.Shutdown()

	assert.True(t, s.IsQuiescent())
	assert.Len(t, s.Cores, 2)
	assert.Error(t, s.Tick())
}

func TestSimulator_CheckInvariants_DetectsDuplicatePID(t *testing.T) {
	s := newTestSim(t, 1, nil)
	s.Ready.Enqueue(newPCB(proc(1, 0, cpu(2))))
	s.Cores[0] = newPCB(proc(1, 0, cpu(2)))
	assert.ErrorIs(t, s.CheckInvariants(), ErrStructuralViolation)
}

func TestSimulator_Run_MixedWorkload_TerminatesAndConserves(t *testing.T) {
	policies := map[string]SchedulingPolicy{
		"fcfs": nil,
		"rr":   &RoundRobin{Quantum: 2},
		"sjf":  &SJFPrediction{Quantum: 3},
	}
	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			// GIVEN a mixed workload on 2 cores
			s := newTestSim(t, 2, policy, mixedWorkload()...)
			added := s.Metrics.ProcessesAdded

			// WHEN every tick runs, checking conservation after each
			st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelTicks})
			s.AddObserver(st)
			for i := 0; !s.IsQuiescent(); i++ {
				require.Less(t, i, 500)
				require.NoError(t, s.Tick())
				assert.Equal(t, added, s.Metrics.CompletedProcesses()+s.LiveCount(), "conservation at tick %d", s.Clock-1)
			}

			// THEN every process terminated exactly once
			assert.Equal(t, added, s.Metrics.CompletedProcesses())
			assert.Equal(t, added, trace.Summarize(st).Terminations)
			for _, p := range mixedWorkload() {
				rec, ok := s.Metrics.Completed[p.PID]
				require.True(t, ok, "pid %d", p.PID)
				assert.Equal(t, int64(p.TotalBurst(CPU)), rec.CPUTicks, "pid %d cpu ticks", p.PID)
				assert.Equal(t, int64(p.TotalBurst(IO)), rec.IOTicks, "pid %d io ticks", p.PID)
			}
		})
	}
}

func TestSimulator_PIDUniqueness_HoldsEveryTick(t *testing.T) {
	// GIVEN RR on 3 cores with a mixed workload
	s := newTestSim(t, 3, &RoundRobin{Quantum: 1}, mixedWorkload()...)

	// WHEN running THEN no pid ever appears in two places at the end of a tick
	records := runRecorded(t, s, 500)
	for _, rec := range records {
		seen := map[int]bool{}
		for _, c := range rec.Cores {
			if c.Idle() {
				continue
			}
			assert.False(t, seen[c.PID], "tick %d: pid %d on two cores", rec.Tick, c.PID)
			seen[c.PID] = true
		}
	}
}

func TestSimulator_QuantumBound_NeverExceeded(t *testing.T) {
	for _, q := range []int{1, 2, 5} {
		// GIVEN RR and SJF with quantum q
		for _, policy := range []SchedulingPolicy{&RoundRobin{Quantum: q}, &SJFPrediction{Quantum: q}} {
			s := newTestSim(t, 2, policy, mixedWorkload()...)

			// WHEN running
			records := runRecorded(t, s, 500)

			// THEN no PCB holds a core for more than q ticks since its dispatch
			held := make([]int, 2)
			for _, rec := range records {
				for _, n := range rec.NoticesOf(trace.NoticeDispatch) {
					held[n.Core] = 0
				}
				for _, c := range rec.Cores {
					if c.Idle() {
						held[c.Core] = 0
						continue
					}
					held[c.Core]++
					assert.LessOrEqual(t, held[c.Core], q, "%s q=%d tick %d core %d", policy.Name(), q, rec.Tick, c.Core)
				}
			}
		}
	}
}

func TestSimulator_Determinism_IdenticalTraces(t *testing.T) {
	run := func() []trace.TickRecord {
		s := newTestSim(t, 2, &SJFPrediction{Quantum: 3}, mixedWorkload()...)
		return runRecorded(t, s, 500)
	}
	assert.Equal(t, run(), run())
}

func TestSimulator_Run_DrivesToQuiescence(t *testing.T) {
	s := newTestSim(t, 2, &RoundRobin{Quantum: 4}, mixedWorkload()...)
	require.NoError(t, s.Run())
	assert.True(t, s.IsQuiescent())
	assert.Equal(t, len(mixedWorkload()), s.Metrics.CompletedProcesses())
	assert.Equal(t, s.Clock, s.Metrics.Ticks)
}

func TestSimulator_TotalDuration_CountsOccupiedTicks(t *testing.T) {
	// GIVEN pid 1 [CPU 2, IO 1, CPU 2] alone on a core
	s := newTestSim(t, 1, nil, proc(1, 0, cpu(2), ioBurst(1), cpu(2)))

	// WHEN it runs
	require.NoError(t, s.Run())

	// THEN core occupancy is counted at the end of each occupied tick
	rec := s.Metrics.Completed[1]
	require.NotNil(t, rec)
	assert.Equal(t, int64(4), rec.CoreTicks)
	assert.Equal(t, 2, rec.Dispatches)
}
