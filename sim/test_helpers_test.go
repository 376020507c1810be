package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/coresim/sim/trace"
)

func cpu(d int) Burst     { return Burst{Kind: CPU, Remaining: d} }
func ioBurst(d int) Burst { return Burst{Kind: IO, Remaining: d} }

func proc(pid int, arrival int64, bursts ...Burst) *Process {
	return &Process{PID: pid, ArrivalTime: arrival, Bursts: bursts}
}

// newTestSim builds a simulator with invariant checking enabled after every tick.
func newTestSim(t *testing.T, cores int, policy SchedulingPolicy, procs ...*Process) *Simulator {
	t.Helper()
	s, err := NewSimulator(cores)
	require.NoError(t, err)
	s.SetPolicy(policy)
	s.CheckEachTick = true
	for _, p := range procs {
		require.NoError(t, s.AddProcess(p))
	}
	return s
}

// runRecorded ticks s to quiescence, failing the test after maxTicks, and
// returns every tick record.
func runRecorded(t *testing.T, s *Simulator, maxTicks int) []trace.TickRecord {
	t.Helper()
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelTicks})
	s.AddObserver(st)
	for i := 0; !s.IsQuiescent(); i++ {
		require.Less(t, i, maxTicks, "simulation did not reach quiescence within %d ticks", maxTicks)
		require.NoError(t, s.Tick())
	}
	return st.Ticks
}

// pids returns the PIDs of a queue in order.
func pids(q *PCBQueue) []int {
	out := make([]int, 0, q.Len())
	for _, p := range q.Items() {
		out = append(out, p.PID)
	}
	return out
}

// noticesOf collects notices of one kind across records, tagged with their tick.
type tickNotice struct {
	Tick int64
	trace.Notice
}

func noticesOf(records []trace.TickRecord, kind trace.NoticeKind) []tickNotice {
	var out []tickNotice
	for _, rec := range records {
		for _, n := range rec.NoticesOf(kind) {
			out = append(out, tickNotice{Tick: rec.Tick, Notice: n})
		}
	}
	return out
}

// mixedWorkload is a small multi-process workload exercising both queues.
func mixedWorkload() []*Process {
	return []*Process{
		proc(1, 0, cpu(7), ioBurst(3), cpu(2)),
		proc(2, 0, ioBurst(2), cpu(4), ioBurst(1)),
		proc(3, 1, cpu(12)),
		proc(4, 2, cpu(1), ioBurst(5), cpu(6), ioBurst(2), cpu(1)),
		proc(5, 2, cpu(3)),
		proc(6, 9, ioBurst(4), ioBurst(2), cpu(9)),
	}
}
