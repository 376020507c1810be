package sim

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ProcessRecord_TurnaroundAndResponse(t *testing.T) {
	// GIVEN pid 1 arriving at 2 behind a longer pid 0 on one core
	s := newTestSim(t, 1, nil, proc(0, 0, cpu(5)), proc(1, 2, cpu(2)))

	// WHEN running
	require.NoError(t, s.Run())

	// THEN pid 1 waits for pid 0 and its accounting reflects it
	rec := s.Metrics.Completed[1]
	require.NotNil(t, rec)
	assert.Equal(t, int64(2), rec.ArrivalTime)
	assert.Equal(t, int64(5), rec.FirstDispatch)
	assert.Equal(t, int64(3), rec.Response)
	assert.Equal(t, int64(7), rec.CompletionTick)
	assert.Equal(t, int64(6), rec.Turnaround)
	assert.Equal(t, int64(3), rec.ReadyTicks)
}

func TestMetrics_IOOnlyProcess_NeverDispatched(t *testing.T) {
	s := newTestSim(t, 1, nil, proc(1, 0, ioBurst(2)))
	require.NoError(t, s.Run())
	rec := s.Metrics.Completed[1]
	require.NotNil(t, rec)
	assert.Equal(t, int64(-1), rec.FirstDispatch)
	assert.Equal(t, int64(-1), rec.Response)
	assert.Equal(t, int64(2), rec.IOTicks)
}

func TestMetrics_CoreBusyIdle_SumToTicks(t *testing.T) {
	// GIVEN a mixed workload on 3 cores
	s := newTestSim(t, 3, &RoundRobin{Quantum: 3}, mixedWorkload()...)

	// WHEN running
	require.NoError(t, s.Run())

	// THEN every core accounts for every tick exactly once
	for core := range s.Cores {
		assert.Equal(t, s.Metrics.Ticks, s.Metrics.CoreBusyTicks[core]+s.Metrics.CoreIdleTicks[core], "core %d", core)
	}
	u := s.Metrics.Utilization()
	assert.Greater(t, u, 0.0)
	assert.LessOrEqual(t, u, 1.0)
}

func TestMetrics_Utilization_NoTicks_Zero(t *testing.T) {
	assert.Equal(t, 0.0, NewMetrics(2).Utilization())
}

func TestMetrics_Summarize_SortsByPID(t *testing.T) {
	s := newTestSim(t, 1, nil, proc(9, 0, cpu(1)), proc(3, 0, cpu(1)), proc(5, 0, cpu(1)))
	require.NoError(t, s.Run())

	out := s.Metrics.Summarize("fcfs")

	require.Len(t, out.Processes, 3)
	assert.Equal(t, 3, out.Processes[0].PID)
	assert.Equal(t, 5, out.Processes[1].PID)
	assert.Equal(t, 9, out.Processes[2].PID)
	assert.Equal(t, 9, s.Metrics.CompletionOrder[0].PID)
	assert.Equal(t, 3, out.CompletedProcesses)
	assert.Equal(t, "fcfs", out.Policy)
	assert.InDelta(t, float64(3)/float64(s.Metrics.Ticks), out.Throughput, 1e-12)
}

func TestMetrics_Print_ContainsHeadline(t *testing.T) {
	s := newTestSim(t, 2, nil, mixedWorkload()...)
	require.NoError(t, s.Run())

	var buf bytes.Buffer
	s.Metrics.Print(&buf, "fcfs")

	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Completed Processes  : 6/6")
	assert.Contains(t, out, "Average Turnaround")
}

func TestMetrics_SaveResults_WritesJSON(t *testing.T) {
	// GIVEN a finished run
	s := newTestSim(t, 2, &RoundRobin{Quantum: 2}, mixedWorkload()...)
	require.NoError(t, s.Run())
	path := filepath.Join(t.TempDir(), "results.json")

	// WHEN results are saved
	require.NoError(t, s.Metrics.SaveResults("rr", time.Now(), path))

	// THEN the file decodes into the report document
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out MetricsOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "rr", out.Policy)
	assert.Equal(t, 2, out.Cores)
	assert.Equal(t, 6, out.CompletedProcesses)
	assert.Len(t, out.Processes, 6)
	assert.Len(t, out.CoreBusyTicks, 2)
}
