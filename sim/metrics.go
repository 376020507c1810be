// Tracks simulation-wide and per-process scheduling metrics such as
// turnaround, response and ready-queue waiting times, and per-core utilization.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ProcessRecord holds the accounting of one terminated process.
type ProcessRecord struct {
	PID            int     `json:"pid"`
	ArrivalTime    int64   `json:"arrival_time"`
	FirstDispatch  int64   `json:"first_dispatch"` // -1 for a process that never ran on a core
	CompletionTick int64   `json:"completion_tick"`
	Turnaround     int64   `json:"turnaround"`
	Response       int64   `json:"response"` // first dispatch - arrival; -1 if never dispatched
	CPUTicks       int64   `json:"cpu_ticks"`
	IOTicks        int64   `json:"io_ticks"`
	ReadyTicks     int64   `json:"ready_ticks"`
	CoreTicks      int64   `json:"core_ticks"`
	Dispatches     int     `json:"dispatches"`
	Preemptions    int     `json:"preemptions"`
	LastPrediction float64 `json:"last_prediction"`
}

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	Ticks             int64 // ticks executed so far
	ProcessesAdded    int   // processes handed to the simulator
	ProcessesAdmitted int   // processes converted into PCBs
	Dispatches        int   // placements of a PCB on a core
	Preemptions       int   // quantum expiries
	CPUTicks          int64 // CPU burst ticks served across all cores
	IOTicks           int64 // IO burst ticks served across all waiting PCBs

	CoreBusyTicks []int64 // per core: ticks ending with the slot occupied
	CoreIdleTicks []int64 // per core: ticks ending with the slot empty

	// Completed maps pid -> record of its latest termination.
	Completed map[int]*ProcessRecord
	// CompletionOrder lists records in termination order.
	CompletionOrder []*ProcessRecord
}

// NewMetrics creates a Metrics for the given number of cores.
func NewMetrics(cores int) *Metrics {
	return &Metrics{
		CoreBusyTicks: make([]int64, cores),
		CoreIdleTicks: make([]int64, cores),
		Completed:     make(map[int]*ProcessRecord),
	}
}

// NumCores returns the number of core slots the metrics were created for.
func (m *Metrics) NumCores() int {
	return len(m.CoreBusyTicks)
}

// CompletedProcesses returns the number of terminations recorded.
func (m *Metrics) CompletedProcesses() int {
	return len(m.CompletionOrder)
}

func (m *Metrics) recordCompletion(pcb *PCB, tick int64) {
	rec := &ProcessRecord{
		PID:            pcb.PID,
		ArrivalTime:    pcb.ArrivalTime,
		FirstDispatch:  pcb.FirstDispatch,
		CompletionTick: tick,
		Turnaround:     tick - pcb.ArrivalTime + 1,
		Response:       -1,
		CPUTicks:       pcb.CPUTicks,
		IOTicks:        pcb.IOTicks,
		ReadyTicks:     pcb.ReadyTicks,
		CoreTicks:      pcb.TotalDuration,
		Dispatches:     pcb.Dispatches,
		Preemptions:    pcb.Preemptions,
		LastPrediction: pcb.PreviousPrediction,
	}
	if pcb.FirstDispatch >= 0 {
		rec.Response = pcb.FirstDispatch - pcb.ArrivalTime
	}
	m.Completed[pcb.PID] = rec
	m.CompletionOrder = append(m.CompletionOrder, rec)
}

// Utilization returns the fraction of core-ticks that ended with a PCB on the core.
func (m *Metrics) Utilization() float64 {
	var busy, total int64
	for i := range m.CoreBusyTicks {
		busy += m.CoreBusyTicks[i]
		total += m.CoreBusyTicks[i] + m.CoreIdleTicks[i]
	}
	if total == 0 {
		return 0
	}
	return float64(busy) / float64(total)
}

// Distribution summarizes a sample of tick counts.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

// MetricsOutput is the JSON document written by SaveResults.
type MetricsOutput struct {
	Policy             string          `json:"policy"`
	Cores              int             `json:"cores"`
	Ticks              int64           `json:"ticks"`
	ProcessesAdded     int             `json:"processes_added"`
	CompletedProcesses int             `json:"completed_processes"`
	Dispatches         int             `json:"dispatches"`
	Preemptions        int             `json:"preemptions"`
	Utilization        float64         `json:"utilization"`
	Throughput         float64         `json:"throughput"` // completed processes per tick
	Turnaround         Distribution    `json:"turnaround"`
	Response           Distribution    `json:"response"`
	ReadyWait          Distribution    `json:"ready_wait"`
	CoreBusyTicks      []int64         `json:"core_busy_ticks"`
	SimulationDuration float64         `json:"simulation_duration_s"` // wall clock, not deterministic
	Processes          []ProcessRecord `json:"processes"`
}

// Summarize builds the report document. Processes are listed by pid.
func (m *Metrics) Summarize(policy string) MetricsOutput {
	out := MetricsOutput{
		Policy:             policy,
		Cores:              m.NumCores(),
		Ticks:              m.Ticks,
		ProcessesAdded:     m.ProcessesAdded,
		CompletedProcesses: m.CompletedProcesses(),
		Dispatches:         m.Dispatches,
		Preemptions:        m.Preemptions,
		Utilization:        m.Utilization(),
		CoreBusyTicks:      append([]int64(nil), m.CoreBusyTicks...),
	}
	if m.Ticks > 0 {
		out.Throughput = float64(out.CompletedProcesses) / float64(m.Ticks)
	}

	turnaround := make([]float64, 0, len(m.CompletionOrder))
	response := make([]float64, 0, len(m.CompletionOrder))
	ready := make([]float64, 0, len(m.CompletionOrder))
	for _, rec := range m.CompletionOrder {
		turnaround = append(turnaround, float64(rec.Turnaround))
		if rec.Response >= 0 {
			response = append(response, float64(rec.Response))
		}
		ready = append(ready, float64(rec.ReadyTicks))
		out.Processes = append(out.Processes, *rec)
	}
	sort.SliceStable(out.Processes, func(i, j int) bool {
		if out.Processes[i].PID != out.Processes[j].PID {
			return out.Processes[i].PID < out.Processes[j].PID
		}
		return out.Processes[i].CompletionTick < out.Processes[j].CompletionTick
	})
	out.Turnaround = Describe(turnaround)
	out.Response = Describe(response)
	out.ReadyWait = Describe(ready)
	return out
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer, policy string) {
	out := m.Summarize(policy)
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Policy               : %s\n", out.Policy)
	fmt.Fprintf(w, "Cores                : %d\n", out.Cores)
	fmt.Fprintf(w, "Ticks                : %d\n", out.Ticks)
	fmt.Fprintf(w, "Completed Processes  : %d/%d\n", out.CompletedProcesses, out.ProcessesAdded)
	fmt.Fprintf(w, "Dispatches           : %d\n", out.Dispatches)
	fmt.Fprintf(w, "Preemptions          : %d\n", out.Preemptions)
	fmt.Fprintf(w, "Core Utilization     : %.2f%%\n", out.Utilization*100)
	if out.CompletedProcesses > 0 {
		fmt.Fprintf(w, "Average Turnaround   : %.2f ticks (p90 %.2f)\n", out.Turnaround.Mean, out.Turnaround.P90)
		fmt.Fprintf(w, "Average Response     : %.2f ticks (p90 %.2f)\n", out.Response.Mean, out.Response.P90)
		fmt.Fprintf(w, "Average Ready Wait   : %.2f ticks (p90 %.2f)\n", out.ReadyWait.Mean, out.ReadyWait.P90)
	}
}

// SaveResults prints the metrics to stdout and, when outputPath is set, writes
// them as JSON to outputPath.
func (m *Metrics) SaveResults(policy string, startTime time.Time, outputPath string) error {
	m.Print(os.Stdout, policy)
	if outputPath == "" {
		return nil
	}
	out := m.Summarize(policy)
	out.SimulationDuration = time.Since(startTime).Seconds()
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	logrus.Infof("Metrics written to %s", outputPath)
	return nil
}
