package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/coresim/sim"
	"github.com/inference-sim/coresim/sim/trace"
	"github.com/inference-sim/coresim/sim/workload"
)

// loadProcesses loads descriptor files followed by the processes of an
// optional workload spec, keeping that order for same-tick admission.
func loadProcesses(paths []string, specPath string) ([]*sim.Process, error) {
	procs, err := workload.LoadAll(paths)
	if err != nil {
		return nil, err
	}
	if specPath != "" {
		spec, err := workload.LoadWorkloadSpec(specPath)
		if err != nil {
			return nil, err
		}
		generated, err := workload.GenerateProcesses(spec)
		if err != nil {
			return nil, err
		}
		procs = append(procs, generated...)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes: pass descriptor files or --workload")
	}
	return procs, nil
}

// newSimulation builds a simulator from opts with every process queued.
func newSimulation(opts simOptions, procs []*sim.Process) (*sim.Simulator, error) {
	s, err := sim.NewSimulatorFromConfig(opts.SimConfig())
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		if err := s.AddProcess(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// attachTrace registers the observer for format on s. The returned function
// flushes the trace and must be called after the run.
func attachTrace(s *sim.Simulator, format, outPath string, color bool) (func() error, error) {
	switch format {
	case traceNone, "":
		return func() error { return nil }, nil

	case traceJSON, traceYAML:
		if outPath == "" {
			return nil, fmt.Errorf("--trace %s requires --trace-out", format)
		}
		st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelTicks})
		s.AddObserver(st)
		return func() error {
			summary := trace.Summarize(st)
			logrus.Infof("Trace: %d ticks, %d dispatches, %d preemptions, %d terminations",
				summary.TotalTicks, summary.Dispatches, summary.Preemptions, summary.Terminations)
			if format == traceJSON {
				return trace.SaveJSON(st, outPath)
			}
			return trace.SaveYAML(st, outPath)
		}, nil

	case traceText, traceJSONL:
		var w io.Writer = os.Stdout
		var f *os.File
		if outPath != "" {
			var err error
			if f, err = os.Create(outPath); err != nil {
				return nil, fmt.Errorf("creating trace file: %w", err)
			}
			w = f
		}
		var errOf func() error
		if format == traceText {
			tw := trace.NewTextWriter(w, color)
			s.AddObserver(tw)
			errOf = tw.Err
		} else {
			jw := trace.NewJSONLinesWriter(w)
			s.AddObserver(jw)
			errOf = jw.Err
		}
		return func() error {
			err := errOf()
			if f != nil {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}
			return err
		}, nil

	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}
