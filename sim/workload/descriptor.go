package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/coresim/sim"
)

// Process descriptor keywords. A descriptor is a text file with one
// "PROCESS <pid> <arrival>" line followed by one burst line per burst:
//
//	PROCESS 1 0
//	CPU_BURST 7
//	IO_BURST 3
//
// Blank lines and lines starting with '#' are ignored.
const (
	keywordProcess = "PROCESS"
	keywordCPU     = "CPU_BURST"
	keywordIO      = "IO_BURST"
)

// Parse reads one process descriptor. A descriptor without bursts parses
// successfully; sim.Process.Validate rejects it later.
func Parse(r io.Reader) (*sim.Process, error) {
	var p *sim.Process
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case keywordProcess:
			if p != nil {
				return nil, fmt.Errorf("line %d: second %s line", lineNo, keywordProcess)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: want %s <pid> <arrival>, got %q", lineNo, keywordProcess, line)
			}
			pid, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad pid: %w", lineNo, err)
			}
			arrival, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad arrival: %w", lineNo, err)
			}
			p = &sim.Process{PID: pid, ArrivalTime: arrival}
		case keywordCPU, keywordIO:
			if p == nil {
				return nil, fmt.Errorf("line %d: burst before %s line", lineNo, keywordProcess)
			}
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: want %s <duration>, got %q", lineNo, fields[0], line)
			}
			d, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad duration: %w", lineNo, err)
			}
			kind := sim.CPU
			if fields[0] == keywordIO {
				kind = sim.IO
			}
			p.Bursts = append(p.Bursts, sim.Burst{Kind: kind, Remaining: d})
		default:
			return nil, fmt.Errorf("line %d: unknown keyword %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("no %s line", keywordProcess)
	}
	return p, nil
}

// Write renders p in descriptor format.
func Write(w io.Writer, p *sim.Process) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %d %d\n", keywordProcess, p.PID, p.ArrivalTime)
	for _, b := range p.Bursts {
		switch b.Kind {
		case sim.CPU:
			fmt.Fprintf(bw, "%s %d\n", keywordCPU, b.Remaining)
		case sim.IO:
			fmt.Fprintf(bw, "%s %d\n", keywordIO, b.Remaining)
		default:
			return fmt.Errorf("pid %d: cannot write burst of kind %s", p.PID, b.Kind)
		}
	}
	return bw.Flush()
}

// Load reads the descriptor at path.
func Load(path string) (*sim.Process, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening descriptor: %w", err)
	}
	defer f.Close()
	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path in descriptor format.
func Save(p *sim.Process, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating descriptor: %w", err)
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// LoadAll loads every descriptor in paths, in order. Descriptors without
// bursts are skipped with a warning.
func LoadAll(paths []string) ([]*sim.Process, error) {
	procs := make([]*sim.Process, 0, len(paths))
	for _, path := range paths {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		if len(p.Bursts) == 0 {
			logrus.Warnf("skipping %s: pid %d has no bursts", path, p.PID)
			continue
		}
		logrus.Infof("loaded %s: pid %d, %d bursts", path, p.PID, len(p.Bursts))
		procs = append(procs, p)
	}
	return procs, nil
}
