package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/coresim/sim"
)

// CurrentVersion is the workload spec format version written by this package.
const CurrentVersion = "1"

// WorkloadSpec is the top-level workload configuration.
// Loaded from YAML via LoadWorkloadSpec(path).
type WorkloadSpec struct {
	Version   string         `yaml:"version"`
	Seed      int64          `yaml:"seed"`
	Processes []ProcessSpec  `yaml:"processes,omitempty"`
	Generator *GeneratorSpec `yaml:"generator,omitempty"`
}

// ProcessSpec is one explicitly listed process.
type ProcessSpec struct {
	PID     int         `yaml:"pid"`
	Arrival int64       `yaml:"arrival"`
	Bursts  []BurstSpec `yaml:"bursts"`
}

// BurstSpec is one burst of an explicit process.
type BurstSpec struct {
	Kind     string `yaml:"kind"` // cpu | io
	Duration int    `yaml:"duration"`
}

// GeneratorSpec synthesizes Count processes with PIDs FirstPID, FirstPID+1, ...
type GeneratorSpec struct {
	Count     int         `yaml:"count"`
	FirstPID  int         `yaml:"first_pid"`
	Arrival   ArrivalSpec `yaml:"arrival"`
	Bursts    BurstsSpec  `yaml:"bursts"`
	StartWith string      `yaml:"start_with,omitempty"` // cpu (default) | io
}

// ArrivalSpec configures the inter-arrival process.
type ArrivalSpec struct {
	Process  string  `yaml:"process"`         // constant | poisson
	Interval float64 `yaml:"interval"`        // fixed gap, or mean gap for poisson
	Start    int64   `yaml:"start,omitempty"` // arrival tick of the first process
}

// BurstsSpec configures the burst sequence of generated processes. Bursts
// alternate between CPU and IO, starting with StartWith.
type BurstsSpec struct {
	Count DistSpec `yaml:"count"`
	CPU   DistSpec `yaml:"cpu"`
	IO    DistSpec `yaml:"io"`
}

// DistSpec parameterizes a duration distribution.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Valid value registries.
var (
	validArrivalProcesses = map[string]bool{
		"constant": true, "poisson": true,
	}
	validDistTypes = map[string]bool{
		"constant": true, "uniform": true, "exponential": true, "gaussian": true,
	}
	validStartKinds = map[string]bool{
		"": true, "cpu": true, "io": true,
	}
)

// LoadWorkloadSpec reads and parses a YAML workload specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	if spec.Version == "" {
		spec.Version = CurrentVersion
	}
	if spec.Version != CurrentVersion {
		logrus.Warnf("workload spec version %q is not %q; loading anyway", spec.Version, CurrentVersion)
	}
	return &spec, nil
}

// SaveWorkloadSpec writes spec to path as YAML.
func SaveWorkloadSpec(spec *WorkloadSpec, path string) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshalling workload spec: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing workload spec: %w", err)
	}
	return nil
}

// Validate checks that all fields in the spec are valid, including PID
// uniqueness across explicit and generated processes.
func (s *WorkloadSpec) Validate() error {
	if len(s.Processes) == 0 && s.Generator == nil {
		return fmt.Errorf("at least one process or a generator required")
	}
	pids := make(map[int]string)
	for i := range s.Processes {
		p := &s.Processes[i]
		prefix := fmt.Sprintf("processes[%d]", i)
		if err := validateProcess(prefix, p); err != nil {
			return err
		}
		if prev, ok := pids[p.PID]; ok {
			return fmt.Errorf("%s: pid %d already used by %s", prefix, p.PID, prev)
		}
		pids[p.PID] = prefix
	}
	if s.Generator == nil {
		return nil
	}
	if err := validateGenerator(s.Generator); err != nil {
		return err
	}
	for pid := s.Generator.FirstPID; pid < s.Generator.FirstPID+s.Generator.Count; pid++ {
		if prev, ok := pids[pid]; ok {
			return fmt.Errorf("generator: pid %d already used by %s", pid, prev)
		}
	}
	return nil
}

func validateProcess(prefix string, p *ProcessSpec) error {
	if p.PID < 0 {
		return fmt.Errorf("%s: pid must be non-negative, got %d", prefix, p.PID)
	}
	if p.Arrival < 0 {
		return fmt.Errorf("%s: arrival must be non-negative, got %d", prefix, p.Arrival)
	}
	if len(p.Bursts) == 0 {
		return fmt.Errorf("%s: at least one burst required", prefix)
	}
	for j, b := range p.Bursts {
		if _, err := sim.ParseBurstKind(b.Kind); err != nil {
			return fmt.Errorf("%s.bursts[%d]: %w", prefix, j, err)
		}
		if b.Duration < 0 {
			return fmt.Errorf("%s.bursts[%d]: duration must be non-negative, got %d", prefix, j, b.Duration)
		}
	}
	return nil
}

func validateGenerator(g *GeneratorSpec) error {
	if g.Count < 1 {
		return fmt.Errorf("generator: count must be positive, got %d", g.Count)
	}
	if g.FirstPID < 0 {
		return fmt.Errorf("generator: first_pid must be non-negative, got %d", g.FirstPID)
	}
	if !validArrivalProcesses[g.Arrival.Process] {
		return fmt.Errorf("generator.arrival: unknown process %q; valid: constant, poisson", g.Arrival.Process)
	}
	if math.IsNaN(g.Arrival.Interval) || math.IsInf(g.Arrival.Interval, 0) || g.Arrival.Interval < 0 {
		return fmt.Errorf("generator.arrival: interval must be a finite non-negative number, got %f", g.Arrival.Interval)
	}
	if g.Arrival.Process == "poisson" && g.Arrival.Interval == 0 {
		return fmt.Errorf("generator.arrival: poisson interval must be positive")
	}
	if g.Arrival.Start < 0 {
		return fmt.Errorf("generator.arrival: start must be non-negative, got %d", g.Arrival.Start)
	}
	if !validStartKinds[g.StartWith] {
		return fmt.Errorf("generator: unknown start_with %q; valid: cpu, io", g.StartWith)
	}
	for _, d := range []struct {
		name string
		spec *DistSpec
	}{
		{"generator.bursts.count", &g.Bursts.Count},
		{"generator.bursts.cpu", &g.Bursts.CPU},
		{"generator.bursts.io", &g.Bursts.IO},
	} {
		if err := validateDistSpec(d.name, d.spec); err != nil {
			return err
		}
	}
	return nil
}

func validateDistSpec(prefix string, d *DistSpec) error {
	if !validDistTypes[d.Type] {
		return fmt.Errorf("%s: unknown distribution type %q; valid: constant, uniform, exponential, gaussian", prefix, d.Type)
	}
	for name, val := range d.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%s.params.%s must be a finite number, got %f", prefix, name, val)
		}
	}
	if _, err := NewDurationSampler(*d); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// ExplicitProcesses converts the explicitly listed processes, in order. Generated
// processes are not included; see GenerateProcesses.
func (s *WorkloadSpec) ExplicitProcesses() ([]*sim.Process, error) {
	out := make([]*sim.Process, 0, len(s.Processes))
	for i := range s.Processes {
		p, err := s.Processes[i].toProcess()
		if err != nil {
			return nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (ps *ProcessSpec) toProcess() (*sim.Process, error) {
	p := &sim.Process{PID: ps.PID, ArrivalTime: ps.Arrival, Bursts: make([]sim.Burst, 0, len(ps.Bursts))}
	for _, b := range ps.Bursts {
		kind, err := sim.ParseBurstKind(b.Kind)
		if err != nil {
			return nil, err
		}
		p.Bursts = append(p.Bursts, sim.Burst{Kind: kind, Remaining: b.Duration})
	}
	return p, p.Validate()
}

// FromProcesses builds a spec listing procs explicitly.
func FromProcesses(procs []*sim.Process) *WorkloadSpec {
	spec := &WorkloadSpec{Version: CurrentVersion}
	for _, p := range procs {
		ps := ProcessSpec{PID: p.PID, Arrival: p.ArrivalTime, Bursts: make([]BurstSpec, 0, len(p.Bursts))}
		for _, b := range p.Bursts {
			kind := "cpu"
			if b.Kind == sim.IO {
				kind = "io"
			}
			ps.Bursts = append(ps.Bursts, BurstSpec{Kind: kind, Duration: b.Remaining})
		}
		spec.Processes = append(spec.Processes, ps)
	}
	return spec
}

// ComposeSpecs merges specs into one explicit spec. Each input is expanded
// with GenerateProcesses first; the result keeps the first spec's seed.
// A PID used by two inputs is an error.
func ComposeSpecs(specs []*WorkloadSpec) (*WorkloadSpec, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one spec file required")
	}
	var all []*sim.Process
	owner := make(map[int]int)
	for i, s := range specs {
		procs, err := GenerateProcesses(s)
		if err != nil {
			return nil, fmt.Errorf("spec %d: %w", i, err)
		}
		for _, p := range procs {
			if j, ok := owner[p.PID]; ok {
				return nil, fmt.Errorf("pid %d appears in spec %d and spec %d", p.PID, j, i)
			}
			owner[p.PID] = i
		}
		all = append(all, procs...)
	}
	sortByArrival(all)
	merged := FromProcesses(all)
	merged.Seed = specs[0].Seed
	return merged, nil
}
