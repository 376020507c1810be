package workload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inference-sim/coresim/sim"
)

// ConvertDescriptors loads descriptor files and returns an equivalent
// explicit workload spec.
func ConvertDescriptors(paths []string) (*WorkloadSpec, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one descriptor file required")
	}
	procs, err := LoadAll(paths)
	if err != nil {
		return nil, err
	}
	spec := FromProcesses(procs)
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("converted spec: %w", err)
	}
	return spec, nil
}

// ExportDescriptors expands spec and writes one descriptor per process into
// dir, named "<pid>.txt". Returns the written paths in process order.
func ExportDescriptors(spec *WorkloadSpec, dir string) ([]string, error) {
	procs, err := GenerateProcesses(spec)
	if err != nil {
		return nil, err
	}
	return SaveAll(procs, dir)
}

// SaveAll writes one descriptor per process into dir, creating it if needed.
func SaveAll(procs []*sim.Process, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	paths := make([]string, 0, len(procs))
	for _, p := range procs {
		path := filepath.Join(dir, fmt.Sprintf("%d.txt", p.PID))
		if err := Save(p, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
