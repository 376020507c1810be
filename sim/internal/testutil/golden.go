// Package testutil provides shared test infrastructure for the coresim engine.
// It holds the golden dataset types and assertion helpers used by the sim/
// test package.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase represents a single scheduling scenario from the golden dataset.
type GoldenTestCase struct {
	Name      string          `json:"name"`
	Cores     int             `json:"cores"`
	Policy    string          `json:"policy"`
	Quantum   int             `json:"quantum"`
	Processes []GoldenProcess `json:"processes"`
	Metrics   GoldenMetrics   `json:"metrics"`
}

// GoldenProcess is one input process of a scenario.
type GoldenProcess struct {
	PID     int           `json:"pid"`
	Arrival int64         `json:"arrival"`
	Bursts  []GoldenBurst `json:"bursts"`
}

// GoldenBurst is one burst; Kind is "cpu" or "io".
type GoldenBurst struct {
	Kind     string `json:"kind"`
	Duration int    `json:"duration"`
}

// GoldenMetrics represents the expected outcome of a scenario.
type GoldenMetrics struct {
	// Exact match metrics
	Ticks           int64         `json:"ticks"`
	Dispatches      int           `json:"dispatches"`
	Preemptions     int           `json:"preemptions"`
	CompletionTicks map[int]int64 `json:"completion_ticks"` // pid -> tick of its process-end

	// Derived from the per-core busy/idle counters
	Utilization float64 `json:"utilization"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
