package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// JSONLinesWriter writes one JSON object per tick record, newline separated.
// The first encoding error is kept and later records are skipped.
type JSONLinesWriter struct {
	enc *json.Encoder
	err error
}

// NewJSONLinesWriter creates a JSONLinesWriter on w.
func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{enc: json.NewEncoder(w)}
}

// ObserveTick implements Observer.
func (jw *JSONLinesWriter) ObserveTick(rec TickRecord) {
	if jw.err != nil {
		return
	}
	jw.err = jw.enc.Encode(rec)
}

// Err returns the first encoding error, if any.
func (jw *JSONLinesWriter) Err() error {
	return jw.err
}

// SaveYAML writes the recorded ticks of st to path as a YAML sequence.
func SaveYAML(st *SimulationTrace, path string) error {
	data, err := yaml.Marshal(st.Ticks)
	if err != nil {
		return fmt.Errorf("marshalling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

// LoadYAML reads tick records previously written by SaveYAML.
func LoadYAML(path string) (*SimulationTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelTicks})
	if err := yaml.Unmarshal(data, &st.Ticks); err != nil {
		return nil, fmt.Errorf("parsing trace: %w", err)
	}
	return st, nil
}

// SaveJSON writes the recorded ticks of st to path as an indented JSON array.
func SaveJSON(st *SimulationTrace, path string) error {
	data, err := json.MarshalIndent(st.Ticks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
