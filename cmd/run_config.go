package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/coresim/sim"
)

// RunConfig is the optional YAML run configuration passed with --config.
// Unset fields keep the flag value; flags set on the command line win over
// the file.
type RunConfig struct {
	Cores            *int     `yaml:"cores"`
	Policy           *string  `yaml:"policy"`
	Quantum          *int     `yaml:"quantum"`
	PredictionWeight *float64 `yaml:"prediction_weight"`
	Trace            *string  `yaml:"trace"`
	CheckInvariants  *bool    `yaml:"check_invariants"`
}

// LoadRunConfig parses a run configuration file.
// Uses strict field checking: typos must cause errors.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var rc RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rc); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &rc, nil
}

// Trace output formats accepted by --trace.
const (
	traceNone  = "none"
	traceText  = "text"
	traceJSONL = "jsonl"
	traceJSON  = "json"
	traceYAML  = "yaml"
)

var validTraceFormats = map[string]bool{
	traceNone: true, traceText: true, traceJSONL: true, traceJSON: true, traceYAML: true,
}

// simOptions holds the simulation flags shared by run and serve.
type simOptions struct {
	Cores            int
	Policy           string
	Quantum          int
	PredictionWeight float64
	Trace            string
	CheckInvariants  bool
}

// withConfig overlays rc onto o for every flag the user did not set.
func (o simOptions) withConfig(rc *RunConfig, changed func(name string) bool) simOptions {
	if rc == nil {
		return o
	}
	if rc.Cores != nil && !changed("cores") {
		o.Cores = *rc.Cores
	}
	if rc.Policy != nil && !changed("policy") {
		o.Policy = *rc.Policy
	}
	if rc.Quantum != nil && !changed("quantum") {
		o.Quantum = *rc.Quantum
	}
	if rc.PredictionWeight != nil && !changed("prediction-weight") {
		o.PredictionWeight = *rc.PredictionWeight
	}
	if rc.Trace != nil && !changed("trace") {
		o.Trace = *rc.Trace
	}
	if rc.CheckInvariants != nil && !changed("check-invariants") {
		o.CheckInvariants = *rc.CheckInvariants
	}
	return o
}

// SimConfig converts the options into an engine configuration.
func (o simOptions) SimConfig() sim.SimConfig {
	return sim.SimConfig{
		Cores: o.Cores,
		Policy: sim.PolicyConfig{
			Name:             o.Policy,
			Quantum:          o.Quantum,
			PredictionWeight: o.PredictionWeight,
		},
		CheckEachTick: o.CheckInvariants,
	}
}

// Validate checks the trace format and the engine configuration.
func (o simOptions) Validate() error {
	if !validTraceFormats[o.Trace] {
		return fmt.Errorf("unknown trace format %q; valid: none, text, jsonl, json, yaml", o.Trace)
	}
	return o.SimConfig().Validate()
}
