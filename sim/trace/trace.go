package trace

// TraceLevel controls the verbosity of tick tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTicks captures one record per simulation tick.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelTicks: true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Observer receives every tick record as soon as the tick completes.
// Each record owns fresh slices, so observers may retain it.
type Observer interface {
	ObserveTick(rec TickRecord)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec TickRecord)

// ObserveTick calls f(rec).
func (f ObserverFunc) ObserveTick(rec TickRecord) {
	f(rec)
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects tick records during a simulation.
type SimulationTrace struct {
	Config TraceConfig
	Ticks  []TickRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Ticks:  make([]TickRecord, 0),
	}
}

// RecordTick appends a tick record. Records are dropped when the level is none.
func (st *SimulationTrace) RecordTick(record TickRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	st.Ticks = append(st.Ticks, record)
}

// ObserveTick implements Observer.
func (st *SimulationTrace) ObserveTick(rec TickRecord) {
	st.RecordTick(rec)
}
