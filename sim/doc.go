// Package sim provides the discrete-time simulation engine for coresim, a
// multi-core process scheduler simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - burst.go, process.go: the load-time process description (ordered CPU/IO bursts)
//   - pcb.go: the runtime record built at admission and its derived lifecycle state
//   - simulator.go: the tick loop (admission, waiting advance, running advance,
//     dispatch, bookkeeping) and the structural invariants
//   - scheduler.go: the SchedulingPolicy interface, round robin and SJF with
//     exponentially predicted bursts
//
// # Architecture
//
// The engine is a plain value owned by the driver; nothing is global. Every
// call to Tick runs to completion on the caller's goroutine. Sub-packages:
//   - sim/trace/: per-tick records, observers and summaries (no dependency on sim)
//   - sim/workload/: process descriptor load/save, YAML workload specs and
//     deterministic workload synthesis
//
// # Errors
//
// Defects in input data or policy logic surface as errors wrapping
// ErrStructuralViolation; allocation limits as ErrResourceExhaustion. Both are
// fatal: once Tick fails, every later call returns the same error.
package sim
