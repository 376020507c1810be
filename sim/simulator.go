// sim/simulator.go
package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/coresim/sim/trace"
)

// MaxCores bounds the number of core slots a simulator may allocate.
const MaxCores = 4096

var errShutdown = errors.New("simulator is shut down")

// Simulator is the core object that holds the logical clock, the process
// queues and the core slots. It is owned by the driver and advanced one tick
// at a time; it is not safe for concurrent use.
type Simulator struct {
	Clock int64
	// Pending holds processes that have not reached their arrival tick yet.
	Pending []*Process
	// Ready holds PCBs whose head burst is CPU and that are not on a core.
	Ready *PCBQueue
	// Waiting holds PCBs whose head burst is IO.
	Waiting *PCBQueue
	// Cores has one slot per simulated core; nil is an empty slot.
	// Its length never changes after construction.
	Cores []*PCB
	// Policy picks ready PCBs for free cores. Nil means plain FCFS without slicing.
	Policy SchedulingPolicy
	// CheckEachTick runs CheckInvariants at the end of every tick.
	CheckEachTick bool

	Metrics *Metrics

	observers []trace.Observer
	rec       *trace.TickRecord // record under construction, nil when nobody observes
	err       error             // sticky fatal error
	shut      bool
}

// NewSimulator allocates coreCount empty core slots and empty queues, with the
// clock at zero and no policy.
func NewSimulator(coreCount int) (*Simulator, error) {
	if coreCount < 1 {
		return nil, fmt.Errorf("core count must be positive, got %d", coreCount)
	}
	if coreCount > MaxCores {
		return nil, fmt.Errorf("%w: %d cores requested, limit is %d", ErrResourceExhaustion, coreCount, MaxCores)
	}
	return &Simulator{
		Clock:   0,
		Pending: make([]*Process, 0),
		Ready:   &PCBQueue{},
		Waiting: &PCBQueue{},
		Cores:   make([]*PCB, coreCount),
		Metrics: NewMetrics(coreCount),
	}, nil
}

// SetPolicy registers the scheduling policy. A nil policy selects FCFS.
func (sim *Simulator) SetPolicy(p SchedulingPolicy) {
	sim.Policy = p
}

// AddObserver registers an observer that receives one record per tick.
func (sim *Simulator) AddObserver(o trace.Observer) {
	sim.observers = append(sim.observers, o)
}

// Err returns the fatal error that aborted the simulation, if any.
func (sim *Simulator) Err() error {
	return sim.err
}

// AddProcess queues a process for admission at its arrival tick.
func (sim *Simulator) AddProcess(p *Process) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ArrivalTime < sim.Clock {
		return violationf(sim.Clock, p.PID, "arrival time %d is in the past", p.ArrivalTime)
	}
	if state, ok := sim.locate(p.PID); ok {
		return violationf(sim.Clock, p.PID, "pid already %s", state)
	}
	sim.Pending = append(sim.Pending, p)
	sim.Metrics.ProcessesAdded++
	return nil
}

// Admit converts a process arriving at the current tick into a PCB and routes
// it to the ready or waiting queue depending on its first burst.
func (sim *Simulator) Admit(p *Process) error {
	if err := sim.admit(p); err != nil {
		return err
	}
	sim.Metrics.ProcessesAdded++
	return nil
}

func (sim *Simulator) admit(p *Process) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("admitting at tick %d: %w", sim.Clock, err)
	}
	if p.ArrivalTime != sim.Clock {
		return violationf(sim.Clock, p.PID, "time mismatch in creation: arrival %d", p.ArrivalTime)
	}
	if state, ok := sim.locate(p.PID); ok {
		return violationf(sim.Clock, p.PID, "pid taken (%s)", state)
	}

	pcb := newPCB(p)
	sim.Metrics.ProcessesAdmitted++
	sim.note(trace.NoticeAdmit, pcb.PID, -1, 0)
	if sim.rec != nil {
		sim.rec.Admitted = append(sim.rec.Admitted, pcb.PID)
	}
	logrus.Debugf("[tick %07d] admit pid %d (%d bursts)", sim.Clock, pcb.PID, pcb.NumBursts())

	switch pcb.Head().Kind {
	case CPU:
		sim.Ready.Enqueue(pcb)
	case IO:
		sim.Waiting.Enqueue(pcb)
	default:
		return violationf(sim.Clock, pcb.PID, "illegal resource %d", int(pcb.Head().Kind))
	}
	return nil
}

// Tick performs one simulation step: admission, waiting advance, running
// advance, dispatch and bookkeeping, in that order. Any error is fatal and is
// returned again by every later call.
func (sim *Simulator) Tick() error {
	if sim.shut {
		return errShutdown
	}
	if sim.err != nil {
		return sim.err
	}
	if err := sim.step(); err != nil {
		sim.err = err
		sim.rec = nil
		logrus.Errorf("[tick %07d] simulation aborted: %v", sim.Clock, err)
		return err
	}
	return nil
}

func (sim *Simulator) step() error {
	if len(sim.observers) > 0 {
		sim.rec = &trace.TickRecord{Tick: sim.Clock}
	}

	if err := sim.admitArrivals(); err != nil {
		return err
	}
	if err := sim.advanceWaiting(); err != nil {
		return err
	}
	if err := sim.advanceRunning(); err != nil {
		return err
	}
	if err := sim.dispatch(); err != nil {
		return err
	}
	sim.bookkeeping()

	if sim.CheckEachTick {
		if err := sim.CheckInvariants(); err != nil {
			return err
		}
	}
	if sim.rec != nil {
		rec := *sim.rec
		sim.rec = nil
		for _, o := range sim.observers {
			o.ObserveTick(rec)
		}
	}
	sim.Clock++
	return nil
}

// admitArrivals removes every pending process arriving now, preserving the
// order of the rest, and admits them in list order.
func (sim *Simulator) admitArrivals() error {
	var arriving []*Process
	kept := sim.Pending[:0]
	for _, p := range sim.Pending {
		switch {
		case p.ArrivalTime == sim.Clock:
			arriving = append(arriving, p)
		case p.ArrivalTime < sim.Clock:
			return violationf(sim.Clock, p.PID, "missed arrival at tick %d", p.ArrivalTime)
		default:
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(sim.Pending); i++ {
		sim.Pending[i] = nil
	}
	sim.Pending = kept

	for _, p := range arriving {
		if err := sim.admit(p); err != nil {
			return err
		}
	}
	return nil
}

// advanceWaiting decrements the head IO burst of every waiting PCB. PCBs whose
// burst completes are moved to the back of the ready or waiting queue, or
// terminated when no bursts remain.
func (sim *Simulator) advanceWaiting() error {
	var requeue []*PCB
	snapshot := sim.Waiting.drain()
	stay := make([]*PCB, 0, len(snapshot))

	for i, pcb := range snapshot {
		e := pcb.Head()
		if e == nil || e.Kind != IO {
			// restore what has not been processed so the state stays inspectable
			sim.Waiting.queue = append(append(stay, snapshot[i:]...), requeue...)
			return violationf(sim.Clock, pcb.PID, "waiting with non-IO head burst %v", e)
		}
		e.Remaining--
		pcb.IOTicks++
		sim.Metrics.IOTicks++
		if sim.rec != nil {
			sim.rec.Waiting = append(sim.rec.Waiting, trace.WaitingEntry{PID: pcb.PID, Remaining: max(e.Remaining, 0)})
		}
		if e.Remaining > 0 {
			stay = append(stay, pcb)
			continue
		}

		pcb.bursts.PopFront()
		sim.note(trace.NoticeBurstEnd, pcb.PID, -1, 0)
		logrus.Debugf("[tick %07d] pid %d end IO burst", sim.Clock, pcb.PID)
		if pcb.NumBursts() == 0 {
			sim.terminate(pcb, -1)
			continue
		}
		switch pcb.Head().Kind {
		case CPU:
			sim.note(trace.NoticeMoveReady, pcb.PID, -1, 0)
			sim.Ready.Enqueue(pcb)
		case IO:
			sim.note(trace.NoticeMoveWaiting, pcb.PID, -1, 0)
			requeue = append(requeue, pcb)
		default:
			return violationf(sim.Clock, pcb.PID, "illegal resource %d", int(pcb.Head().Kind))
		}
	}
	sim.Waiting.queue = append(stay, requeue...)
	return nil
}

// advanceRunning decrements the head CPU burst of every occupied core in slot
// order. A core whose burst completes is emptied before dispatch runs.
func (sim *Simulator) advanceRunning() error {
	for core, pcb := range sim.Cores {
		if pcb == nil {
			continue
		}
		e := pcb.Head()
		if e == nil || e.Kind != CPU {
			return violationf(sim.Clock, pcb.PID, "running on core %d with non-CPU head burst %v", core, e)
		}
		e.Remaining--
		pcb.CPUTicks++
		sim.Metrics.CPUTicks++
		if e.Remaining > 0 {
			continue
		}

		done := pcb.bursts.PopFront()
		sim.Cores[core] = nil
		if done.Slice {
			pcb.Preemptions++
			sim.Metrics.Preemptions++
			sim.note(trace.NoticePreempt, pcb.PID, core, 0)
			logrus.Debugf("[tick %07d] pid %d quantum expired on core %d", sim.Clock, pcb.PID, core)
		} else {
			sim.note(trace.NoticeBurstEnd, pcb.PID, core, 0)
			logrus.Debugf("[tick %07d] pid %d end CPU burst on core %d", sim.Clock, pcb.PID, core)
		}
		if pcb.NumBursts() == 0 {
			sim.terminate(pcb, core)
			continue
		}
		switch pcb.Head().Kind {
		case CPU:
			sim.note(trace.NoticeMoveReady, pcb.PID, core, 0)
			sim.Ready.Enqueue(pcb)
		case IO:
			sim.note(trace.NoticeMoveWaiting, pcb.PID, core, 0)
			sim.Waiting.Enqueue(pcb)
		default:
			return violationf(sim.Clock, pcb.PID, "illegal resource %d", int(pcb.Head().Kind))
		}
	}
	return nil
}

// dispatch offers every empty core, in slot order, to the policy. Without a
// policy the front of the ready queue takes the slot as is.
func (sim *Simulator) dispatch() error {
	for core := range sim.Cores {
		if sim.Cores[core] != nil {
			continue
		}
		if sim.Policy != nil {
			if err := sim.Policy.Schedule(sim); err != nil {
				return fmt.Errorf("%s policy: %w", sim.Policy.Name(), err)
			}
			continue
		}
		if sim.Ready.Len() == 0 {
			continue
		}
		if err := sim.Place(sim.Ready.Dequeue(), core); err != nil {
			return err
		}
	}
	return nil
}

func (sim *Simulator) bookkeeping() {
	for core, pcb := range sim.Cores {
		if pcb == nil {
			sim.Metrics.CoreIdleTicks[core]++
			continue
		}
		pcb.TotalDuration++
		sim.Metrics.CoreBusyTicks[core]++
	}
	for _, pcb := range sim.Ready.Items() {
		pcb.ReadyTicks++
	}
	sim.Metrics.Ticks = sim.Clock + 1

	if sim.rec != nil {
		sim.rec.Cores = make([]trace.CoreEntry, len(sim.Cores))
		for core, pcb := range sim.Cores {
			entry := trace.CoreEntry{Core: core, PID: trace.IdlePID}
			if pcb != nil {
				entry.PID = pcb.PID
				if h := pcb.Head(); h != nil {
					entry.Remaining = h.Remaining
				}
			}
			sim.rec.Cores[core] = entry
		}
	}
}

// FreeCore returns the lowest-index empty core slot, or -1 if all are taken.
func (sim *Simulator) FreeCore() int {
	for core, pcb := range sim.Cores {
		if pcb == nil {
			return core
		}
	}
	return -1
}

// Place installs a PCB, already removed from the ready queue, into an empty
// core slot. Policies call it after selection and slicing.
func (sim *Simulator) Place(pcb *PCB, core int) error {
	if pcb == nil {
		return violationf(sim.Clock, -1, "nil pcb dispatched to core %d", core)
	}
	if core < 0 || core >= len(sim.Cores) {
		return violationf(sim.Clock, pcb.PID, "core %d out of range [0,%d)", core, len(sim.Cores))
	}
	if occupant := sim.Cores[core]; occupant != nil {
		return violationf(sim.Clock, pcb.PID, "core %d already runs pid %d", core, occupant.PID)
	}
	e := pcb.Head()
	if e == nil || e.Kind != CPU {
		return violationf(sim.Clock, pcb.PID, "dispatched with non-CPU head burst %v", e)
	}
	sim.Cores[core] = pcb
	pcb.Dispatches++
	if pcb.FirstDispatch < 0 {
		pcb.FirstDispatch = sim.Clock
	}
	sim.Metrics.Dispatches++
	sim.note(trace.NoticeDispatch, pcb.PID, core, e.Remaining)
	logrus.Debugf("[tick %07d] dispatch pid %d on core %d (burst %d)", sim.Clock, pcb.PID, core, e.Remaining)
	return nil
}

func (sim *Simulator) terminate(pcb *PCB, core int) {
	sim.note(trace.NoticeProcessEnd, pcb.PID, core, 0)
	sim.Metrics.recordCompletion(pcb, sim.Clock)
	logrus.Debugf("[tick %07d] end process pid %d", sim.Clock, pcb.PID)
}

func (sim *Simulator) note(kind trace.NoticeKind, pid, core, burst int) {
	if sim.rec == nil {
		return
	}
	sim.rec.Notices = append(sim.rec.Notices, trace.Notice{Kind: kind, PID: pid, Core: core, Burst: burst})
}

// IsQuiescent reports whether no process is pending, ready, waiting or running.
func (sim *Simulator) IsQuiescent() bool {
	if len(sim.Pending) > 0 || sim.Ready.Len() > 0 || sim.Waiting.Len() > 0 {
		return false
	}
	for _, pcb := range sim.Cores {
		if pcb != nil {
			return false
		}
	}
	return true
}

// Run ticks until the simulator is quiescent or a tick fails.
func (sim *Simulator) Run() error {
	logrus.Infof("[tick %07d] simulation started: %d cores, %d pending processes, policy %s",
		sim.Clock, len(sim.Cores), len(sim.Pending), PolicyName(sim.Policy))
	for !sim.IsQuiescent() {
		if err := sim.Tick(); err != nil {
			return err
		}
	}
	logrus.Infof("[tick %07d] simulation ended", sim.Clock)
	return nil
}

// Shutdown releases the queues and core slots. It is idempotent; Tick fails
// afterwards.
func (sim *Simulator) Shutdown() {
	if sim.shut {
		return
	}
	sim.shut = true
	for i := range sim.Pending {
		sim.Pending[i] = nil
	}
	sim.Pending = nil
	sim.Ready.Clear()
	sim.Waiting.Clear()
	for i := range sim.Cores {
		sim.Cores[i] = nil
	}
	sim.observers = nil
	sim.rec = nil
}

// StateOf reports the lifecycle state of pid. The second result is false for
// a pid the simulator has never seen.
func (sim *Simulator) StateOf(pid int) (ProcessState, bool) {
	if state, ok := sim.locate(pid); ok {
		return state, true
	}
	if _, ok := sim.Metrics.Completed[pid]; ok {
		return StateTerminated, true
	}
	return "", false
}

// locate finds a live or pending pid.
func (sim *Simulator) locate(pid int) (ProcessState, bool) {
	for _, p := range sim.Pending {
		if p.PID == pid {
			return StatePending, true
		}
	}
	if sim.Ready.IndexOf(pid) >= 0 {
		return StateReady, true
	}
	if sim.Waiting.IndexOf(pid) >= 0 {
		return StateWaiting, true
	}
	for _, pcb := range sim.Cores {
		if pcb != nil && pcb.PID == pid {
			return StateRunning, true
		}
	}
	return "", false
}

// LiveCount returns the number of processes pending, ready, waiting or running.
func (sim *Simulator) LiveCount() int {
	n := len(sim.Pending) + sim.Ready.Len() + sim.Waiting.Len()
	for _, pcb := range sim.Cores {
		if pcb != nil {
			n++
		}
	}
	return n
}

// CheckInvariants verifies the structural invariants that must hold between
// ticks: unique pids, non-empty burst sequences, queue membership matching the
// head burst kind, and a fixed number of core slots.
func (sim *Simulator) CheckInvariants() error {
	if len(sim.Cores) != sim.Metrics.NumCores() {
		return violationf(sim.Clock, -1, "core slot count changed from %d to %d", sim.Metrics.NumCores(), len(sim.Cores))
	}
	seen := make(map[int]ProcessState)
	claim := func(pid int, state ProcessState) error {
		if prev, ok := seen[pid]; ok {
			return violationf(sim.Clock, pid, "pid both %s and %s", prev, state)
		}
		seen[pid] = state
		return nil
	}
	for _, p := range sim.Pending {
		if err := claim(p.PID, StatePending); err != nil {
			return err
		}
	}
	check := func(pcb *PCB, state ProcessState, want BurstKind) error {
		if err := claim(pcb.PID, state); err != nil {
			return err
		}
		h := pcb.Head()
		if h == nil {
			return violationf(sim.Clock, pcb.PID, "%s with no bursts", state)
		}
		if h.Kind != want {
			return violationf(sim.Clock, pcb.PID, "%s with %s head burst", state, h.Kind)
		}
		return nil
	}
	for _, pcb := range sim.Ready.Items() {
		if err := check(pcb, StateReady, CPU); err != nil {
			return err
		}
	}
	for _, pcb := range sim.Waiting.Items() {
		if err := check(pcb, StateWaiting, IO); err != nil {
			return err
		}
	}
	for _, pcb := range sim.Cores {
		if pcb == nil {
			continue
		}
		if err := check(pcb, StateRunning, CPU); err != nil {
			return err
		}
	}
	return nil
}
