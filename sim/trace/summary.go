package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTicks      int
	Admissions      int
	Terminations    int
	Dispatches      int
	Preemptions     int
	BurstsCompleted int
	IdleCoreTicks   int
	BusyCoreTicks   int
	DispatchesByPID map[int]int // pid → number of times placed on a core
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DispatchesByPID: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTicks = len(st.Ticks)
	for _, rec := range st.Ticks {
		summary.Admissions += len(rec.Admitted)
		for _, n := range rec.Notices {
			switch n.Kind {
			case NoticeProcessEnd:
				summary.Terminations++
			case NoticeDispatch:
				summary.Dispatches++
				summary.DispatchesByPID[n.PID]++
			case NoticePreempt:
				summary.Preemptions++
			case NoticeBurstEnd:
				summary.BurstsCompleted++
			}
		}
		for _, c := range rec.Cores {
			if c.Idle() {
				summary.IdleCoreTicks++
			} else {
				summary.BusyCoreTicks++
			}
		}
	}
	return summary
}
