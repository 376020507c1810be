package trace

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiOrange  = "\x1b[38;5;208m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiReset   = "\x1b[0m"
)

// TextWriter renders tick records as a human-readable trace. The first write
// error is kept and every later record is skipped; check Err after the run.
type TextWriter struct {
	w     io.Writer
	color bool
	err   error
}

// NewTextWriter creates a TextWriter. With color set, lines are wrapped in
// ANSI color codes by category.
func NewTextWriter(w io.Writer, color bool) *TextWriter {
	return &TextWriter{w: w, color: color}
}

// Err returns the first write error, if any.
func (tw *TextWriter) Err() error {
	return tw.err
}

// ObserveTick implements Observer.
func (tw *TextWriter) ObserveTick(rec TickRecord) {
	if tw.err != nil {
		return
	}
	_, tw.err = io.WriteString(tw.w, FormatTick(rec, tw.color))
}

// FormatTick renders one tick record.
func FormatTick(rec TickRecord, color bool) string {
	var sb strings.Builder
	line := func(c, format string, args ...any) {
		if color && c != "" {
			sb.WriteString(c)
		}
		fmt.Fprintf(&sb, format, args...)
		if color && c != "" {
			sb.WriteString(ansiReset)
		}
		sb.WriteByte('\n')
	}

	line("", "************** TIME: %08d **************", rec.Tick)
	for _, pid := range rec.Admitted {
		line(ansiCyan, "\tcreate pid:%d", pid)
	}
	for _, w := range rec.Waiting {
		line(ansiMagenta, "\twaiting pid: %d remaining time:%d", w.PID, w.Remaining)
	}
	for _, n := range rec.Notices {
		switch n.Kind {
		case NoticeBurstEnd:
			line(noticeColor(n), "\t\tend burst pid:%d%s", n.PID, where(n))
		case NoticePreempt:
			line(ansiOrange, "\t\tquantum expired pid:%d%s", n.PID, where(n))
		case NoticeProcessEnd:
			line(ansiRed, "\t\tend process pid:%d%s", n.PID, where(n))
		case NoticeMoveReady:
			line(ansiOrange, "\t\tmove to ready pid:%d", n.PID)
		case NoticeMoveWaiting:
			line(ansiYellow, "\t\tmove to waiting pid:%d", n.PID)
		case NoticeDispatch:
			line(ansiGreen, "\t\tdispatch pid:%d on core:%d burst:%d", n.PID, n.Core, n.Burst)
		}
	}
	for _, c := range rec.Cores {
		if c.Idle() {
			line(ansiGreen, "\trunning pid: idle on core: %d", c.Core)
			continue
		}
		line(ansiGreen, "\trunning pid: %d on core: %d remaining time:%d", c.PID, c.Core, c.Remaining)
	}
	return sb.String()
}

func noticeColor(n Notice) string {
	if n.Core < 0 {
		return ansiMagenta
	}
	return ansiGreen
}

func where(n Notice) string {
	if n.Core < 0 {
		return " (io)"
	}
	return fmt.Sprintf(" (core %d)", n.Core)
}
