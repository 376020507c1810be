package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/coresim/sim"
	"github.com/inference-sim/coresim/sim/trace"
)

// Stream message types sent over /trace.
const (
	msgTick    = "tick"
	msgSummary = "summary"
	msgError   = "error"
)

// StreamMessage is one WebSocket text message of a streamed run.
type StreamMessage struct {
	Type    string             `json:"type"`
	Tick    *trace.TickRecord  `json:"tick,omitempty"`
	Summary *sim.MetricsOutput `json:"summary,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// TraceServer streams fresh deterministic runs of one workload to WebSocket
// clients. Every connection gets its own simulator; the processes are shared
// read-only.
type TraceServer struct {
	opts     simOptions
	procs    []*sim.Process
	upgrader websocket.Upgrader
	runs     atomic.Int64
}

// NewTraceServer creates a TraceServer for the given options and processes.
func NewTraceServer(opts simOptions, procs []*sim.Process) *TraceServer {
	return &TraceServer{
		opts:  opts,
		procs: procs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes: GET /health and GET /trace (WebSocket).
func (ts *TraceServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/trace", ts.handleTrace)
	return mux
}

// Runs returns the number of runs streamed so far.
func (ts *TraceServer) Runs() int64 {
	return ts.runs.Load()
}

func (ts *TraceServer) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s, err := newSimulation(ts.opts, ts.procs)
	if err != nil {
		logrus.Errorf("serve: building simulator: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer s.Shutdown()

	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("serve: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	run := ts.runs.Add(1)
	logrus.Infof("serve: run %d started for %s", run, r.RemoteAddr)

	var writeErr error
	s.AddObserver(trace.ObserverFunc(func(rec trace.TickRecord) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(StreamMessage{Type: msgTick, Tick: &rec})
	}))

	ctx := r.Context()
	for !s.IsQuiescent() {
		if err := ctx.Err(); err != nil {
			logrus.Infof("serve: run %d cancelled: %v", run, err)
			return
		}
		if err := s.Tick(); err != nil {
			_ = conn.WriteJSON(StreamMessage{Type: msgError, Error: err.Error()})
			closeStream(conn, websocket.CloseInternalServerErr, "simulation aborted")
			return
		}
		if writeErr != nil {
			logrus.Warnf("serve: run %d client went away: %v", run, writeErr)
			return
		}
	}

	summary := s.Metrics.Summarize(sim.PolicyName(s.Policy))
	if err := conn.WriteJSON(StreamMessage{Type: msgSummary, Summary: &summary}); err != nil {
		logrus.Warnf("serve: run %d summary not delivered: %v", run, err)
		return
	}
	closeStream(conn, websocket.CloseNormalClosure, "run complete")
	logrus.Infof("serve: run %d finished after %d ticks", run, s.Clock)
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [process descriptor files...]",
	Short: "Stream simulation traces over WebSocket",
	Long:  "Serve GET /trace: each WebSocket connection runs the workload from scratch and receives one JSON message per tick, then a summary message.",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)
		opts := resolveOptions(cmd)
		procs, err := loadProcesses(args, workloadPath)
		if err != nil {
			logrus.Fatalf("Unable to load processes: %v", err)
		}
		// fail fast on a workload the engine rejects
		if _, err := newSimulation(opts, procs); err != nil {
			logrus.Fatalf("Unable to build simulator: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{Addr: serveAddr, Handler: NewTraceServer(opts, procs).Handler()}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("Serving traces on %s/trace", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

func init() {
	registerSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(serveCmd)
}
