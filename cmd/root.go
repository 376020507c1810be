package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/coresim/sim"
)

var (
	simOpts      simOptions // simulation flags shared by run and serve
	logLevel     string     // Log verbosity level
	configPath   string     // Optional YAML run configuration
	workloadPath string     // Optional YAML workload spec
	traceOutPath string     // Trace destination; stdout when empty
	traceColor   bool       // ANSI colors in text traces
	resultsPath  string     // Metrics JSON destination
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "coresim",
	Short: "Discrete-time multi-core process scheduler simulator",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run [process descriptor files...]",
	Short: "Run the scheduler simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)
		opts := resolveOptions(cmd)

		procs, err := loadProcesses(args, workloadPath)
		if err != nil {
			logrus.Fatalf("Unable to load processes: %v", err)
		}
		s, err := newSimulation(opts, procs)
		if err != nil {
			logrus.Fatalf("Unable to build simulator: %v", err)
		}
		finish, err := attachTrace(s, opts.Trace, traceOutPath, traceColor)
		if err != nil {
			logrus.Fatalf("Unable to set up trace: %v", err)
		}

		logrus.Infof("Starting simulation with %d cores, policy=%s, quantum=%d, %d processes",
			opts.Cores, sim.PolicyName(s.Policy), opts.Quantum, len(procs))
		startTime := time.Now()

		runErr := s.Run()
		if err := finish(); err != nil {
			logrus.Errorf("Trace output incomplete: %v", err)
		}
		if runErr != nil {
			logrus.Fatalf("Simulation aborted: %v", runErr)
		}
		if err := s.Metrics.SaveResults(sim.PolicyName(s.Policy), startTime, resultsPath); err != nil {
			logrus.Fatalf("Unable to save results: %v", err)
		}
		s.Shutdown()
		logrus.Info("Simulation complete.")
	},
}

// setLogLevel configures logrus or exits on an unknown level.
func setLogLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", level)
	}
	logrus.SetLevel(parsed)
}

// resolveOptions overlays --config onto the flags and validates the result.
func resolveOptions(cmd *cobra.Command) simOptions {
	opts := simOpts
	if configPath != "" {
		rc, err := LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts = opts.withConfig(rc, cmd.Flags().Changed)
	}
	if err := opts.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return opts
}

// registerSimFlags binds the simulation flags of c to the shared options.
func registerSimFlags(c *cobra.Command) {
	c.Flags().IntVar(&simOpts.Cores, "cores", 1, "Number of simulated cores")
	c.Flags().StringVar(&simOpts.Policy, "policy", "fcfs", "Scheduling policy (fcfs, rr, sjf)")
	c.Flags().IntVar(&simOpts.Quantum, "quantum", 5, "Maximum ticks per dispatch for rr and sjf")
	c.Flags().Float64Var(&simOpts.PredictionWeight, "prediction-weight", sim.PredictionWeight, "SJF weight of the observed burst")
	c.Flags().BoolVar(&simOpts.CheckInvariants, "check-invariants", false, "Verify structural invariants after every tick")
	c.Flags().StringVar(&configPath, "config", "", "YAML run configuration; flags given explicitly take precedence")
	c.Flags().StringVar(&workloadPath, "workload", "", "YAML workload spec, loaded after the descriptor files")
	c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerSimFlags(runCmd)
	runCmd.Flags().StringVar(&simOpts.Trace, "trace", traceText, "Trace format (none, text, jsonl, json, yaml)")
	runCmd.Flags().StringVar(&traceOutPath, "trace-out", "", "Trace destination file (stdout when empty; required for json and yaml)")
	runCmd.Flags().BoolVar(&traceColor, "color", false, "Colorize the text trace")
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "File to save metrics JSON to")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
