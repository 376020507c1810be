package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/coresim/sim/workload"
)

var (
	composeSources []string
	composeOutPath string
)

// composeWorkloads loads every source spec and merges them into one explicit
// spec. Generators are expanded first, so the result has no generator.
func composeWorkloads(paths []string) (*workload.WorkloadSpec, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no workload specs to compose")
	}
	specs := make([]*workload.WorkloadSpec, 0, len(paths))
	for _, path := range paths {
		spec, err := workload.LoadWorkloadSpec(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logrus.Infof("compose: loaded %s (%d explicit processes)", path, len(spec.Processes))
		specs = append(specs, spec)
	}
	return workload.ComposeSpecs(specs)
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Merge workload specs into one explicit spec",
	Long: "Expand the generators of every --from spec and merge all processes into one explicit spec, " +
		"sorted by arrival. A PID used by two inputs is an error. Writes to --out, or stdout when absent.",
	Run: func(cmd *cobra.Command, args []string) {
		merged, err := composeWorkloads(composeSources)
		if err != nil {
			logrus.Fatalf("compose: %v", err)
		}
		if composeOutPath == "" {
			writeSpecToStdout(merged)
			return
		}
		if err := workload.SaveWorkloadSpec(merged, composeOutPath); err != nil {
			logrus.Fatalf("compose: %v", err)
		}
		logrus.Infof("compose: wrote %d processes to %s", len(merged.Processes), composeOutPath)
	},
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeSources, "from", nil, "WorkloadSpec YAML to merge (repeatable)")
	composeCmd.Flags().StringVar(&composeOutPath, "out", "", "Write the merged spec here instead of stdout")
	_ = composeCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(composeCmd)
}
