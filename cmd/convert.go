package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/coresim/sim/workload"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between process descriptors and YAML workload specs",
}

// --- coresim convert descriptors ---

var convertDescriptorsCmd = &cobra.Command{
	Use:   "descriptors <files...>",
	Short: "Convert process descriptor files to a YAML spec on stdout",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := workload.ConvertDescriptors(args)
		if err != nil {
			logrus.Fatalf("Descriptor conversion failed: %v", err)
		}
		writeSpecToStdout(spec)
	},
}

// --- coresim convert yaml ---

var convertOutDir string

var convertYAMLCmd = &cobra.Command{
	Use:   "yaml <spec.yaml>",
	Short: "Expand a YAML spec into one descriptor file per process",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exportDescriptors(args[0], convertOutDir)
	},
}

// --- coresim generate ---

var (
	generateSpecPath string
	generateOutDir   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize processes from a workload spec",
	Long:  "Expand the spec's generator. With --out, one descriptor file per process is written; otherwise the expanded spec is printed to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		if generateOutDir != "" {
			exportDescriptors(generateSpecPath, generateOutDir)
			return
		}
		spec, err := workload.LoadWorkloadSpec(generateSpecPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		procs, err := workload.GenerateProcesses(spec)
		if err != nil {
			logrus.Fatalf("Generation failed: %v", err)
		}
		expanded := workload.FromProcesses(procs)
		expanded.Seed = spec.Seed
		writeSpecToStdout(expanded)
	},
}

func exportDescriptors(specPath, outDir string) {
	spec, err := workload.LoadWorkloadSpec(specPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	paths, err := workload.ExportDescriptors(spec, outDir)
	if err != nil {
		logrus.Fatalf("Export failed: %v", err)
	}
	logrus.Infof("Wrote %d descriptors to %s", len(paths), outDir)
}

func writeSpecToStdout(spec *workload.WorkloadSpec) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		logrus.Fatalf("YAML marshal failed: %v", err)
	}
	fmt.Print(string(data))
}

func init() {
	convertYAMLCmd.Flags().StringVar(&convertOutDir, "out", "", "Output directory for descriptor files")
	_ = convertYAMLCmd.MarkFlagRequired("out")
	convertCmd.AddCommand(convertDescriptorsCmd, convertYAMLCmd)

	generateCmd.Flags().StringVar(&generateSpecPath, "workload", "", "Path to WorkloadSpec YAML file")
	generateCmd.Flags().StringVar(&generateOutDir, "out", "", "Output directory for descriptor files")
	_ = generateCmd.MarkFlagRequired("workload")

	rootCmd.AddCommand(convertCmd, generateCmd)
}
