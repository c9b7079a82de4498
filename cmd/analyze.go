package cmd

import (
	"github.com/Justype/perfbench/internal/bench"
	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
)

var (
	analyzePlatformConfig string
	analyzeExportCSV      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-dir>",
	Short: "Compute the efficiency of a finished run",
	Long: `Parse the telemetry in a run directory and compute the parallel efficiency.

The scheduler family and job id are read from monitor_info.txt, the node count
from the wrapped script copy kept in the directory. result.yaml and
perfbench.prom are (re)written.`,
	Example: `  perfbench analyze perfbench_20251201_120000
  perfbench analyze run/ --platform-config ./platform_config.yaml --csv`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		platform := config.Global.PlatformConfig
		if analyzePlatformConfig != "" {
			platform = utils.ExpandHome(analyzePlatformConfig)
		}
		if monitorStillRunning(args[0]) {
			utils.PrintWarning("Monitor is still running; the result may be partial")
		}

		a, err := bench.AnalyzeDir(utils.ExpandHome(args[0]), platform, analyzeExportCSV)
		if err != nil {
			return err
		}
		printAnalysis(a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzePlatformConfig, "platform-config", "", "Platform baseline file (platform_config.yaml)")
	analyzeCmd.Flags().BoolVar(&analyzeExportCSV, "csv", false, "Export bitmap telemetry as CSV (LSF family)")
}

// monitorStillRunning reports whether the run's monitor process is alive.
func monitorStillRunning(runDir string) bool {
	st, err := bench.ReadStatus(utils.ExpandHome(runDir))
	return err == nil && st.MonitorRunning
}
