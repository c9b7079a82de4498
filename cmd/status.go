package cmd

import (
	"fmt"

	"github.com/Justype/perfbench/internal/bench"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-dir>",
	Short: "Show the state of a run directory",
	Long: `Show the job, the monitor process and whether the run has finished.

The scheduler is not queried; everything comes from files in the run
directory (monitor_info.txt, the monitor pid file, monitor.done, result.yaml).`,
	Example:      `  perfbench status perfbench_20251201_120000`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := bench.ReadStatus(utils.ExpandHome(args[0]))
		if err != nil {
			return err
		}

		fmt.Println(utils.StyleTitle("Run Status:"))
		fmt.Printf("  Directory: %s\n", utils.StylePath(st.RunDir))
		fmt.Printf("  Job:       %s (%s)\n", utils.StyleNumber(st.Identity.JobID), st.Identity.Scheduler)
		if st.Identity.Host != "" {
			fmt.Printf("  Host:      %s\n", st.Identity.Host)
		}
		if st.Identity.Started != "" {
			fmt.Printf("  Started:   %s\n", st.Identity.Started)
		}

		switch {
		case st.MonitorRunning:
			fmt.Printf("  Monitor:   %s (pid %d)\n", utils.StyleSuccess("running"), st.MonitorPID)
		case st.Finished:
			fmt.Printf("  Monitor:   %s\n", utils.StyleInfo("finished"))
		default:
			fmt.Printf("  Monitor:   %s\n", utils.StyleWarning("stopped before the job ended"))
		}

		if st.HasRecord {
			fmt.Printf("  Result:    %s\n", utils.StyleSuccess(st.Record.Eff))
		} else if st.Finished {
			fmt.Printf("  Result:    not analysed; run %s\n", utils.StyleCommand("perfbench analyze "+args[0]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
