package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Justype/perfbench/internal/bench"
	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runScript         string
	runInterval       int
	runOutputDir      string
	runPlatformConfig string
	runWait           bool
	runMaxWait        string
	runExportCSV      bool
	runPrintJobID     bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [script]",
	Short: "Submit a batch script and benchmark it",
	Long: `Wrap a batch script, submit it, and monitor the job from the login node.

The script is copied next to the original as perfbench_<name> with a few lines
that record the compute host and job id. A monitor script is generated in
<output>/perfbench_<YYYYMMDD_HHMMSS>/ and started in the background; it polls
the scheduler every --interval seconds and stops when the job ends.

Without --wait the command returns once the monitor is running. Use
'perfbench analyze <run-dir>' later to compute the efficiency. With --wait the
command blocks until the job and monitor finish and writes result.yaml.`,
	Example: `  perfbench run -s job.slurm                     # Submit and monitor in the background
  perfbench run -s gmx.sh -t 5 --wait            # Block and report the efficiency
  perfbench run job.slurm --wait --max-wait 12h  # Give up waiting after 12 hours
  perfbench run -s gmx.sh --scheduler lsf --csv  # Force Sunway LSF, export bitmap CSV

  # Chain with other tools
  JOB=$(perfbench run -q --print-job-id -s job.slurm)`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runScript, "script", "s", "", "Batch script to submit")
	runCmd.Flags().IntVarP(&runInterval, "interval", "t", 0, "Monitor sampling interval in seconds (default: script INTERVAL, then config, then 10)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Parent directory for the run directory (default: config output_dir)")
	runCmd.Flags().StringVar(&runPlatformConfig, "platform-config", "", "Platform baseline file (platform_config.yaml)")
	runCmd.Flags().BoolVarP(&runWait, "wait", "w", false, "Wait for the job to finish and compute the efficiency")
	runCmd.Flags().StringVar(&runMaxWait, "max-wait", "", "Stop waiting after this long, e.g. 90m or 12h (default: unbounded)")
	runCmd.Flags().BoolVar(&runExportCSV, "csv", false, "Export bitmap telemetry as CSV (LSF family)")
	runCmd.Flags().BoolVar(&runPrintJobID, "print-job-id", false, "Print the job id on stdout")

	runCmd.RegisterFlagCompletionFunc("script", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"sh", "slurm", "lsf"}, cobra.ShellCompDirectiveFilterFileExt
	})
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	script := runScript
	if script == "" && len(args) == 1 {
		script = args[0]
	}
	if script == "" {
		return fmt.Errorf("no batch script given; use -s <script>")
	}
	script = utils.ExpandHome(script)

	sched, err := currentScheduler()
	if err != nil {
		return err
	}
	if !sched.IsAvailable() {
		return fmt.Errorf("%s is not available for submission (inside a job?)", sched.Kind())
	}

	opts := bench.Options{
		Script:          script,
		Interval:        runInterval,
		DefaultInterval: config.Global.Interval,
		OutputDir:       config.Global.OutputDir,
		PlatformConfig:  config.Global.PlatformConfig,
		Wait:            runWait,
		MaxWait:         config.Global.MaxWait,
		PollInterval:    config.Global.PollInterval,
		SentinelTimeout: config.Global.SentinelTimeout,
		MonitorRetries:  config.Global.MonitorRetries,
		ExportCSV:       runExportCSV,
	}
	if runOutputDir != "" {
		opts.OutputDir = utils.ExpandHome(runOutputDir)
	}
	if runPlatformConfig != "" {
		opts.PlatformConfig = utils.ExpandHome(runPlatformConfig)
	}
	if runMaxWait != "" {
		d, err := utils.ParseDuration(runMaxWait)
		if err != nil {
			return fmt.Errorf("invalid --max-wait: %w", err)
		}
		opts.MaxWait = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := bench.NewRunner(sched, opts).Run(ctx)
	if err != nil {
		return err
	}

	if runPrintJobID {
		fmt.Println(res.JobID)
	}
	if res.Analysis == nil {
		utils.PrintNote("Run directory: %s", utils.StylePath(res.RunDir))
		utils.PrintHint("Analyse later with: perfbench analyze %s", res.RunDir)
		return nil
	}

	printAnalysis(res.Analysis)
	return nil
}
