package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var checkSubmitTest bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that this node can run benchmarks",
	Long: `Validate the environment before submitting a benchmark.

Checks that the scheduler commands the monitor needs are installed, that the
scheduler version is recent enough for its accounting output, and that a
platform baseline can be loaded. With --submit-test a one-minute test job is
submitted to confirm the submission path end to end.`,
	Example: `  perfbench check
  perfbench check --scheduler lsf --submit-test`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkSubmitTest, "submit-test", false, "Submit a short test job")
}

func runCheck(cmd *cobra.Command, args []string) error {
	var problems *multierror.Error

	sched, err := currentScheduler()
	if err != nil {
		utils.PrintError("Scheduler: %v", err)
		return fmt.Errorf("no usable scheduler found")
	}
	info := sched.GetInfo()
	utils.PrintMessage("Scheduler: %s (%s)", utils.StyleInfo(info.Type), utils.StylePath(info.Binary))

	for _, c := range info.Commands {
		switch {
		case c.Path != "":
			utils.PrintSuccess("%-9s %s", c.Name, utils.StylePath(c.Path))
		case c.Required:
			utils.PrintError("%-9s not found", c.Name)
			problems = multierror.Append(problems, fmt.Errorf("%s not found", c.Name))
		default:
			utils.PrintWarning("%-9s not found (optional, its probe is skipped)", c.Name)
		}
	}

	kind := sched.Kind()
	if info.Version == "" {
		utils.PrintWarning("Could not determine the %s version", info.Type)
	} else if v, ok := scheduler.MeetsMinVersion(kind, info.Version); ok {
		utils.PrintSuccess("Version %s (minimum %s)", utils.StyleNumber(v), scheduler.MinVersion(kind))
	} else {
		utils.PrintError("Version %q is older than %s or unrecognised", info.Version, scheduler.MinVersion(kind))
		problems = multierror.Append(problems, fmt.Errorf("%s version %q unsupported", info.Type, info.Version))
	}

	if info.InJob {
		utils.PrintError("Running inside a scheduled job; submission is disabled")
		problems = multierror.Append(problems, scheduler.ErrSchedulerNotAvailable)
	}

	platform, err := config.LoadPlatform(config.Global.PlatformConfig)
	if err != nil {
		utils.PrintWarning("Platform baseline: %v; the default %s will be used", err, platform.PlatformName)
	} else {
		utils.PrintSuccess("Platform baseline: %s from %s", utils.StyleName(platform.PlatformName), utils.StylePath(platform.Source))
	}

	if checkSubmitTest && problems.ErrorOrNil() == nil {
		if err := submitTestJob(sched); err != nil {
			problems = multierror.Append(problems, err)
		}
	}

	if err := problems.ErrorOrNil(); err != nil {
		return err
	}
	utils.PrintSuccess("Environment is ready.")
	return nil
}

// submitTestJob submits a one-minute job from a temporary directory. The
// directory is kept on success so the job has somewhere to write its output.
func submitTestJob(sched scheduler.Scheduler) error {
	dir, err := os.MkdirTemp("", "perfbench-check-")
	if err != nil {
		return err
	}

	var content string
	switch sched.Kind() {
	case scheduler.KindLSF:
		content = "#!/bin/bash\n#BSUB -J perfbench_check\n#BSUB -n 1\n#BSUB -W 1\nhostname\n"
	default:
		content = "#!/bin/bash\n#SBATCH --job-name=perfbench_check\n#SBATCH -N 1\n#SBATCH --time=00:01:00\nhostname\n"
	}
	script := filepath.Join(dir, "perfbench_check.sh")
	if err := utils.WriteExecutable(script, []byte(content)); err != nil {
		os.RemoveAll(dir)
		return err
	}

	handle, err := sched.Submit(script)
	if err != nil {
		os.RemoveAll(dir)
		utils.PrintError("Test submission failed: %v", err)
		return err
	}
	utils.PrintSuccess("Test job submitted: %s (output in %s)", utils.StyleNumber(string(handle)), utils.StylePath(dir))
	return nil
}
