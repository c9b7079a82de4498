package cmd

import (
	"fmt"

	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:     "scheduler",
	Aliases: []string{"sched"},
	Short:   "Display scheduler information",
	Long: `Display information about the detected job scheduler.

Shows scheduler type (SLURM or Sunway LSF), binary path, version, and availability status.`,
	Example: `  perfbench scheduler                  # Show scheduler information
  perfbench sched --scheduler lsf      # Force the LSF family`,
	Run: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) {
	sched, err := currentScheduler()
	if err != nil {
		utils.PrintMessage("Scheduler Status: %s", utils.StyleError("Not Found"))
		utils.PrintMessage("")
		utils.PrintMessage("No job scheduler detected on this system: %v", err)
		utils.PrintMessage("Supported schedulers: SLURM, Sunway LSF (bsub + cnload)")
		return
	}

	info := sched.GetInfo()

	fmt.Println("Scheduler Information:")
	fmt.Printf("  Type:      %s\n", utils.StyleInfo(info.Type))
	fmt.Printf("  Binary:    %s\n", utils.StylePath(info.Binary))
	if info.Version != "" {
		fmt.Printf("  Version:   %s\n", utils.StyleNumber(info.Version))
	}

	if info.InJob {
		fmt.Printf("  Status:    %s (inside job)\n", utils.StyleError("Unavailable"))
		fmt.Println()
		fmt.Println("You are currently inside a scheduled job (detected via environment).")
		fmt.Println("Job submission is disabled to prevent nested job submissions.")
	} else if info.Available {
		fmt.Printf("  Status:    %s\n", utils.StyleSuccess("Available"))
	} else {
		fmt.Printf("  Status:    %s\n", utils.StyleError("Unavailable"))
	}

	fmt.Println()
	fmt.Println("Monitor Commands:")
	for _, c := range info.Commands {
		status := utils.StylePath(c.Path)
		if c.Path == "" {
			status = utils.StyleWarning("not found")
			if c.Required {
				status = utils.StyleError("not found (required)")
			}
		}
		fmt.Printf("  %-9s %s\n", c.Name, status)
	}
	fmt.Printf("  Monitor script: %s\n", scheduler.MonitorScriptName(sched.Kind()))
}
