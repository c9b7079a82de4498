package cmd

import (
	"os"
	"strings"

	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	debugMode     bool
	quietMode     bool
	noLogFile     bool
	schedulerFlag string

	closeLogFile func()
)

var rootCmd = &cobra.Command{
	Use:           "perfbench",
	Short:         "PerfBench: measure parallel efficiency of batch jobs on SLURM and Sunway LSF clusters.",
	Version:       config.VERSION,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		exe, err := os.Executable()
		if err != nil {
			utils.PrintError("Failed to determine executable path: %v", err)
			os.Exit(1)
		}

		// Step 1: Load defaults
		config.LoadDefaults(exe)

		// Step 2: Initialize Viper (read config file, env vars)
		if err := config.InitViper(); err != nil {
			utils.PrintWarning("Error reading config file: %v", err)
		}

		// Step 3: Load values from Viper into Global config
		config.LoadFromViper()

		// Step 4: Apply command-line flags (highest priority)
		if quietMode {
			utils.QuietMode = true
		}
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
		}
		if schedulerFlag != "" {
			config.Global.SchedulerType = schedulerFlag
		}

		// Step 5: Mirror console output into the daily log file
		if !noLogFile && config.Global.LogDir != "" {
			closer, err := utils.InitLogFile(config.Global.LogDir)
			if err != nil {
				utils.PrintDebug("Log file disabled: %v", err)
			} else {
				closeLogFile = closer
			}
		}

		if debugMode {
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("PerfBench Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("Executable: %s", exe)
			utils.PrintDebug("Log Directory: %s", config.Global.LogDir)
			if config.Global.SchedulerType != "" {
				utils.PrintDebug("Scheduler Type: %s", config.Global.SchedulerType)
			}
			if config.Global.SchedulerBin != "" {
				utils.PrintDebug("Scheduler Binary: %s", config.Global.SchedulerBin)
			}
		}
	},
}

// currentScheduler resolves the scheduler from config and flags once per process.
func currentScheduler() (scheduler.Scheduler, error) {
	return scheduler.Current(config.Global.SchedulerType, config.Global.SchedulerBin)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		// Cobra's automatic error printing is silenced; print once, through
		// the log mirror, and exit non-zero.
		utils.PrintError("%v", err)
	}
	if closeLogFile != nil {
		closeLogFile()
	}
	if err != nil {
		os.Exit(1)
	}
}

// normalizeFlagName lets flags be spelled like config keys: --max_wait is --max-wait.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Only print warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&noLogFile, "no-log-file", false, "Do not write the daily log file")
	rootCmd.PersistentFlags().StringVar(&schedulerFlag, "scheduler", "", "Scheduler family: slurm or lsf (default: auto-detect)")
}
