package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showPath bool

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "scheduler_type":
		return []string{"slurm", "lsf"}
	case "interval":
		return []string{"5", "10", "30", "60"}
	case "poll_interval":
		return []string{"10s", "30s", "1m"}
	case "max_wait":
		return []string{"1h", "12h", "24h", "72h"}
	case "sentinel_timeout":
		return []string{"1m", "2m", "5m"}
	case "monitor_retries":
		return []string{"1", "3", "5"}
	default:
		return nil
	}
}

// getConfigEnvVars returns the environment variables that override config keys, sorted.
func getConfigEnvVars() []string {
	vars := make([]string, 0, len(config.Keys()))
	for _, key := range config.Keys() {
		vars = append(vars, config.EnvVar(key))
	}
	sort.Strings(vars)
	return vars
}

// validateConfigValue checks a value before it is saved.
func validateConfigValue(key, value string) error {
	switch key {
	case "scheduler_type":
		if _, err := scheduler.ParseKind(value); err != nil {
			return err
		}
	case "interval", "monitor_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
	case "poll_interval", "max_wait", "sentinel_timeout":
		if _, err := strconv.Atoi(value); err == nil {
			return nil
		}
		if _, err := utils.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage perfbench configuration",
	Long: `Manage perfbench configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (PERFBENCH_*)
  3. User config file (~/.config/perfbench/config.yaml)
  4. Home config file (~/.perfbench/config.yaml)
  5. System config file (/etc/perfbench/config.yaml)
  6. Defaults

The platform baseline lives in a separate platform_config.yaml; see
'perfbench platforms'.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if showPath {
			configPath, err := config.GetUserConfigPath()
			if err != nil {
				utils.PrintError("Failed to get config path: %v", err)
				os.Exit(1)
			}
			fmt.Println(configPath)
			return
		}

		fmt.Println(utils.StyleTitle("Config File Search Paths:"))
		used := viper.ConfigFileUsed()
		for i, dir := range config.ConfigSearchDirs() {
			path := filepath.Join(dir, config.ConfigFilename+"."+config.ConfigType)
			status := ""
			if abs, err := filepath.Abs(path); err == nil && used != "" && abs == used {
				status = " " + utils.StyleSuccess("← in use")
			} else if utils.FileExists(path) {
				status = " " + utils.StyleInfo("(exists)")
			}
			fmt.Printf("  %d. %s%s\n", i+1, path, status)
		}
		fmt.Println()

		fmt.Println(utils.StyleTitle("Current Configuration:"))
		fmt.Printf("  scheduler_type:   %s\n", orDefault(config.Global.SchedulerType, "auto-detect"))
		fmt.Printf("  scheduler_bin:    %s\n", orDefault(config.Global.SchedulerBin, "from PATH"))
		fmt.Printf("  interval:         %ds\n", config.Global.Interval)
		fmt.Printf("  output_dir:       %s\n", config.Global.OutputDir)
		fmt.Printf("  poll_interval:    %s\n", config.Global.PollInterval)
		if config.Global.MaxWait > 0 {
			fmt.Printf("  max_wait:         %s\n", config.Global.MaxWait)
		} else {
			fmt.Printf("  max_wait:         %s\n", "unbounded")
		}
		fmt.Printf("  sentinel_timeout: %s\n", config.Global.SentinelTimeout)
		fmt.Printf("  monitor_retries:  %d\n", config.Global.MonitorRetries)
		fmt.Printf("  log_dir:          %s\n", config.Global.LogDir)
		fmt.Printf("  platform_config:  %s\n", orDefault(config.Global.PlatformConfig, "search path"))
		fmt.Println()

		fmt.Println(utils.StyleTitle("Platform Baseline:"))
		platform, err := config.LoadPlatform(config.Global.PlatformConfig)
		if err != nil {
			fmt.Printf("  %s\n", utils.StyleWarning(err.Error()))
		}
		fmt.Printf("  platform_name:     %s\n", platform.PlatformName)
		fmt.Printf("  compared_cores:    %g\n", platform.ComparedCores)
		fmt.Printf("  compared_run_time: %g\n", platform.ComparedRunTime)
		fmt.Printf("  source:            %s\n", platform.Source)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Environment Overrides:"))
		found := false
		for _, env := range getConfigEnvVars() {
			if v, ok := os.LookupEnv(env); ok {
				fmt.Printf("  %s=%s\n", env, v)
				found = true
			}
		}
		if !found {
			fmt.Println("  (none)")
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  perfbench config get interval
  perfbench config get scheduler_type`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		value := viper.Get(args[0])
		if value == nil {
			utils.PrintError("Unknown config key: %s", args[0])
			os.Exit(1)
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to the user config file.

Examples:
  perfbench config set scheduler_type lsf
  perfbench config set interval 30
  perfbench config set max_wait 12h

Duration format (poll_interval, max_wait, sentinel_timeout):
  Seconds:   30
  Go style:  2h, 30m, 1h30m, 90s
  HPC style: 02:00:00, 1:30 (HH:MM:SS or HH:MM)`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		known := false
		for _, k := range config.Keys() {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			utils.PrintWarning("'%s' is not a standard config key", key)
		}
		if err := validateConfigValue(key, value); err != nil {
			return err
		}

		viper.Set(key, value)
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		configPath, _ := config.GetUserConfigPath()
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(value))
		utils.PrintNote("Config saved to: %s", configPath)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a user config file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			return err
		}
		if utils.FileExists(configPath) {
			utils.PrintWarning("Config file already exists: %s", utils.StylePath(configPath))
			return nil
		}

		if sched, err := scheduler.Detect(); err == nil {
			viper.Set("scheduler_type", string(sched.Kind()))
			viper.Set("scheduler_bin", sched.GetInfo().Binary)
		}
		if err := config.SaveConfig(); err != nil {
			return err
		}
		utils.PrintSuccess("Config file created: %s", utils.StylePath(configPath))
		return nil
	},
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback + " (default)"
	}
	return value
}

func init() {
	configShowCmd.Flags().BoolVar(&showPath, "path", false, "Show only the config file path")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(configCmd)
}
