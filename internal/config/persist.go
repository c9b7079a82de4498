package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/viper"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (PERFBENCH_*)
// 3. User config file (~/.config/perfbench/config.yaml)
// 4. Home config file (~/.perfbench/config.yaml)
// 5. System config file (/etc/perfbench/config.yaml)
// 6. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	for _, dir := range ConfigSearchDirs() {
		viper.AddConfigPath(dir)
	}

	viper.SetEnvPrefix("PERFBENCH")
	viper.AutomaticEnv()

	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// ConfigSearchDirs lists the directories searched for config.yaml, highest priority first.
func ConfigSearchDirs() []string {
	var dirs []string
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userConfigDir, "perfbench"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".perfbench"))
	}
	return append(dirs, "/etc/perfbench", ".")
}

// EnvVar returns the environment variable that overrides a config key.
func EnvVar(key string) string {
	return "PERFBENCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("scheduler_type", "")
	viper.SetDefault("scheduler_bin", "")
	viper.SetDefault("interval", Global.Interval)
	viper.SetDefault("output_dir", Global.OutputDir)
	viper.SetDefault("poll_interval", "10s")
	viper.SetDefault("max_wait", "")
	viper.SetDefault("sentinel_timeout", "2m")
	viper.SetDefault("monitor_retries", Global.MonitorRetries)
	viper.SetDefault("log_dir", Global.LogDir)
	viper.SetDefault("platform_config", "")
}

// Keys lists the known configuration keys, in display order.
func Keys() []string {
	return []string{
		"scheduler_type",
		"scheduler_bin",
		"interval",
		"output_dir",
		"poll_interval",
		"max_wait",
		"sentinel_timeout",
		"monitor_retries",
		"log_dir",
		"platform_config",
	}
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".perfbench", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "perfbench", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), utils.PermDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// parseSeconds accepts a bare integer as seconds, otherwise defers to utils.ParseDuration.
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration: %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	return utils.ParseDuration(s)
}

// LoadFromViper loads config from Viper into Global struct.
// Invalid values are reported and the defaults kept.
func LoadFromViper() {
	Global.SchedulerType = viper.GetString("scheduler_type")
	Global.SchedulerBin = viper.GetString("scheduler_bin")

	if interval := viper.GetInt("interval"); interval > 0 {
		Global.Interval = interval
	}
	if out := viper.GetString("output_dir"); out != "" {
		Global.OutputDir = utils.ExpandHome(out)
	}
	if s := viper.GetString("poll_interval"); s != "" {
		if dur, err := parseSeconds(s); err == nil && dur > 0 {
			Global.PollInterval = dur
		} else {
			utils.PrintWarning("Ignoring invalid poll_interval %q", s)
		}
	}
	if s := viper.GetString("max_wait"); s != "" {
		if dur, err := parseSeconds(s); err == nil {
			Global.MaxWait = dur
		} else {
			utils.PrintWarning("Ignoring invalid max_wait %q", s)
		}
	}
	if s := viper.GetString("sentinel_timeout"); s != "" {
		if dur, err := parseSeconds(s); err == nil && dur > 0 {
			Global.SentinelTimeout = dur
		} else {
			utils.PrintWarning("Ignoring invalid sentinel_timeout %q", s)
		}
	}
	if retries := viper.GetInt("monitor_retries"); retries > 0 {
		Global.MonitorRetries = retries
	}
	if dir := viper.GetString("log_dir"); dir != "" {
		Global.LogDir = utils.ExpandHome(dir)
	}
	if p := viper.GetString("platform_config"); p != "" {
		Global.PlatformConfig = utils.ExpandHome(p)
	}
}
