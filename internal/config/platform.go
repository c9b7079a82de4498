package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/viper"
)

// PlatformConfigFilename is the file searched for the reference baseline.
const PlatformConfigFilename = "platform_config.yaml"

// Default reference baseline used when no platform config can be loaded.
const (
	DefaultPlatformName    = "SW39000"
	DefaultComparedCores   = 1.0
	DefaultComparedRunTime = 3600.0
)

// PlatformConfig is the reference baseline a run is compared against.
type PlatformConfig struct {
	PlatformName    string  `mapstructure:"platform_name" yaml:"platform_name"`
	ComparedCores   float64 `mapstructure:"compared_cores" yaml:"compared_cores"`
	ComparedRunTime float64 `mapstructure:"compared_run_time" yaml:"compared_run_time"`

	// Source is the file the values came from, or "default".
	Source string `mapstructure:"-" yaml:"-"`
}

func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		PlatformName:    DefaultPlatformName,
		ComparedCores:   DefaultComparedCores,
		ComparedRunTime: DefaultComparedRunTime,
		Source:          "default",
	}
}

// PlatformSearchPaths lists candidate platform config files in priority order.
// An explicit path is the only candidate when given.
func PlatformSearchPaths(explicit string) []string {
	if explicit != "" {
		return []string{utils.ExpandHome(explicit)}
	}
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".perfbench", PlatformConfigFilename))
	}
	paths = append(paths, filepath.Join("/etc/perfbench", PlatformConfigFilename))
	if Global.ProgramDir != "" {
		paths = append(paths, filepath.Join(Global.ProgramDir, PlatformConfigFilename))
	}
	return paths
}

// LoadPlatform reads the first platform config found on the search path.
// On any failure the default baseline is returned together with the error,
// so callers can warn and continue.
func LoadPlatform(explicit string) (PlatformConfig, error) {
	var path string
	for _, candidate := range PlatformSearchPaths(explicit) {
		if utils.FileExists(candidate) {
			path = candidate
			break
		}
	}
	if path == "" {
		if explicit != "" {
			return DefaultPlatformConfig(), fmt.Errorf("platform config %s not found", explicit)
		}
		return DefaultPlatformConfig(), fmt.Errorf("no %s found", PlatformConfigFilename)
	}
	return ReadPlatformFile(path)
}

// ReadPlatformFile parses one platform config file. Missing numeric keys keep
// their defaults; a missing platform name or non-positive baseline is an error.
func ReadPlatformFile(path string) (PlatformConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("platform_name", DefaultPlatformName)
	v.SetDefault("compared_cores", DefaultComparedCores)
	v.SetDefault("compared_run_time", DefaultComparedRunTime)

	if err := v.ReadInConfig(); err != nil {
		return DefaultPlatformConfig(), fmt.Errorf("failed to read platform config %s: %w", path, err)
	}

	var cfg PlatformConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultPlatformConfig(), fmt.Errorf("failed to decode platform config %s: %w", path, err)
	}
	cfg.PlatformName = strings.TrimSpace(cfg.PlatformName)
	if cfg.PlatformName == "" {
		return DefaultPlatformConfig(), fmt.Errorf("platform config %s: platform_name is empty", path)
	}
	if cfg.ComparedCores <= 0 || cfg.ComparedRunTime <= 0 {
		return DefaultPlatformConfig(), fmt.Errorf("platform config %s: compared_cores and compared_run_time must be positive", path)
	}
	cfg.Source = path
	return cfg, nil
}
