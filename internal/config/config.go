package config

import (
	"os"
	"path/filepath"
	"time"
)

const VERSION = "1.0.0"

// Config holds global application settings
type Config struct {
	Debug           bool
	Version         string
	ProgramDir      string
	SchedulerType   string        // "", "SLURM" or "LSF"; empty means auto-detect
	SchedulerBin    string        // explicit submission binary (sbatch/bsub)
	Interval        int           // monitor sampling interval in seconds
	OutputDir       string        // parent directory for perfbench_<timestamp> run dirs
	PollInterval    time.Duration // Wait polling cadence
	MaxWait         time.Duration // 0 = unbounded
	SentinelTimeout time.Duration // how long to wait for monitor.done after the job left the queue
	MonitorRetries  int
	LogDir          string
	PlatformConfig  string // explicit platform_config.yaml path
}

// Global holds the singleton configuration instance
var Global Config

func LoadDefaults(executablePath string) {
	programDir := filepath.Dir(executablePath)

	logDir := filepath.Join(".perfbench", "logs")
	if home, err := os.UserHomeDir(); err == nil {
		logDir = filepath.Join(home, ".perfbench", "logs")
	}

	Global = Config{
		Debug:           false,
		Version:         VERSION,
		ProgramDir:      programDir,
		Interval:        10,
		OutputDir:       ".",
		PollInterval:    10 * time.Second,
		SentinelTimeout: 2 * time.Minute,
		MonitorRetries:  3,
		LogDir:          logDir,
	}
}
