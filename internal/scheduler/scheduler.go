// Package scheduler provides a unified interface for the HPC job schedulers
// perfbench can drive: reading batch scripts, wrapping and submitting them,
// generating the matching monitor probe and tracking the job until it ends.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Justype/perfbench/internal/telemetry"
)

// Kind identifies a scheduler family
type Kind string

const (
	KindUnknown Kind = ""
	KindSLURM   Kind = "SLURM"
	KindLSF     Kind = "LSF"
)

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

// ParseKind accepts config and flag spellings ("slurm", "LSF", "sunway").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slurm":
		return KindSLURM, nil
	case "lsf", "sunway":
		return KindLSF, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// JobHandle is the identifier returned by the scheduler at submission.
type JobHandle string

// SchedulerInfo holds information about the detected scheduler
type SchedulerInfo struct {
	Type      string // Scheduler type ("SLURM", "LSF")
	Binary    string // Path to submission binary (e.g., "/usr/bin/sbatch")
	Version   string // Scheduler version (if available)
	InJob     bool   // Whether we're currently inside a scheduled job
	Available bool   // Whether scheduler is available for job submission

	// Companion commands the pipeline calls; Path is empty when not found
	Commands []CommandInfo
}

// CommandInfo reports one scheduler command.
type CommandInfo struct {
	Name     string
	Path     string
	Required bool
}

// MonitorRequest describes the probe GenerateMonitor should write.
type MonitorRequest struct {
	OriginalScript string
	Descriptor     *ScriptDescriptor
	JobID          JobHandle
	Interval       int // seconds between samples
	OutputDir      string
}

// Scheduler defines the capabilities perfbench needs from a scheduler family
type Scheduler interface {
	// Kind returns the scheduler family
	Kind() Kind

	// IsAvailable checks if the scheduler is available and we're not already in a job
	IsAvailable() bool

	// GetInfo returns information about the scheduler
	GetInfo() *SchedulerInfo

	// ReadScript parses a batch script written for this scheduler
	ReadScript(scriptPath string) (*ScriptDescriptor, error)

	// WrapScript writes the instrumented copy of a batch script and returns its path
	WrapScript(original string, outputDir string) (string, error)

	// GenerateMonitor writes the monitor probe script and returns its path
	GenerateMonitor(req MonitorRequest) (string, error)

	// Submit submits a job script from its own directory
	Submit(scriptPath string) (JobHandle, error)

	// IsJobActive reports whether the scheduler still knows the job as pending or running
	IsJobActive(handle JobHandle) (bool, error)

	// Wait blocks until the job is no longer active or ctx ends
	Wait(ctx context.Context, handle JobHandle, pollInterval time.Duration) error

	// ParseTelemetry reads the probe logs this family's monitor writes
	ParseTelemetry(outputDir string) (*telemetry.Result, error)
}

// DetectType returns the type of scheduler available on the system without initializing it.
func DetectType() Kind {
	if _, err := exec.LookPath("sbatch"); err == nil {
		return KindSLURM
	}
	if _, err := exec.LookPath("bsub"); err == nil {
		return KindLSF
	}
	return KindUnknown
}

// Detect builds the scheduler found on PATH.
func Detect() (Scheduler, error) {
	kind := DetectType()
	if kind == KindUnknown {
		return nil, fmt.Errorf("%w: neither sbatch nor bsub found", ErrSchedulerNotFound)
	}
	return New(kind)
}

// New builds the scheduler of the given family using binaries from PATH.
func New(kind Kind) (Scheduler, error) {
	switch kind {
	case KindSLURM:
		return NewSlurmScheduler()
	case KindLSF:
		return NewLsfScheduler()
	default:
		return nil, fmt.Errorf("%w: %s", ErrSchedulerNotFound, kind)
	}
}

// KindFromBinary infers a scheduler family from a binary name.
func KindFromBinary(path string) Kind {
	switch filepath.Base(path) {
	case "sbatch", "squeue", "sacct", "scontrol":
		return KindSLURM
	case "bsub", "bjobs":
		return KindLSF
	default:
		return KindUnknown
	}
}

// NewWithBinary builds a scheduler from an explicit submission binary.
// The family is taken from kind, or inferred from the binary name when kind is unknown.
func NewWithBinary(kind Kind, bin string) (Scheduler, error) {
	if kind == KindUnknown {
		kind = KindFromBinary(bin)
	}
	switch kind {
	case KindSLURM:
		return NewSlurmSchedulerWithBinary(bin)
	case KindLSF:
		return NewLsfSchedulerWithBinary(bin)
	default:
		return nil, fmt.Errorf("%w: cannot infer scheduler from %s", ErrSchedulerNotFound, bin)
	}
}

// Resolve picks the scheduler for a run: an explicit kind and/or binary wins,
// otherwise the system is probed.
func Resolve(kindName, bin string) (Scheduler, error) {
	kind := KindUnknown
	if kindName != "" {
		k, err := ParseKind(kindName)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	if bin != "" {
		return NewWithBinary(kind, bin)
	}
	if kind != KindUnknown {
		return New(kind)
	}
	return Detect()
}

// Submit submits scriptPath with the scheduler of the given family.
// An unknown family fails before any process is started.
func Submit(kind Kind, scriptPath string) (JobHandle, error) {
	if kind == KindUnknown {
		return "", NewSubmissionError(kind, filepath.Base(scriptPath), "", ErrSchedulerNotFound)
	}
	s, err := New(kind)
	if err != nil {
		return "", NewSubmissionError(kind, filepath.Base(scriptPath), "", err)
	}
	return s.Submit(scriptPath)
}

// ParseScript reads a batch script with the parser of the given family,
// without requiring the scheduler binaries to be installed.
func ParseScript(scriptPath string, kind Kind) (*ScriptDescriptor, error) {
	switch kind {
	case KindSLURM:
		return parseSlurmScript(scriptPath)
	case KindLSF:
		return parseLsfScript(scriptPath)
	default:
		return nil, NewParseError(kind, scriptPath, ErrUnknownKind)
	}
}

// ParseTelemetry reads the probe logs of the given family from dir.
func ParseTelemetry(kind Kind, dir string) (*telemetry.Result, error) {
	switch kind {
	case KindSLURM:
		return telemetry.ParseTabular(dir)
	case KindLSF:
		return telemetry.ParseBitmap(dir)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// KeptScriptName is the name of the wrapped-script copy kept in a run directory.
func KeptScriptName(kind Kind) string {
	switch kind {
	case KindSLURM:
		return "modified_script.slurm"
	case KindLSF:
		return "modified_script.sunway.sh"
	default:
		return ""
	}
}

// MonitorScriptName is the probe script name of the given family.
func MonitorScriptName(kind Kind) string {
	switch kind {
	case KindSLURM:
		return SlurmMonitorScript
	case KindLSF:
		return LsfMonitorScript
	default:
		return ""
	}
}

// IsInsideJob checks if we're currently running inside a scheduler job.
func IsInsideJob() bool {
	if _, ok := os.LookupEnv("SLURM_JOB_ID"); ok {
		return true
	}
	if _, ok := os.LookupEnv("LSB_JOBID"); ok {
		return true
	}
	return false
}

// siblingOrPath looks for a companion command next to bin first, then on PATH.
func siblingOrPath(bin, name string) string {
	if bin != "" {
		candidate := filepath.Join(filepath.Dir(bin), name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	path, _ := exec.LookPath(name)
	return path
}

// resolveBinary returns an absolute path to an explicit binary, or looks up
// name on PATH when bin is empty.
func resolveBinary(bin, name string) (string, error) {
	if bin == "" {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
		}
		return path, nil
	}
	if absPath, err := filepath.Abs(bin); err == nil {
		bin = absPath
	}
	info, err := os.Stat(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrSchedulerNotFound, bin)
	}
	return bin, nil
}

// waitForJob polls isActive until it reports false or ctx ends. Query errors
// are treated as transient.
func waitForJob(ctx context.Context, handle JobHandle, pollInterval time.Duration, isActive func(JobHandle) (bool, error)) error {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		active, err := isActive(handle)
		if err == nil && !active {
			return nil
		}
		if errors.Is(err, ErrSchedulerNotFound) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for job %s: %w", handle, ctx.Err())
		case <-ticker.C:
		}
	}
}
