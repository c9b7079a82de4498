package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/Justype/perfbench/internal/utils"
)

var (
	slurmDirectiveRe = regexp.MustCompile(`^\s*#SBATCH\s+(.+)$`)
	slurmJobIDRe     = regexp.MustCompile(`Submitted batch job (\d+)`)
)

// slurmOptions maps the #SBATCH spellings perfbench reads to a field key.
var slurmOptions = map[string]string{
	"--job-name":        "job-name",
	"-J":                "job-name",
	"--nodes":           "nodes",
	"-N":                "nodes",
	"--ntasks-per-node": "ntasks-per-node",
	"--cpus-per-task":   "cpus-per-task",
	"-c":                "cpus-per-task",
	"--time":            "time",
	"-t":                "time",
	"--partition":       "partition",
	"-p":                "partition",
	"--output":          "output",
	"-o":                "output",
	"--error":           "error",
	"-e":                "error",
}

// slurmTerminalStates end the monitor loop when sacct reports them.
var slurmTerminalStates = []string{
	"COMPLETED", "FAILED", "CANCELLED", "TIMEOUT", "OUT_OF_MEMORY",
	"NODE_FAIL", "PREEMPTED", "BOOT_FAIL", "DEADLINE",
}

// SlurmScheduler implements the Scheduler interface for SLURM
type SlurmScheduler struct {
	sbatchBin   string
	squeueBin   string
	sacctBin    string
	sinfoBin    string
	sstatBin    string
	scontrolBin string
	seffBin     string
}

// NewSlurmScheduler creates a new SLURM scheduler instance using sbatch from PATH
func NewSlurmScheduler() (*SlurmScheduler, error) {
	return newSlurmSchedulerWithBinary("")
}

// NewSlurmSchedulerWithBinary creates a SLURM scheduler using an explicit sbatch path.
// Companion commands are looked up next to it first.
func NewSlurmSchedulerWithBinary(sbatchBin string) (*SlurmScheduler, error) {
	return newSlurmSchedulerWithBinary(sbatchBin)
}

func newSlurmSchedulerWithBinary(sbatchBin string) (*SlurmScheduler, error) {
	binPath, err := resolveBinary(sbatchBin, "sbatch")
	if err != nil {
		return nil, err
	}

	return &SlurmScheduler{
		sbatchBin:   binPath,
		squeueBin:   siblingOrPath(binPath, "squeue"),
		sacctBin:    siblingOrPath(binPath, "sacct"),
		sinfoBin:    siblingOrPath(binPath, "sinfo"),
		sstatBin:    siblingOrPath(binPath, "sstat"),
		scontrolBin: siblingOrPath(binPath, "scontrol"),
		seffBin:     siblingOrPath(binPath, "seff"),
	}, nil
}

// Kind returns KindSLURM
func (s *SlurmScheduler) Kind() Kind { return KindSLURM }

// IsAvailable checks if SLURM is available and we're not inside a SLURM job
func (s *SlurmScheduler) IsAvailable() bool {
	if s.sbatchBin == "" {
		return false
	}

	// Check if we're already inside a SLURM job
	_, inJob := os.LookupEnv("SLURM_JOB_ID")
	return !inJob
}

// GetInfo returns information about the SLURM scheduler
func (s *SlurmScheduler) GetInfo() *SchedulerInfo {
	_, inJob := os.LookupEnv("SLURM_JOB_ID")

	info := &SchedulerInfo{
		Type:      "SLURM",
		Binary:    s.sbatchBin,
		InJob:     inJob,
		Available: s.IsAvailable(),
		Commands: []CommandInfo{
			{Name: "sbatch", Path: s.sbatchBin, Required: true},
			{Name: "squeue", Path: s.squeueBin, Required: true},
			{Name: "sacct", Path: s.sacctBin, Required: true},
			{Name: "sinfo", Path: s.sinfoBin},
			{Name: "sstat", Path: s.sstatBin},
			{Name: "scontrol", Path: s.scontrolBin},
			{Name: "seff", Path: s.seffBin},
		},
	}

	if s.sbatchBin != "" {
		if version, err := s.getSlurmVersion(); err == nil {
			info.Version = version
		}
	}

	return info
}

// getSlurmVersion attempts to get the SLURM version
func (s *SlurmScheduler) getSlurmVersion() (string, error) {
	cmd := exec.Command(s.sbatchBin, "--version")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	// Parse version from output like "slurm 23.02.6"
	versionStr := strings.TrimSpace(string(output))
	parts := strings.Fields(versionStr)
	if len(parts) >= 2 {
		return parts[1], nil
	}

	return versionStr, nil
}

// ReadScript parses #SBATCH directives and command lines from a batch script
func (s *SlurmScheduler) ReadScript(scriptPath string) (*ScriptDescriptor, error) {
	return parseSlurmScript(scriptPath)
}

func parseSlurmScript(scriptPath string) (*ScriptDescriptor, error) {
	lines, err := readFileLines(scriptPath)
	if err != nil {
		return nil, NewParseError(KindSLURM, scriptPath, err)
	}

	d := newDescriptor(scriptPath, KindSLURM)
	for i, line := range lines {
		if m := slurmDirectiveRe.FindStringSubmatch(line); m != nil {
			applySlurmDirective(d, utils.StripInlineComment(m[1]), i+1)
			continue
		}
		if trimmed := strings.TrimSpace(line); isCommandLine(trimmed) {
			d.commands = append(d.commands, trimmed)
		}
	}
	clampNodes(d)
	return d, nil
}

// option is one flag/value pair from a directive line.
type option struct {
	name  string
	value string
}

// splitOptions tokenises a directive body into options. It accepts
// "--name=value", "--name value", "-X value" and "-Xvalue".
func splitOptions(directive string) []option {
	tokens := strings.Fields(directive)
	var opts []option
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if len(tok) < 2 || tok[0] != '-' {
			continue
		}

		var opt option
		hasValue := false
		if strings.HasPrefix(tok, "--") {
			opt.name, opt.value, hasValue = strings.Cut(tok, "=")
		} else {
			opt.name = tok[:2]
			if len(tok) > 2 {
				opt.value = strings.TrimPrefix(tok[2:], "=")
				hasValue = true
			}
		}
		if !hasValue && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
			opt.value = tokens[i+1]
			i++
		}
		opt.value = utils.Unquote(opt.value)
		opts = append(opts, opt)
	}
	return opts
}

func applySlurmDirective(d *ScriptDescriptor, directive string, line int) {
	for _, opt := range splitOptions(directive) {
		key, ok := slurmOptions[opt.name]
		if !ok {
			continue
		}
		switch key {
		case "job-name":
			d.JobName = opt.value
		case "nodes":
			if n, ok := parsePositiveInt("SLURM", opt.name, opt.value, line); ok {
				d.Nodes = n
			}
		case "ntasks-per-node":
			if n, ok := parsePositiveInt("SLURM", opt.name, opt.value, line); ok {
				d.TasksPerNode = n
			}
		case "cpus-per-task":
			if n, ok := parsePositiveInt("SLURM", opt.name, opt.value, line); ok {
				d.CpusPerTask = n
			}
		case "time":
			d.TimeLimit = opt.value
		case "partition":
			d.Partition = opt.value
		case "output":
			d.Output = opt.value
		case "error":
			d.Error = opt.value
		}
	}
}

// WrapScript writes perfbench_<name> next to the original with the job id recorder
func (s *SlurmScheduler) WrapScript(original string, outputDir string) (string, error) {
	return wrapScript(original, outputDir, "SLURM_JOB_ID", KeptScriptName(KindSLURM))
}

// GenerateMonitor writes monitor_login.sh, which samples sacct, sinfo, sstat
// and scontrol until the job reaches a terminal state
func (s *SlurmScheduler) GenerateMonitor(req MonitorRequest) (string, error) {
	vars := [][2]string{
		{"SACCT", commandOr(s.sacctBin, "sacct")},
		{"SQUEUE", commandOr(s.squeueBin, "squeue")},
		{"SINFO", commandOr(s.sinfoBin, "sinfo")},
		{"SSTAT", commandOr(s.sstatBin, "sstat")},
		{"SCONTROL", commandOr(s.scontrolBin, "scontrol")},
		{"SEFF", s.seffBin},
	}
	return writeProbe(KindSLURM, SlurmMonitorScript, req, vars, slurmProbeBody())
}

func slurmProbeBody() string {
	var states []string
	for _, st := range slurmTerminalStates {
		states = append(states, st+"*")
	}

	return `# prints the final state and succeeds once the job has left the system
finished() {
  local state
  state=$("$SACCT" -j "$JOBID" -n -X -o State -P 2>> "$OUTDIR/monitor.log" | head -n1)
  case "$state" in
    ` + strings.Join(states, "|") + `)
      echo "$state"
      return 0
      ;;
  esac
  if [ -z "$("$SQUEUE" -j "$JOBID" -h 2> /dev/null)" ]; then
    echo "${state:-UNKNOWN}"
    return 0
  fi
  return 1
}

while true; do
  ts=$(date +%Y%m%d_%H%M%S)
  probe sacct "$ts" "$SACCT" -j "$JOBID" --format=JobID,JobName%20,State,Elapsed,MaxRSS,AllocCPUs -P
  probe sinfo "$ts" "$SINFO" -N -o "%N %t %f"
  probe sstat "$ts" "$SSTAT" -j "$JOBID" --format=JobID,MaxRSS,AveRSS,MaxVMSize -P
  probe scontrol "$ts" "$SCONTROL" show job "$JOBID"

  if state=$(finished); then
    echo "Job $JOBID finished with state $state at $ts" > "$OUTDIR/job_end_$ts.log"
    if [ -n "$SEFF" ]; then
      "$SEFF" "$JOBID" >> "$OUTDIR/job_end_$ts.log" 2>&1
    fi
    break
  fi

  sleep "$INTERVAL"
done

touch "$OUTDIR/monitor.done"
`
}

// Submit runs sbatch from the script's directory and returns the job ID
func (s *SlurmScheduler) Submit(scriptPath string) (JobHandle, error) {
	name := filepath.Base(scriptPath)
	var output []byte

	err := InDir(filepath.Dir(scriptPath), func() error {
		cmd := exec.Command(s.sbatchBin, name)
		out, err := cmd.CombinedOutput()
		output = out
		return err
	})
	if err != nil {
		return "", NewSubmissionError(KindSLURM, name, strings.TrimSpace(string(output)), err)
	}

	matches := slurmJobIDRe.FindStringSubmatch(string(output))
	if len(matches) < 2 {
		return "", NewSubmissionError(KindSLURM, name, strings.TrimSpace(string(output)), ErrJobIDParseFailed)
	}

	return JobHandle(matches[1]), nil
}

// IsJobActive asks squeue about the job. A failing or empty squeue means the job is gone.
func (s *SlurmScheduler) IsJobActive(handle JobHandle) (bool, error) {
	if s.squeueBin == "" {
		return false, fmt.Errorf("%w: squeue", ErrSchedulerNotFound)
	}
	output, err := exec.Command(s.squeueBin, "-j", string(handle), "-h").Output()
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(string(output)) != "", nil
}

// Wait polls squeue until the job has left the queue
func (s *SlurmScheduler) Wait(ctx context.Context, handle JobHandle, pollInterval time.Duration) error {
	return waitForJob(ctx, handle, pollInterval, s.IsJobActive)
}

// ParseTelemetry reads the sacct logs written by monitor_login.sh
func (s *SlurmScheduler) ParseTelemetry(outputDir string) (*telemetry.Result, error) {
	return ParseTelemetry(KindSLURM, outputDir)
}
