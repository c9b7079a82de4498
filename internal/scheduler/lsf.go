package scheduler

import (
	"bytes"
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
	lsfDirectiveRe = regexp.MustCompile(`^\s*#BSUB\s+(.+)$`)
	lsfAssignRe    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*"?([^"\n]*)"?\s*$`)
	lsfJobIDRe     = regexp.MustCompile(`Job <(\d+)>`)
)

// LsfScheduler implements the Scheduler interface for LSF, including the
// Sunway variant whose scripts describe the job with shell assignments.
type LsfScheduler struct {
	bsubBin   string
	bjobsBin  string
	cnloadBin string
}

// NewLsfScheduler creates a new LSF scheduler instance using bsub from PATH
func NewLsfScheduler() (*LsfScheduler, error) {
	return newLsfSchedulerWithBinary("")
}

// NewLsfSchedulerWithBinary creates an LSF scheduler using an explicit bsub path
func NewLsfSchedulerWithBinary(bsubBin string) (*LsfScheduler, error) {
	return newLsfSchedulerWithBinary(bsubBin)
}

func newLsfSchedulerWithBinary(bsubBin string) (*LsfScheduler, error) {
	binPath, err := resolveBinary(bsubBin, "bsub")
	if err != nil {
		return nil, err
	}

	return &LsfScheduler{
		bsubBin:   binPath,
		bjobsBin:  siblingOrPath(binPath, "bjobs"),
		cnloadBin: siblingOrPath(binPath, "cnload"),
	}, nil
}

// Kind returns KindLSF
func (l *LsfScheduler) Kind() Kind { return KindLSF }

// IsAvailable checks if LSF is available and we're not inside an LSF job
func (l *LsfScheduler) IsAvailable() bool {
	if l.bsubBin == "" {
		return false
	}

	// Check if we're already inside an LSF job
	_, inJob := os.LookupEnv("LSB_JOBID")
	return !inJob
}

// GetInfo returns information about the LSF scheduler
func (l *LsfScheduler) GetInfo() *SchedulerInfo {
	_, inJob := os.LookupEnv("LSB_JOBID")

	info := &SchedulerInfo{
		Type:      "LSF",
		Binary:    l.bsubBin,
		InJob:     inJob,
		Available: l.IsAvailable(),
		Commands: []CommandInfo{
			{Name: "bsub", Path: l.bsubBin, Required: true},
			{Name: "bjobs", Path: l.bjobsBin, Required: true},
			{Name: "cnload", Path: l.cnloadBin, Required: true},
		},
	}

	if l.bsubBin != "" {
		if version, err := l.getLsfVersion(); err == nil {
			info.Version = version
		}
	}

	return info
}

// getLsfVersion attempts to get the LSF version
func (l *LsfScheduler) getLsfVersion() (string, error) {
	cmd := exec.Command(l.bsubBin, "-V")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}

	// Output looks like "IBM Spectrum LSF 10.1.0.0, ..."; keep the first line
	versionStr := strings.TrimSpace(string(output))
	if i := strings.IndexByte(versionStr, '\n'); i >= 0 {
		versionStr = strings.TrimSpace(versionStr[:i])
	}
	return versionStr, nil
}

// ReadScript parses a Sunway/LSF batch script. KEY=VALUE assignments carry
// the job description; #BSUB directives are read as a fallback source.
func (l *LsfScheduler) ReadScript(scriptPath string) (*ScriptDescriptor, error) {
	return parseLsfScript(scriptPath)
}

func parseLsfScript(scriptPath string) (*ScriptDescriptor, error) {
	lines, err := readFileLines(scriptPath)
	if err != nil {
		return nil, NewParseError(KindLSF, scriptPath, err)
	}

	d := newDescriptor(scriptPath, KindLSF)
	for i, line := range lines {
		if m := lsfDirectiveRe.FindStringSubmatch(line); m != nil {
			applyBsubDirective(d, utils.StripInlineComment(m[1]))
			continue
		}

		trimmed := strings.TrimSpace(line)
		if !isCommandLine(trimmed) {
			continue
		}
		if m := lsfAssignRe.FindStringSubmatch(utils.StripInlineComment(trimmed)); m != nil {
			if applyLsfAssignment(d, m[1], strings.TrimSpace(m[2]), i+1) {
				continue
			}
		}
		d.commands = append(d.commands, trimmed)
	}
	clampNodes(d)
	return d, nil
}

// applyLsfAssignment consumes the recognised variables and reports whether
// the line was one of them.
func applyLsfAssignment(d *ScriptDescriptor, key, value string, line int) bool {
	switch key {
	case "JOB_NAME":
		d.JobName = value
	case "QUEUE_NAME":
		d.Partition = value
	case "LOG_DIR":
		d.LogDir = value
	case "NODES":
		if n, ok := parsePositiveInt("LSF", key, value, line); ok {
			d.Nodes = n
		}
	case "MASTER_CORES":
		if n, ok := parsePositiveInt("LSF", key, value, line); ok {
			d.MasterCores = n
		}
	case "INTERVAL":
		if n, ok := parsePositiveInt("LSF", key, value, line); ok {
			d.Interval = n
		}
	default:
		return false
	}
	return true
}

func applyBsubDirective(d *ScriptDescriptor, directive string) {
	for _, opt := range splitOptions(directive) {
		switch opt.name {
		case "-J":
			d.JobName = opt.value
		case "-q":
			d.Partition = opt.value
		case "-o":
			d.Output = opt.value
		case "-e":
			d.Error = opt.value
		case "-W":
			d.TimeLimit = opt.value
		}
	}
}

// WrapScript writes perfbench_<name> next to the original with the job id recorder
func (l *LsfScheduler) WrapScript(original string, outputDir string) (string, error) {
	return wrapScript(original, outputDir, "LSB_JOBID", KeptScriptName(KindLSF))
}

// GenerateMonitor writes monitor_sunway.sh, which samples cnload while bjobs
// still reports the job
func (l *LsfScheduler) GenerateMonitor(req MonitorRequest) (string, error) {
	masterCores := ""
	if req.Descriptor != nil && req.Descriptor.MasterCores > 0 {
		masterCores = fmt.Sprint(req.Descriptor.MasterCores)
	}
	vars := [][2]string{
		{"BJOBS", commandOr(l.bjobsBin, "bjobs")},
		{"CNLOAD", commandOr(l.cnloadBin, "cnload")},
		{"MASTER_CORES", masterCores},
	}
	return writeProbe(KindLSF, LsfMonitorScript, req, vars, lsfProbeBody)
}

const lsfProbeBody = `CGLOG="$OUTDIR/cg_monitor_${JOBID}.log"
: > "$CGLOG"
start_time=$(date +%s)

# prints the STAT column of the job, empty when bjobs no longer knows it
job_stat() {
  "$BJOBS" "$JOBID" 2> /dev/null | awk -v id="$JOBID" '$1 == id { print $3; exit }'
}

job_active() {
  local stat
  stat=$(job_stat)
  [ -n "$stat" ] && [ "$stat" != "DONE" ] && [ "$stat" != "EXIT" ]
}

while job_active; do
  ts=$(date +%Y%m%d_%H%M%S)
  {
    echo
    echo "===== $ts ====="
    echo "Run time: $(( $(date +%s) - start_time ))s"
  } >> "$CGLOG"

  NODE_LIST=$("$BJOBS" -l "$JOBID" 2> /dev/null | grep -Po 'nodeid: \K\d+' | tr '\n' ',' | sed 's/,$//')
  echo "NODE_LIST: $NODE_LIST" >> "$CGLOG"

  probe "cnload_b_job_${JOBID}" "$ts" "$CNLOAD" -b -j "$JOBID"
  if [ -n "$NODE_LIST" ]; then
    probe "cnload_c_${JOBID}" "$ts" "$CNLOAD" -c "$NODE_LIST"
    probe "cnload_b_c_${JOBID}" "$ts" "$CNLOAD" -b -c "$NODE_LIST"
  fi

  sleep "$INTERVAL"
done

ts=$(date +%Y%m%d_%H%M%S)
stat=$(job_stat)
echo "Job $JOBID finished with state ${stat:-UNKNOWN} at $ts" > "$OUTDIR/job_end_$ts.log"
echo "Job $JOBID finished, monitor exiting at $(date)" >> "$CGLOG"
touch "$OUTDIR/monitor.done"
`

// Submit feeds the script to bsub on stdin from the script's directory,
// falling back to passing it as an argument only when that invocation fails
func (l *LsfScheduler) Submit(scriptPath string) (JobHandle, error) {
	name := filepath.Base(scriptPath)
	var output string

	err := InDir(filepath.Dir(scriptPath), func() error {
		out, err := l.bsubStdin(name)
		if err == nil {
			// bsub exited 0, so the job is queued even if the id is unreadable
			output = out
			return nil
		}
		utils.PrintDebug("bsub < %s failed (%v), retrying as an argument", name, err)

		out, err = l.bsubArg(name)
		output = out
		return err
	})
	if err != nil {
		return "", NewSubmissionError(KindLSF, name, strings.TrimSpace(output), err)
	}

	// Output looks like "Job <12345> is submitted to queue <normal>."
	matches := lsfJobIDRe.FindStringSubmatch(output)
	if len(matches) < 2 {
		return "", NewSubmissionError(KindLSF, name, strings.TrimSpace(output), ErrJobIDParseFailed)
	}

	return JobHandle(matches[1]), nil
}

func (l *LsfScheduler) bsubStdin(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	defer f.Close()

	var buf bytes.Buffer
	cmd := exec.Command(l.bsubBin)
	cmd.Stdin = f
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err = cmd.Run()
	return buf.String(), err
}

func (l *LsfScheduler) bsubArg(name string) (string, error) {
	out, err := exec.Command(l.bsubBin, name).CombinedOutput()
	return string(out), err
}

// IsJobActive asks bjobs about the job. A failing bjobs or a DONE/EXIT
// status means the job is gone.
func (l *LsfScheduler) IsJobActive(handle JobHandle) (bool, error) {
	if l.bjobsBin == "" {
		return false, fmt.Errorf("%w: bjobs", ErrSchedulerNotFound)
	}
	output, err := exec.Command(l.bjobsBin, string(handle)).Output()
	if err != nil {
		return false, nil
	}

	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != string(handle) {
			continue
		}
		switch fields[2] {
		case "DONE", "EXIT":
			return false, nil
		default:
			return true, nil
		}
	}
	return false, nil
}

// Wait polls bjobs until the job has finished
func (l *LsfScheduler) Wait(ctx context.Context, handle JobHandle, pollInterval time.Duration) error {
	return waitForJob(ctx, handle, pollInterval, l.IsJobActive)
}

// ParseTelemetry reads the cnload bitmap logs written by monitor_sunway.sh
func (l *LsfScheduler) ParseTelemetry(outputDir string) (*telemetry.Result, error) {
	return ParseTelemetry(KindLSF, outputDir)
}
