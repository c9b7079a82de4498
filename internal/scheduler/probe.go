package scheduler

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Justype/perfbench/internal/monitor"
	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/Justype/perfbench/internal/utils"
)

// Probe script names, one per scheduler family.
const (
	SlurmMonitorScript = "monitor_login.sh"
	LsfMonitorScript   = "monitor_sunway.sh"
)

// probePrelude is shared by every generated monitor. It expects JOBID,
// INTERVAL, OUTDIR and SCHEDULER to be set.
const probePrelude = `cd "$OUTDIR" || exit 1
rm -f "$OUTDIR/monitor.done"
: > "$OUTDIR/monitor.log"

{
  echo "JOBID=$JOBID"
  echo "SCHEDULER=$SCHEDULER"
  echo "HOST=$(hostname)"
  echo "STARTED=$(date +%Y%m%d_%H%M%S)"
} > "$OUTDIR/monitor_info.txt"

trap 'echo "$(date "+%F %T") monitor terminated" >> "$OUTDIR/monitor.log"; exit 143' TERM INT

# probe <name> <timestamp> <command...>
probe() {
  local name=$1 ts=$2
  shift 2
  "$@" > "$OUTDIR/${name}_${ts}.log" 2>&1 || echo "$(date "+%F %T") ${name} failed (exit $?)" >> "$OUTDIR/monitor.log"
}
`

// writeProbe records the monitor identity immediately and writes the probe
// script into req.OutputDir. vars are emitted as shell assignments, in order,
// ahead of the shared prelude and the family-specific body.
func writeProbe(kind Kind, name string, req MonitorRequest, vars [][2]string, body string) (string, error) {
	if req.JobID == "" {
		return "", fmt.Errorf("cannot generate monitor without a job id")
	}
	interval := req.Interval
	if interval <= 0 {
		interval = 10
	}

	outDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", req.OutputDir, err)
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return "", NewScriptCreationError(string(req.JobID), outDir, err)
	}

	host, _ := os.Hostname()
	id := monitor.Identity{
		JobID:     string(req.JobID),
		Scheduler: string(kind),
		Host:      host,
		Started:   time.Now().Format(telemetry.StampLayout),
	}
	if err := monitor.WriteIdentity(outDir, id); err != nil {
		return "", err
	}

	var b strings.Builder
	w := bufio.NewWriter(&b)
	fmt.Fprintln(w, "#!/bin/bash")
	fmt.Fprintf(w, "# perfbench %s monitor for job %s\n", kind, req.JobID)
	if req.OriginalScript != "" {
		fmt.Fprintf(w, "# script: %s\n", req.OriginalScript)
	}
	fmt.Fprintf(w, "JOBID=%s\n", shellQuote(string(req.JobID)))
	fmt.Fprintf(w, "SCHEDULER=%s\n", kind)
	fmt.Fprintf(w, "INTERVAL=%d\n", interval)
	fmt.Fprintf(w, "OUTDIR=%s\n", shellQuote(outDir))
	for _, kv := range vars {
		fmt.Fprintf(w, "%s=%s\n", kv[0], shellQuote(kv[1]))
	}
	fmt.Fprintln(w)
	w.WriteString(probePrelude)
	fmt.Fprintln(w)
	w.WriteString(body)
	if err := w.Flush(); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, name)
	if err := utils.WriteExecutable(path, []byte(b.String())); err != nil {
		return "", NewScriptCreationError(string(req.JobID), path, err)
	}
	return path, nil
}

// commandOr returns path when set, otherwise the bare command name.
func commandOr(path, name string) string {
	if path != "" {
		return path
	}
	return name
}
