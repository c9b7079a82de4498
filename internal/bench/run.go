// Package bench runs the perfbench pipeline: read the batch script, wrap and
// submit it, start the monitor, wait for the job and evaluate the telemetry.
package bench

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Justype/perfbench/internal/monitor"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/Justype/perfbench/internal/utils"
)

// RunDirPrefix names the per-run output directory: perfbench_<YYYYMMDD_HHMMSS>.
const RunDirPrefix = "perfbench_"

// DefaultInterval is the sampling interval of last resort, in seconds.
const DefaultInterval = 10

// Options configures a run.
type Options struct {
	Script          string
	Interval        int    // seconds; 0 falls back to the script, then DefaultInterval
	DefaultInterval int    // used when neither Interval nor the script sets one
	OutputDir       string // parent of the run directory
	PlatformConfig  string
	Wait            bool
	MaxWait         time.Duration // 0 = unbounded
	PollInterval    time.Duration
	SentinelTimeout time.Duration
	MonitorRetries  int
	ExportCSV       bool

	// Now is overridable for tests.
	Now func() time.Time
}

// RunResult describes what a run produced. Analysis is nil in non-blocking mode.
type RunResult struct {
	RunDir        string
	Descriptor    *scheduler.ScriptDescriptor
	WrappedScript string
	JobID         scheduler.JobHandle
	MonitorScript string
	Monitor       *monitor.Process
	Analysis      *Analysis
}

// Runner drives one scheduler through the pipeline.
type Runner struct {
	sched scheduler.Scheduler
	opts  Options
}

// NewRunner creates a runner for s.
func NewRunner(s scheduler.Scheduler, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Runner{sched: s, opts: opts}
}

// Run executes the pipeline. Script and submission failures are returned;
// monitor, telemetry and efficiency problems are reported and degrade.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	desc, err := r.sched.ReadScript(r.opts.Script)
	if err != nil {
		return nil, err
	}
	utils.PrintDebug("Script %s: job %q, %d node(s), %d command(s)",
		utils.StylePath(desc.ScriptPath), desc.JobName, desc.Nodes, len(desc.Commands()))

	interval := r.opts.Interval
	if interval <= 0 {
		interval = desc.Interval
	}
	if interval <= 0 {
		interval = r.opts.DefaultInterval
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	runDir, err := filepath.Abs(filepath.Join(r.opts.OutputDir, RunDirPrefix+r.opts.Now().Format(telemetry.StampLayout)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := utils.EnsureDir(runDir); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", runDir, err)
	}
	res := &RunResult{RunDir: runDir, Descriptor: desc}

	res.WrappedScript, err = r.sched.WrapScript(r.opts.Script, runDir)
	if err != nil {
		return res, err
	}

	res.JobID, err = r.sched.Submit(res.WrappedScript)
	if err != nil {
		return res, err
	}
	utils.PrintSuccess("Submitted %s job %s", r.sched.Kind(), utils.StyleNumber(string(res.JobID)))

	res.MonitorScript, err = r.sched.GenerateMonitor(scheduler.MonitorRequest{
		OriginalScript: r.opts.Script,
		Descriptor:     desc,
		JobID:          res.JobID,
		Interval:       interval,
		OutputDir:      runDir,
	})
	if err != nil {
		utils.PrintWarning("Could not generate monitor: %v", err)
	} else {
		res.Monitor, err = monitor.Launch(ctx, monitor.LaunchOptions{
			Script:  res.MonitorScript,
			Dir:     runDir,
			Retries: r.opts.MonitorRetries,
		})
		if err != nil {
			utils.PrintWarning("%v", err)
		} else {
			utils.PrintNote("Monitoring every %ds, logs in %s", interval, utils.StylePath(runDir))
		}
	}

	if !r.opts.Wait {
		return res, nil
	}

	r.waitForJob(ctx, res)

	res.Analysis = Analyze(AnalyzeOptions{
		Kind:           r.sched.Kind(),
		RunDir:         runDir,
		Descriptor:     desc,
		JobID:          string(res.JobID),
		PlatformConfig: r.opts.PlatformConfig,
		ExportCSV:      r.opts.ExportCSV,
		Now:            r.opts.Now,
	})
	return res, nil
}

// waitForJob blocks until the scheduler forgets the job and the monitor has
// written its sentinel. Timeouts are reported, not returned: whatever
// telemetry exists is still analysed.
func (r *Runner) waitForJob(ctx context.Context, res *RunResult) {
	waitCtx := ctx
	if r.opts.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.opts.MaxWait)
		defer cancel()
	}

	utils.PrintMessage("Waiting for job %s to finish...", utils.StyleNumber(string(res.JobID)))
	if err := r.sched.Wait(waitCtx, res.JobID, r.opts.PollInterval); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			utils.PrintWarning("Job %s still running after %s; analysing partial telemetry", res.JobID, r.opts.MaxWait)
		} else {
			utils.PrintWarning("Stopped waiting for job %s: %v", res.JobID, err)
		}
		return
	}

	if res.Monitor == nil {
		return
	}
	timeout := r.opts.SentinelTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	sentinelCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := monitor.WaitForSentinel(sentinelCtx, res.RunDir); err != nil {
		utils.PrintWarning("Monitor did not finish within %s: %v", timeout, err)
	}
}

// appName derives the application name shown on the record.
func appName(desc *scheduler.ScriptDescriptor) string {
	if desc == nil {
		return ""
	}
	if desc.JobName != "" {
		return desc.JobName
	}
	base := filepath.Base(desc.ScriptPath)
	base = strings.TrimPrefix(base, scheduler.WrappedPrefix)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
