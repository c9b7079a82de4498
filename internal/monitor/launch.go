// Package monitor starts the generated probe scripts as detached processes
// and observes them through the files they leave behind.
package monitor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Justype/perfbench/internal/utils"
	"github.com/avast/retry-go"
)

// Defaults used by Launch when the options leave them unset.
const (
	DefaultRetries    = 3
	DefaultLiveness   = 200 * time.Millisecond
	DefaultRetryDelay = 500 * time.Millisecond
)

// LaunchOptions configures Launch.
type LaunchOptions struct {
	Script     string        // probe script path
	Dir        string        // working directory, defaults to the script's dir
	Retries    int           // attempts before giving up
	Liveness   time.Duration // how long the process must survive after start
	RetryDelay time.Duration
}

// Process is a launched monitor.
type Process struct {
	PID     int
	PIDFile string
	Script  string
}

// Launch starts `bash <script>` in its own session so it outlives perfbench,
// checks it is still alive after the liveness window and retries otherwise.
// Output goes to monitor.log in the working directory.
func Launch(ctx context.Context, opts LaunchOptions) (*Process, error) {
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Liveness <= 0 {
		opts.Liveness = DefaultLiveness
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Dir(opts.Script)
	}

	var proc *Process
	err := retry.Do(
		func() error {
			p, err := startOnce(opts)
			if err != nil {
				return err
			}
			proc = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(opts.Retries)),
		retry.Delay(opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			utils.PrintWarning("Monitor attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, &LaunchError{Script: opts.Script, Attempts: opts.Retries, Err: err}
	}

	if err := writePID(PIDFileFor(opts.Script), proc.PID); err != nil {
		utils.PrintWarning("%v", err)
	}
	utils.PrintDebug("Monitor %s started with PID %s", utils.StylePath(opts.Script), utils.StyleNumber(proc.PID))
	return proc, nil
}

func startOnce(opts LaunchOptions) (*Process, error) {
	logPath := filepath.Join(opts.Dir, LogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, utils.PermFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command("bash", opts.Script)
	cmd.Dir = opts.Dir
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start monitor: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	select {
	case err := <-exited:
		// A probe that already saw the job finish exits cleanly and leaves the sentinel.
		if err == nil && utils.FileExists(filepath.Join(opts.Dir, SentinelFile)) {
			return &Process{PID: cmd.Process.Pid, PIDFile: PIDFileFor(opts.Script), Script: opts.Script}, nil
		}
		if err == nil {
			err = fmt.Errorf("exited immediately")
		}
		return nil, fmt.Errorf("monitor exited within %s: %w", opts.Liveness, err)
	case <-time.After(opts.Liveness):
		return &Process{PID: cmd.Process.Pid, PIDFile: PIDFileFor(opts.Script), Script: opts.Script}, nil
	}
}
