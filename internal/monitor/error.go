package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity is returned when monitor_info.txt is missing or has no JOBID.
	ErrNoIdentity = errors.New("monitor identity not found")
	// ErrNoPIDFile is returned when a monitor PID file does not exist.
	ErrNoPIDFile = errors.New("monitor pid file not found")
)

// LaunchError is returned when the monitor could not be kept alive after all
// attempts. Callers treat it as a warning: the job still runs.
type LaunchError struct {
	Script   string
	Attempts int
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch monitor %s after %d attempt(s): %v", e.Script, e.Attempts, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchError checks if an error is a LaunchError
func IsLaunchError(err error) bool {
	var e *LaunchError
	return errors.As(err, &e)
}
