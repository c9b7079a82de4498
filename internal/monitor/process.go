package monitor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Justype/perfbench/internal/utils"
	"golang.org/x/sys/unix"
)

// PIDFileFor returns the PID file path of a probe script: monitor_login.sh
// is tracked in monitor_login.pid next to it.
func PIDFileFor(script string) string {
	return strings.TrimSuffix(script, ".sh") + ".pid"
}

func writePID(path string, pid int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), utils.PermFile); err != nil {
		return fmt.Errorf("failed to write pid file %s: %w", path, err)
	}
	return nil
}

// ReadPID reads a PID file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNoPIDFile, path)
		}
		return 0, fmt.Errorf("failed to read pid file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// IsRunning reports whether the process recorded in pidFile is alive.
func IsRunning(pidFile string) (bool, int, error) {
	pid, err := ReadPID(pidFile)
	if err != nil {
		return false, 0, err
	}
	return pidAlive(pid), pid, nil
}

// pidAlive probes a pid with signal 0. EPERM still means the process exists.
func pidAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
