package monitor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Justype/perfbench/internal/utils"
)

const (
	// IdentityFile records which job a monitor is tracking.
	IdentityFile = "monitor_info.txt"
	// SentinelFile is created by the monitor once the job has finished.
	SentinelFile = "monitor.done"
	// LogFile collects probe failures and launcher output.
	LogFile = "monitor.log"
)

// Identity is the content of monitor_info.txt.
type Identity struct {
	JobID     string
	Scheduler string
	Host      string
	Started   string
}

// WriteIdentity writes monitor_info.txt into dir.
func WriteIdentity(dir string, id Identity) error {
	var b strings.Builder
	fmt.Fprintf(&b, "JOBID=%s\n", id.JobID)
	fmt.Fprintf(&b, "SCHEDULER=%s\n", id.Scheduler)
	fmt.Fprintf(&b, "HOST=%s\n", id.Host)
	fmt.Fprintf(&b, "STARTED=%s\n", id.Started)

	path := filepath.Join(dir, IdentityFile)
	if err := os.WriteFile(path, []byte(b.String()), utils.PermFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadIdentity parses monitor_info.txt in dir. Unknown keys are ignored.
func ReadIdentity(dir string) (Identity, error) {
	path := filepath.Join(dir, IdentityFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, fmt.Errorf("%w: %s", ErrNoIdentity, path)
		}
		return Identity{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var id Identity
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "JOBID":
			id.JobID = value
		case "SCHEDULER":
			id.Scheduler = value
		case "HOST":
			id.Host = value
		case "STARTED":
			id.Started = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Identity{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if id.JobID == "" {
		return Identity{}, fmt.Errorf("%w: %s has no JOBID", ErrNoIdentity, path)
	}
	return id, nil
}
