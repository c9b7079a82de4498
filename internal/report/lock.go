package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Justype/perfbench/internal/utils"
	"golang.org/x/sys/unix"
)

// LockFile serialises writers of one run directory's result files.
const LockFile = ".perfbench.lock"

// Lock is an exclusive flock on a run directory. It must be closed to
// release the lock.
type Lock struct {
	file *os.File
}

// Close releases the lock by closing the file.
func (l *Lock) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	// flock locks are released when the descriptor is closed
	err := l.file.Close()
	l.file = nil
	return err
}

// AcquireLock takes the run-directory lock. With wait false it fails at once
// when another process holds it; otherwise it blocks.
func AcquireLock(dir string, wait bool) (*Lock, error) {
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, utils.PermFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock %s: %w", path, err)
	}

	how := unix.LOCK_EX
	if !wait {
		how |= unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, fmt.Errorf("results in %s are being written by another perfbench process", utils.StylePath(dir))
	}
	return &Lock{file: f}, nil
}
