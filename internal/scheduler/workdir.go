package scheduler

import (
	"fmt"
	"os"
	"sync"

	"github.com/Justype/perfbench/internal/utils"
)

// wdMu serialises working-directory changes; the cwd is process-wide.
var wdMu sync.Mutex

// InDir runs fn with the process working directory set to dir and restores
// the previous directory on every exit path, including panics.
func InDir(dir string, fn func() error) (err error) {
	wdMu.Lock()
	defer wdMu.Unlock()

	prev, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("failed to enter %s: %w", dir, err)
	}
	defer func() {
		if cerr := os.Chdir(prev); cerr != nil {
			utils.PrintError("Failed to restore working directory %s: %v", prev, cerr)
			if err == nil {
				err = fmt.Errorf("failed to restore working directory %s: %w", prev, cerr)
			}
		}
	}()

	return fn()
}
