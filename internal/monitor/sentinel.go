package monitor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Justype/perfbench/internal/utils"
	"github.com/fsnotify/fsnotify"
)

// Finished reports whether the completion sentinel exists in dir.
func Finished(dir string) bool {
	return utils.FileExists(filepath.Join(dir, SentinelFile))
}

// WaitForSentinel blocks until monitor.done appears in dir or ctx ends.
func WaitForSentinel(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// The sentinel may have been written before the watch was registered.
	if Finished(dir) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Base(ev.Name) != SentinelFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			utils.PrintDebug("Sentinel watcher error: %v", err)
			if Finished(dir) {
				return nil
			}
		}
	}
}
