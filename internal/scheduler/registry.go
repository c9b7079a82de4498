package scheduler

import "sync"

var (
	activeScheduler Scheduler
	schedulerMu     sync.RWMutex
)

// SetActiveScheduler configures the scheduler instance that the application should use.
// Passing nil clears any previously configured scheduler.
func SetActiveScheduler(s Scheduler) {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	activeScheduler = s
}

// ActiveScheduler returns the currently configured scheduler instance (may be nil).
func ActiveScheduler() Scheduler {
	schedulerMu.RLock()
	defer schedulerMu.RUnlock()
	return activeScheduler
}

// Current returns the active scheduler, resolving it on first use from the
// configured kind and binary. Later calls reuse that result until
// ClearActiveScheduler forces a fresh detection.
func Current(kindName, bin string) (Scheduler, error) {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	if activeScheduler != nil {
		return activeScheduler, nil
	}
	s, err := Resolve(kindName, bin)
	if err != nil {
		return nil, err
	}
	activeScheduler = s
	return s, nil
}

// ClearActiveScheduler resets the active scheduler reference.
func ClearActiveScheduler() {
	SetActiveScheduler(nil)
}
