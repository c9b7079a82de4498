package bench

import (
	"path/filepath"

	"github.com/Justype/perfbench/internal/monitor"
	"github.com/Justype/perfbench/internal/report"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/utils"
)

// Status summarises a run directory.
type Status struct {
	RunDir         string
	Identity       monitor.Identity
	MonitorPID     int
	MonitorRunning bool
	Finished       bool
	HasRecord      bool
	Record         report.Record
}

// ReadStatus inspects a run directory without touching the scheduler.
func ReadStatus(runDir string) (*Status, error) {
	id, err := monitor.ReadIdentity(runDir)
	if err != nil {
		return nil, err
	}
	st := &Status{RunDir: runDir, Identity: id, Finished: monitor.Finished(runDir)}

	if kind, err := scheduler.ParseKind(id.Scheduler); err == nil {
		pidFile := monitor.PIDFileFor(filepath.Join(runDir, scheduler.MonitorScriptName(kind)))
		running, pid, err := monitor.IsRunning(pidFile)
		if err != nil {
			utils.PrintDebug("No monitor pid: %v", err)
		}
		st.MonitorRunning, st.MonitorPID = running, pid
	}

	if rec, err := report.ReadRecord(runDir); err == nil {
		st.HasRecord = true
		st.Record = rec
	}
	return st, nil
}
