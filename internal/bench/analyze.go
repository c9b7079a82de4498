package bench

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/efficiency"
	"github.com/Justype/perfbench/internal/monitor"
	"github.com/Justype/perfbench/internal/report"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/Justype/perfbench/internal/utils"
)

// AnalyzeOptions configures post-processing of a run directory.
type AnalyzeOptions struct {
	Kind           scheduler.Kind
	RunDir         string
	Descriptor     *scheduler.ScriptDescriptor // nil: recovered from the kept script copy
	JobID          string
	PlatformConfig string
	ExportCSV      bool
	Now            func() time.Time
}

// Analysis is the outcome of post-processing.
type Analysis struct {
	Platform    config.PlatformConfig
	Telemetry   *telemetry.Result
	Efficiency  efficiency.Result
	Record      report.Record
	RecordPath  string
	MetricsPath string
	CSVPaths    []string
}

// Analyze parses the telemetry in a run directory, evaluates the efficiency
// and writes result.yaml and perfbench.prom. Every failure degrades; the
// returned analysis always carries a record.
func Analyze(opts AnalyzeOptions) *Analysis {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Analysis{}

	platform, err := config.LoadPlatform(opts.PlatformConfig)
	if err != nil {
		utils.PrintWarning("%v; using default platform %s", err, platform.PlatformName)
	}
	a.Platform = platform

	result, err := scheduler.ParseTelemetry(opts.Kind, opts.RunDir)
	switch {
	case errors.Is(err, telemetry.ErrNoData):
		utils.PrintWarning("No telemetry samples in %s", utils.StylePath(opts.RunDir))
	case err != nil:
		utils.PrintWarning("Telemetry parse failed: %v", err)
	}
	if result != nil {
		if w := result.Warnings(); w != nil {
			utils.PrintWarning("Some telemetry files were skipped: %v", w)
		}
	}
	a.Telemetry = result

	var elapsed int64
	elapsedOK := false
	if result != nil {
		elapsed, elapsedOK = result.ElapsedSeconds()
	}

	nodes, masterCores := 1, 0
	if opts.Descriptor != nil {
		nodes = opts.Descriptor.Nodes
		masterCores = opts.Descriptor.MasterCores
	}
	profile := efficiency.Profile{
		Platform:        platform.PlatformName,
		ComparedCores:   platform.ComparedCores,
		ComparedRunTime: platform.ComparedRunTime,
	}
	a.Efficiency = efficiency.Evaluate(profile, nodes, masterCores, elapsed, elapsedOK)
	if a.Efficiency.Known {
		utils.PrintSuccess("Parallel efficiency: %s", utils.StyleNumber(a.Efficiency.Formatted))
	} else {
		utils.PrintWarning("Efficiency unavailable (%s), reporting %s", a.Efficiency.Reason, a.Efficiency.Formatted)
	}

	lock, err := report.AcquireLock(opts.RunDir, true)
	if err != nil {
		utils.PrintWarning("%v", err)
	}
	defer lock.Close()

	a.Record = report.NewRecord(a.Efficiency, appName(opts.Descriptor), opts.JobID, string(opts.Kind), opts.RunDir, opts.Now())
	if a.RecordPath, err = report.WriteRecord(opts.RunDir, a.Record); err != nil {
		utils.PrintError("%v", err)
	}
	if a.MetricsPath, err = report.WriteMetrics(opts.RunDir, a.Record, result); err != nil {
		utils.PrintWarning("%v", err)
	}

	if opts.ExportCSV && result != nil && result.Kind == telemetry.KindBitmap && len(result.Bitmap) > 0 {
		summary := filepath.Join(opts.RunDir, telemetry.SummaryCSVName)
		detail := filepath.Join(opts.RunDir, telemetry.DetailedCSVName)
		if err := telemetry.WriteBitmapSummaryCSV(summary, result); err != nil {
			utils.PrintWarning("%v", err)
		} else {
			a.CSVPaths = append(a.CSVPaths, summary)
		}
		if err := telemetry.WriteBitmapDetailCSV(detail, result); err != nil {
			utils.PrintWarning("%v", err)
		} else {
			a.CSVPaths = append(a.CSVPaths, detail)
		}
	}

	return a
}

// AnalyzeDir post-processes an existing run directory, recovering the
// scheduler family and job id from monitor_info.txt and the script
// description from the wrapped copy kept there.
func AnalyzeDir(runDir, platformConfig string, exportCSV bool) (*Analysis, error) {
	if !utils.DirExists(runDir) {
		return nil, fmt.Errorf("run directory %s does not exist", runDir)
	}
	id, err := monitor.ReadIdentity(runDir)
	if err != nil {
		return nil, err
	}
	kind, err := scheduler.ParseKind(id.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", monitor.IdentityFile, err)
	}

	var desc *scheduler.ScriptDescriptor
	kept := filepath.Join(runDir, scheduler.KeptScriptName(kind))
	if utils.FileExists(kept) {
		if desc, err = scheduler.ParseScript(kept, kind); err != nil {
			utils.PrintWarning("Could not read %s: %v", kept, err)
			desc = nil
		}
	} else {
		utils.PrintWarning("%s not found; assuming 1 node", utils.StylePath(kept))
	}

	return Analyze(AnalyzeOptions{
		Kind:           kind,
		RunDir:         runDir,
		Descriptor:     desc,
		JobID:          id.JobID,
		PlatformConfig: platformConfig,
		ExportCSV:      exportCSV,
	}), nil
}
