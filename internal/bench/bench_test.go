package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Justype/perfbench/internal/monitor"
	"github.com/Justype/perfbench/internal/report"
	"github.com/Justype/perfbench/internal/scheduler"
	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/google/go-cmp/cmp"
)

const platformYAML = `platform_name: SW39000
compared_cores: 1
compared_run_time: 3600
`

const slurmJob = `#!/bin/bash
#SBATCH --job-name=bench
#SBATCH -N 10
#SBATCH --ntasks-per-node=4

srun ./app
`

const cnloadSample = ` vn000012  12     0:0:3:0     100.0.3.1       busy      11Day 00:12      3.64   6    384
        |     MPE     | 0x000000000000003F | 0x000000000000003F |
        |     SPE0    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
`

func writeFile(t *testing.T, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// fakeSlurm installs sbatch, squeue and sacct stand-ins for a job that has
// already completed after 01:02:03.
func fakeSlurm(t *testing.T) scheduler.Scheduler {
	t.Helper()
	binDir := t.TempDir()
	writeFile(t, binDir, "sbatch", "#!/bin/sh\necho \"Submitted batch job 4242\"\n", 0755)
	writeFile(t, binDir, "squeue", "#!/bin/sh\nexit 0\n", 0755)
	writeFile(t, binDir, "sacct", `#!/bin/sh
case "$*" in
  *--format*) printf 'JobID|JobName|State|Elapsed|MaxRSS|AllocCPUS\n4242|bench|COMPLETED|01:02:03||8\n' ;;
  *) echo "COMPLETED" ;;
esac
`, 0755)

	s, err := scheduler.NewWithBinary(scheduler.KindSLURM, filepath.Join(binDir, "sbatch"))
	if err != nil {
		t.Fatalf("NewWithBinary: %v", err)
	}
	return s
}

func fixedNow() time.Time {
	return time.Date(2025, 12, 1, 12, 0, 0, 0, time.Local)
}

func TestRunSlurmPipeline(t *testing.T) {
	s := fakeSlurm(t)
	jobDir := t.TempDir()
	script := writeFile(t, jobDir, "job.slurm", slurmJob, 0644)
	platform := writeFile(t, t.TempDir(), "platform_config.yaml", platformYAML, 0644)
	outDir := t.TempDir()

	r := NewRunner(s, Options{
		Script:          script,
		Interval:        1,
		OutputDir:       outDir,
		PlatformConfig:  platform,
		Wait:            true,
		MaxWait:         30 * time.Second,
		PollInterval:    50 * time.Millisecond,
		SentinelTimeout: 20 * time.Second,
		Now:             fixedNow,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := filepath.Join(outDir, "perfbench_20251201_120000"); res.RunDir != want {
		t.Errorf("RunDir = %s, want %s", res.RunDir, want)
	}
	if res.JobID != "4242" {
		t.Errorf("JobID = %q, want 4242", res.JobID)
	}
	if res.WrappedScript != filepath.Join(jobDir, "perfbench_job.slurm") {
		t.Errorf("WrappedScript = %s", res.WrappedScript)
	}
	if res.Monitor == nil {
		t.Fatal("monitor was not launched")
	}
	if !monitor.Finished(res.RunDir) {
		t.Error("monitor.done missing after wait")
	}
	if res.Analysis == nil {
		t.Fatal("no analysis in blocking mode")
	}

	eff := res.Analysis.Efficiency
	if !eff.Known {
		t.Fatalf("efficiency unknown: %s", eff.Reason)
	}
	if eff.ElapsedSeconds != 3723 || eff.Cores != 3900 {
		t.Errorf("elapsed=%d cores=%d, want 3723 and 3900", eff.ElapsedSeconds, eff.Cores)
	}
	want := fmt.Sprintf("%.2f%%(10 Nodes)", 100*3600/(0.39*3723))
	if eff.Formatted != want {
		t.Errorf("Formatted = %q, want %q", eff.Formatted, want)
	}

	rec, err := report.ReadRecord(res.RunDir)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	got := struct{ Platform, App, Eff, Job string }{rec.Platform, rec.AppName, rec.Eff, rec.JobID}
	wantRec := struct{ Platform, App, Eff, Job string }{"SW39000", "bench", want, "4242"}
	if diff := cmp.Diff(wantRec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(res.RunDir, report.MetricsFile)); err != nil {
		t.Errorf("metrics file missing: %v", err)
	}
}

func TestRunWithoutWaitStopsAfterLaunch(t *testing.T) {
	s := fakeSlurm(t)
	script := writeFile(t, t.TempDir(), "job.slurm", slurmJob, 0644)

	r := NewRunner(s, Options{Script: script, Interval: 1, OutputDir: t.TempDir(), Now: fixedNow})
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Analysis != nil {
		t.Error("non-blocking run should not analyse")
	}
	if res.MonitorScript == "" {
		t.Error("monitor script not generated")
	}

	// let the detached probe finish so the temp dir can be removed
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	_ = monitor.WaitForSentinel(ctx, res.RunDir)
}

func TestRunFailsOnMissingScript(t *testing.T) {
	s := fakeSlurm(t)
	r := NewRunner(s, Options{Script: filepath.Join(t.TempDir(), "absent.slurm"), OutputDir: t.TempDir()})
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected an error for a missing script")
	}
}

func TestRunFailsOnSubmissionError(t *testing.T) {
	binDir := t.TempDir()
	writeFile(t, binDir, "sbatch", "#!/bin/sh\necho 'sbatch: error: invalid partition' >&2\nexit 1\n", 0755)
	s, err := scheduler.NewWithBinary(scheduler.KindSLURM, filepath.Join(binDir, "sbatch"))
	if err != nil {
		t.Fatal(err)
	}
	script := writeFile(t, t.TempDir(), "job.slurm", slurmJob, 0644)

	res, err := NewRunner(s, Options{Script: script, OutputDir: t.TempDir(), Now: fixedNow}).Run(context.Background())
	if !scheduler.IsSubmissionError(err) {
		t.Fatalf("expected a submission error, got %v", err)
	}
	if res == nil || res.MonitorScript != "" {
		t.Error("monitor must not be generated when submission fails")
	}
}

func TestAnalyzeDirLsf(t *testing.T) {
	runDir := t.TempDir()
	if err := monitor.WriteIdentity(runDir, monitor.Identity{JobID: "3508759", Scheduler: "lsf"}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, runDir, scheduler.KeptScriptName(scheduler.KindLSF), "#!/bin/bash\nJOB_NAME=gmx\nNODES=2\nMASTER_CORES=6\nbsub -b ./gmx\n", 0755)
	writeFile(t, runDir, "cnload_b_job_3508759_20251201_120000.log", cnloadSample, 0644)
	writeFile(t, runDir, "cnload_b_job_3508759_20251201_121000.log", cnloadSample, 0644)
	platform := writeFile(t, t.TempDir(), "platform_config.yaml", platformYAML, 0644)

	a, err := AnalyzeDir(runDir, platform, true)
	if err != nil {
		t.Fatalf("AnalyzeDir: %v", err)
	}

	if a.Telemetry == nil || a.Telemetry.Kind != telemetry.KindBitmap || a.Telemetry.Len() != 2 {
		t.Fatalf("unexpected telemetry: %+v", a.Telemetry)
	}
	eff := a.Efficiency
	if eff.Cores != 2*6*64 || eff.ElapsedSeconds != 600 {
		t.Errorf("cores=%d elapsed=%d, want 768 and 600", eff.Cores, eff.ElapsedSeconds)
	}
	if eff.Formatted != "7812.50%(2 Nodes)" {
		t.Errorf("Formatted = %q", eff.Formatted)
	}
	if a.Record.AppName != "gmx" || a.Record.JobID != "3508759" {
		t.Errorf("record = %+v", a.Record)
	}
	if len(a.CSVPaths) != 2 {
		t.Errorf("expected two CSV exports, got %v", a.CSVPaths)
	}
}

func TestAnalyzeDegradesWithoutTelemetry(t *testing.T) {
	runDir := t.TempDir()
	a := Analyze(AnalyzeOptions{
		Kind:           scheduler.KindSLURM,
		RunDir:         runDir,
		PlatformConfig: filepath.Join(runDir, "missing.yaml"),
		Now:            fixedNow,
	})

	if a.Platform.PlatformName != "SW39000" || a.Platform.Source != "default" {
		t.Errorf("platform = %+v, want default baseline", a.Platform)
	}
	if a.Efficiency.Known {
		t.Error("efficiency should be unknown without telemetry")
	}
	if a.Efficiency.Formatted != "0.00%(1 Nodes)" {
		t.Errorf("Formatted = %q", a.Efficiency.Formatted)
	}
	data, err := os.ReadFile(a.RecordPath)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	if !strings.Contains(string(data), "known: false") {
		t.Errorf("record should mark efficiency unknown:\n%s", data)
	}
}

func TestAnalyzeDirRequiresIdentity(t *testing.T) {
	if _, err := AnalyzeDir(t.TempDir(), "", false); err == nil {
		t.Fatal("expected an error without monitor_info.txt")
	}
	if _, err := AnalyzeDir(filepath.Join(t.TempDir(), "nope"), "", false); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestReadStatus(t *testing.T) {
	runDir := t.TempDir()
	if err := monitor.WriteIdentity(runDir, monitor.Identity{JobID: "77", Scheduler: "slurm", Host: "login1"}); err != nil {
		t.Fatal(err)
	}

	st, err := ReadStatus(runDir)
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if st.Identity.JobID != "77" || st.Finished || st.HasRecord || st.MonitorRunning {
		t.Errorf("fresh run status = %+v", st)
	}

	writeFile(t, runDir, monitor.SentinelFile, "", 0644)
	if _, err := report.WriteRecord(runDir, report.Record{Platform: "SW39000", Eff: "1.00%(1 Nodes)"}); err != nil {
		t.Fatal(err)
	}
	st, err = ReadStatus(runDir)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Finished || !st.HasRecord || st.Record.Eff != "1.00%(1 Nodes)" {
		t.Errorf("finished run status = %+v", st)
	}
}

func TestAppName(t *testing.T) {
	tests := []struct {
		name string
		desc *scheduler.ScriptDescriptor
		want string
	}{
		{"nil", nil, ""},
		{"job name", &scheduler.ScriptDescriptor{JobName: "lammps", ScriptPath: "/x/run.sh"}, "lammps"},
		{"script stem", &scheduler.ScriptDescriptor{ScriptPath: "/x/run.slurm"}, "run"},
		{"wrapped stem", &scheduler.ScriptDescriptor{ScriptPath: "/x/perfbench_run.sh"}, "run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := appName(tt.desc); got != tt.want {
				t.Errorf("appName() = %q, want %q", got, tt.want)
			}
		})
	}
}
