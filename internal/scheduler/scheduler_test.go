package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"slurm", KindSLURM, false},
		{"SLURM", KindSLURM, false},
		{" lsf ", KindLSF, false},
		{"sunway", KindLSF, false},
		{"pbs", KindUnknown, true},
		{"", KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownKind) {
				t.Errorf("expected ErrUnknownKind, got %v", err)
			}
		})
	}
}

func TestKindFromBinary(t *testing.T) {
	tests := map[string]Kind{
		"/usr/bin/sbatch":   KindSLURM,
		"squeue":            KindSLURM,
		"/opt/lsf/bin/bsub": KindLSF,
		"bjobs":             KindLSF,
		"/usr/bin/qsub":     KindUnknown,
	}
	for bin, want := range tests {
		if got := KindFromBinary(bin); got != want {
			t.Errorf("KindFromBinary(%q) = %v, want %v", bin, got, want)
		}
	}
}

func TestSubmitUnknownKindStartsNothing(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	script := writeScript(t, dir, "job.sh", "#!/bin/bash\ntouch "+marker+"\n")

	_, err := Submit(KindUnknown, script)
	if !IsSubmissionError(err) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if !errors.Is(err, ErrSchedulerNotFound) {
		t.Errorf("expected ErrSchedulerNotFound in chain, got %v", err)
	}
	if _, statErr := os.Stat(marker); !os.IsNotExist(statErr) {
		t.Error("no process should have run")
	}
}

func TestNewWithBinaryInfersKind(t *testing.T) {
	dir := t.TempDir()
	sbatch := writeFakeBin(t, dir, "sbatch", "echo slurm 23.02.6")
	bsub := writeFakeBin(t, dir, "bsub", "echo 'IBM Spectrum LSF 10.1.0.0, Jan 01 2020' >&2")

	s, err := NewWithBinary(KindUnknown, sbatch)
	if err != nil {
		t.Fatalf("NewWithBinary(sbatch): %v", err)
	}
	if s.Kind() != KindSLURM {
		t.Errorf("Kind() = %v, want SLURM", s.Kind())
	}
	if info := s.GetInfo(); info.Version != "23.02.6" || info.Binary != sbatch {
		t.Errorf("unexpected info: %+v", info)
	}

	l, err := NewWithBinary(KindUnknown, bsub)
	if err != nil {
		t.Fatalf("NewWithBinary(bsub): %v", err)
	}
	if l.Kind() != KindLSF {
		t.Errorf("Kind() = %v, want LSF", l.Kind())
	}
	if info := l.GetInfo(); info.Version != "IBM Spectrum LSF 10.1.0.0, Jan 01 2020" {
		t.Errorf("unexpected LSF version: %q", info.Version)
	}

	if _, err := NewWithBinary(KindUnknown, filepath.Join(dir, "qsub")); !errors.Is(err, ErrSchedulerNotFound) {
		t.Errorf("expected ErrSchedulerNotFound, got %v", err)
	}
	if _, err := NewWithBinary(KindSLURM, filepath.Join(dir, "missing")); !errors.Is(err, ErrSchedulerNotFound) {
		t.Errorf("expected ErrSchedulerNotFound for a missing binary, got %v", err)
	}
}

func TestCurrentCachesScheduler(t *testing.T) {
	defer ClearActiveScheduler()

	dir := t.TempDir()
	sbatch := writeFakeBin(t, dir, "sbatch", "exit 0")

	first, err := Current("slurm", sbatch)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	second, err := Current("lsf", "")
	if err != nil {
		t.Fatalf("Current (cached): %v", err)
	}
	if first != second {
		t.Error("Current should reuse the resolved scheduler")
	}

	ClearActiveScheduler()
	if ActiveScheduler() != nil {
		t.Error("ClearActiveScheduler should reset the cache")
	}
}

func TestInDirRestoresWorkingDirectory(t *testing.T) {
	start := mustGetwd(t)
	dir := t.TempDir()

	var inside string
	err := InDir(dir, func() error {
		inside = mustGetwd(t)
		return errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("InDir should return fn's error, got %v", err)
	}
	if realPath(t, inside) != realPath(t, dir) {
		t.Errorf("fn ran in %s, want %s", inside, dir)
	}
	if got := mustGetwd(t); got != start {
		t.Errorf("working directory not restored: %s, want %s", got, start)
	}

	func() {
		defer func() { _ = recover() }()
		_ = InDir(dir, func() error { panic("boom") })
	}()
	if got := mustGetwd(t); got != start {
		t.Errorf("working directory not restored after panic: %s", got)
	}

	if err := InDir(filepath.Join(dir, "missing"), func() error { return nil }); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"slurm 23.02.6", "v23.2.6"},
		{"23.11", "v23.11"},
		{"IBM Spectrum LSF 10.1.0.0, Jan 01 2020", "v10.1.0"},
		{"no version here", ""},
	}
	for _, tt := range tests {
		if got := CanonicalVersion(tt.raw); got != tt.want {
			t.Errorf("CanonicalVersion(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestMeetsMinVersion(t *testing.T) {
	if _, ok := MeetsMinVersion(KindSLURM, "slurm 23.02.6"); !ok {
		t.Error("23.02.6 should satisfy the SLURM minimum")
	}
	if _, ok := MeetsMinVersion(KindSLURM, "slurm 16.05.1"); ok {
		t.Error("16.05.1 should not satisfy the SLURM minimum")
	}
	if _, ok := MeetsMinVersion(KindLSF, "garbage"); ok {
		t.Error("an unparseable version should not pass")
	}
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  string
	}{
		{"parse", NewParseError(KindSLURM, "/x/job.slurm", cause), IsParseError, "cannot read SLURM script /x/job.slurm: boom"},
		{"submission", NewSubmissionError(KindLSF, "gmx.sh", "", cause), IsSubmissionError, "LSF submission of gmx.sh failed: boom"},
		{"creation", NewScriptCreationError("4242", "/x/monitor_login.sh", cause), IsScriptCreationError, "failed to write /x/monitor_login.sh (for 4242): boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("run: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("predicate does not see through wrapping: %v", wrapped)
			}
			if !errors.Is(wrapped, cause) {
				t.Error("Unwrap does not reach the cause")
			}
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestWrapScriptIntoFileFails(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "job.slurm", "#!/bin/bash\necho hi\n")
	blocker := writeScript(t, dir, "not_a_dir", "")

	_, err := wrapScript(script, filepath.Join(blocker, "run"), "SLURM_JOB_ID", KeptScriptName(KindSLURM))
	if !IsScriptCreationError(err) {
		t.Fatalf("expected ScriptCreationError, got %v", err)
	}
}
