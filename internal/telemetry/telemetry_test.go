package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCnload = `+==========================================================================+
 NODE_ID   CPUID  STRUCT_NO   IP_ADDRESS      STATUS     UPTIME         1'LOAD MPES SPES
==========================================================================+
 vn000012  12     0:0:3:0     100.0.3.1       busy      11Day 00:12      3.64   6    384
        +-------------+--------------------+--------------------+
        |    MiniOS   |     ValidBitmap    |    EmployBitmap    |
        +-------------+--------------------+--------------------+
        |     MPE     | 0x000000000000003F | 0x000000000000003F |
        +-------------+--------------------+--------------------+
        |     SPE0    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        |     SPE1    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        |     SPE2    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        |     SPE3    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        |     SPE4    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        |     SPE5    | 0xFFFFFFFFFFFFFFFF | 0xFFFFFFFFFFFFFFFF |
        +-------------+--------------------+--------------------+
`

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestParseBitmapCounts(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cnload_b_job_3508759_20251201_120000.log", sampleCnload)

	r, err := ParseBitmap(dir)
	if err != nil {
		t.Fatalf("ParseBitmap: %v", err)
	}
	if len(r.Bitmap) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(r.Bitmap))
	}

	s := r.Bitmap[0]
	if s.TotalActive != 390 {
		t.Errorf("TotalActive = %d, want 390", s.TotalActive)
	}
	if s.TotalBits != 448 {
		t.Errorf("TotalBits = %d, want 448", s.TotalBits)
	}
	if s.Utilization != 87.05 {
		t.Errorf("Utilization = %v, want 87.05", s.Utilization)
	}
	if s.Stamp != "20251201_120000" {
		t.Errorf("Stamp = %q", s.Stamp)
	}
	if diff := cmp.Diff([]string{"vn000012"}, s.Nodes()); diff != "" {
		t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
	}
	if s.Groups[0].Label != "MPE" || s.Groups[0].Active != 6 || s.Groups[0].Width != 64 {
		t.Errorf("unexpected MPE row: %+v", s.Groups[0])
	}
}

func TestParseBitmapFallbackAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cnload_b_c_20251201_120010.log", sampleCnload)
	writeLog(t, dir, "cnload_b_c_20251201_120000.log", "no bitmap rows here\n")

	r, err := ParseBitmap(dir)
	if err != nil {
		t.Fatalf("ParseBitmap: %v", err)
	}
	if len(r.Bitmap) != 1 {
		t.Fatalf("expected the empty file to be skipped, got %d samples", len(r.Bitmap))
	}
	if r.Warnings() != nil {
		t.Errorf("empty files should not warn: %v", r.Warnings())
	}
}

func TestParseBitmapEmptyDir(t *testing.T) {
	r, err := ParseBitmap(t.TempDir())
	if err != nil {
		t.Fatalf("ParseBitmap: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty result, got %d samples", r.Len())
	}
	if _, ok := r.ElapsedSeconds(); ok {
		t.Error("empty result should have no elapsed time")
	}
}

func TestParseBitmapWarnsOnBadName(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cnload_b_job_latest.log", sampleCnload)

	r, err := ParseBitmap(dir)
	if err != nil {
		t.Fatalf("ParseBitmap: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected no samples, got %d", r.Len())
	}
	if r.Warnings() == nil || !strings.Contains(r.Warnings().Error(), "cnload_b_job_latest.log") {
		t.Errorf("expected a warning naming the file, got %v", r.Warnings())
	}
}

func TestBitmapElapsedUsesChronology(t *testing.T) {
	dir := t.TempDir()
	// Name order differs from time order because of the job id prefix.
	writeLog(t, dir, "cnload_b_job_2_20251201_120500.log", sampleCnload)
	writeLog(t, dir, "cnload_b_job_1_20251201_121000.log", sampleCnload)
	writeLog(t, dir, "cnload_b_job_3_20251201_120000.log", sampleCnload)

	r, err := ParseBitmap(dir)
	if err != nil {
		t.Fatalf("ParseBitmap: %v", err)
	}
	secs, ok := r.ElapsedSeconds()
	if !ok || secs != 600 {
		t.Errorf("ElapsedSeconds() = %d, %v; want 600, true", secs, ok)
	}
	// Discovery order survives the computation.
	if r.Bitmap[0].Stamp != "20251201_121000" {
		t.Errorf("samples reordered: first stamp %q", r.Bitmap[0].Stamp)
	}

	r.SortByTime()
	if r.Bitmap[0].Stamp != "20251201_120000" {
		t.Errorf("samples not sorted: first stamp %q", r.Bitmap[0].Stamp)
	}
}

func TestParseTabular(t *testing.T) {
	dir := t.TempDir()
	header := "JobID|JobName|State|Elapsed|MaxRSS|AllocCPUS\n"
	writeLog(t, dir, "sacct_20251201_120010.log", header+"42|bench|COMPLETED|01:02:03||8\n42.batch|batch|COMPLETED|01:02:03|1024K|8\n")
	writeLog(t, dir, "sacct_20251201_120000.log", header+"42|bench|RUNNING|01:01:53||8\n")
	writeLog(t, dir, "sacct_20251201_115950.log", header)

	r, err := ParseTabular(dir)
	if err != nil {
		t.Fatalf("ParseTabular: %v", err)
	}
	if len(r.Tabular) != 2 {
		t.Fatalf("header-only file should be skipped, got %d samples", len(r.Tabular))
	}

	secs, ok := r.ElapsedSeconds()
	if !ok || secs != 3723 {
		t.Errorf("ElapsedSeconds() = %d, %v; want 3723, true", secs, ok)
	}

	want := []string{"RUNNING", "COMPLETED"}
	var got []string
	for _, p := range r.Column("State") {
		got = append(got, p.Value)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("State column mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTabularMissingFields(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sacct_20251201_120000.log", "JobID|State|Extra\n7|PENDING|x\n")

	r, err := ParseTabular(dir)
	if err != nil {
		t.Fatalf("ParseTabular: %v", err)
	}
	s := r.Tabular[0]
	if s.Get("JobID") != "7" || s.Get("State") != "PENDING" {
		t.Errorf("unexpected fields: %v", s.Fields)
	}
	if v, ok := s.Fields["Elapsed"]; !ok || v != "" {
		t.Errorf("missing attribute should be zero-filled, got %q (present=%v)", v, ok)
	}
	if _, ok := s.Fields["Extra"]; ok {
		t.Error("unrecognised attribute should be dropped")
	}
}

func TestParseTabularNoData(t *testing.T) {
	_, err := ParseTabular(t.TempDir())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestParseElapsed(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"01:02:03", 3723, false},
		{"00:00:00", 0, false},
		{"12:34", 754, false},
		{"2-00:00:01", 172801, false},
		{"00:01:02.500", 62, false},
		{"", 0, true},
		{"Unknown", 0, true},
		{"1:2:3:4", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseElapsed(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseElapsed(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseElapsed(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestUtilizationStats(t *testing.T) {
	r := &Result{Kind: KindBitmap, Bitmap: []BitmapSample{{Utilization: 50}, {Utilization: 87.05}, {Utilization: 10}}}
	if got := r.PeakUtilization(); got != 87.05 {
		t.Errorf("PeakUtilization() = %v", got)
	}
	if got := r.MeanUtilization(); got != 49.02 {
		t.Errorf("MeanUtilization() = %v", got)
	}
}

func TestWriteBitmapCSV(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "cnload_b_job_1_20251201_120000.log", sampleCnload)
	r, err := ParseBitmap(dir)
	if err != nil {
		t.Fatal(err)
	}

	summary := filepath.Join(dir, SummaryCSVName)
	if err := WriteBitmapSummaryCSV(summary, r); err != nil {
		t.Fatalf("WriteBitmapSummaryCSV: %v", err)
	}
	data, _ := os.ReadFile(summary)
	want := "time_stamp,total_active,total_bits,utilization_percent\n20251201_120000,390,448,87.05\n"
	if string(data) != want {
		t.Errorf("summary csv = %q, want %q", data, want)
	}

	detail := filepath.Join(dir, DetailedCSVName)
	if err := WriteBitmapDetailCSV(detail, r); err != nil {
		t.Fatalf("WriteBitmapDetailCSV: %v", err)
	}
	data, _ = os.ReadFile(detail)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected header + 7 rows, got %d lines", len(lines))
	}
	if lines[1] != "cnload_b_job_1_20251201_120000.log,20251201_120000,vn000012,MPE,64,6,0x000000000000003F,0x000000000000003F" {
		t.Errorf("unexpected first detail row: %q", lines[1])
	}
}
