package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10", 10 * time.Second, false},
		{"0", 0, false},
		{"90s", 90 * time.Second, false},
		{"00:02:00", 2 * time.Minute, false},
		{"-5", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSeconds(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSeconds(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("parseSeconds(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	LoadDefaults("/opt/perfbench/bin/perfbench")
	if Global.ProgramDir != "/opt/perfbench/bin" {
		t.Errorf("ProgramDir = %q", Global.ProgramDir)
	}
	if Global.Interval != 10 || Global.MonitorRetries != 3 {
		t.Errorf("unexpected defaults: interval=%d retries=%d", Global.Interval, Global.MonitorRetries)
	}
	if Global.MaxWait != 0 {
		t.Errorf("MaxWait should default to unbounded, got %v", Global.MaxWait)
	}
}

func writePlatform(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), PlatformConfigFilename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadPlatformFile(t *testing.T) {
	path := writePlatform(t, "platform_name: Tesla V100\ncompared_cores: 2\ncompared_run_time: 1800\n")

	cfg, err := ReadPlatformFile(path)
	if err != nil {
		t.Fatalf("ReadPlatformFile: %v", err)
	}
	if cfg.PlatformName != "Tesla V100" || cfg.ComparedCores != 2 || cfg.ComparedRunTime != 1800 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
}

func TestReadPlatformFileKeepsMissingDefaults(t *testing.T) {
	path := writePlatform(t, "platform_name: Matrix3000\n")

	cfg, err := ReadPlatformFile(path)
	if err != nil {
		t.Fatalf("ReadPlatformFile: %v", err)
	}
	if cfg.ComparedCores != DefaultComparedCores || cfg.ComparedRunTime != DefaultComparedRunTime {
		t.Errorf("missing keys should keep defaults: %+v", cfg)
	}
}

func TestLoadPlatformFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name     string
		explicit func(t *testing.T) string
	}{
		{"malformed yaml", func(t *testing.T) string { return writePlatform(t, "platform_name: [unterminated\n") }},
		{"non-positive baseline", func(t *testing.T) string { return writePlatform(t, "platform_name: SW26010\ncompared_run_time: 0\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadPlatform(tt.explicit(t))
			if err == nil {
				t.Fatal("expected an error")
			}
			if cfg != DefaultPlatformConfig() {
				t.Errorf("expected default config, got %+v", cfg)
			}
		})
	}
}

func TestLoadPlatformExplicitWins(t *testing.T) {
	path := writePlatform(t, "platform_name: DCU Z100\ncompared_cores: 4\ncompared_run_time: 600\n")

	cfg, err := LoadPlatform(path)
	if err != nil {
		t.Fatalf("LoadPlatform: %v", err)
	}
	if cfg.PlatformName != "DCU Z100" {
		t.Errorf("PlatformName = %q", cfg.PlatformName)
	}
}

func TestLoadPlatformMissingExplicitIgnoresSearchPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".perfbench"), 0755); err != nil {
		t.Fatal(err)
	}
	userCfg := filepath.Join(home, ".perfbench", PlatformConfigFilename)
	if err := os.WriteFile(userCfg, []byte("platform_name: Tesla V100\ncompared_cores: 8\ncompared_run_time: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(t.TempDir(), "typo.yaml")
	cfg, err := LoadPlatform(missing)
	if err == nil {
		t.Fatal("expected an error for a missing explicit platform config")
	}
	if cfg != DefaultPlatformConfig() {
		t.Errorf("expected default config, got %+v", cfg)
	}
	if got := PlatformSearchPaths(missing); len(got) != 1 || got[0] != missing {
		t.Errorf("PlatformSearchPaths(%q) = %v", missing, got)
	}

	cfg, err = LoadPlatform("")
	if err != nil {
		t.Fatalf("LoadPlatform: %v", err)
	}
	if cfg.PlatformName != "Tesla V100" {
		t.Errorf("PlatformName = %q, want the user config", cfg.PlatformName)
	}
}
