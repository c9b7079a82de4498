package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestDetectShell(t *testing.T) {
	tests := map[string]string{
		"/bin/bash":           "bash",
		"/usr/bin/zsh":        "zsh",
		"/usr/local/bin/fish": "fish",
		"/opt/microsoft/pwsh": "powershell",
		"":                    "bash",
		"/bin/tcsh":           "bash",
	}
	for shell, want := range tests {
		if got := detectShell(shell); got != want {
			t.Errorf("detectShell(%q) = %q, want %q", shell, got, want)
		}
	}
}

func TestWriteCompletion(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCompletion(rootCmd, "bash", &buf); err != nil {
		t.Fatalf("writeCompletion: %v", err)
	}
	if !strings.Contains(buf.String(), "perfbench") {
		t.Error("bash completion does not mention perfbench")
	}
	if err := writeCompletion(rootCmd, "csh", &buf); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}
