package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Justype/perfbench/internal/utils"
)

// NodeInfoFile is written by the wrapped job on its first compute node.
const NodeInfoFile = "job_node_info.txt"

// WrappedPrefix names the instrumented copy placed next to the user script.
const WrappedPrefix = "perfbench_"

// wrapScript writes the instrumented copy of original next to it, so relative
// paths in the script keep resolving, and keeps a second copy in outputDir.
// The recording lines go after the leading comment block: sbatch and bsub
// stop reading directives at the first command.
func wrapScript(original, outputDir, jobIDVar, copyName string) (string, error) {
	data, err := os.ReadFile(original)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrScriptNotFound, original)
		}
		return "", fmt.Errorf("failed to read %s: %w", original, err)
	}

	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", outputDir, err)
	}
	if err := utils.EnsureDir(absOut); err != nil {
		return "", NewScriptCreationError(filepath.Base(original), absOut, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#!") {
		lines = append([]string{"#!/bin/bash"}, lines...)
	}

	insertAt := 1
	for insertAt < len(lines) {
		trimmed := strings.TrimSpace(lines[insertAt])
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			break
		}
		insertAt++
	}

	infoPath := shellQuote(filepath.Join(absOut, NodeInfoFile))
	record := []string{
		"# perfbench: record compute host and job id",
		fmt.Sprintf(`echo "PerfBench: job started on $(hostname)" > %s`, infoPath),
		fmt.Sprintf(`echo "%s=${%s}" >> %s`, jobIDVar, jobIDVar, infoPath),
	}

	out := make([]string, 0, len(lines)+len(record))
	out = append(out, lines[:insertAt]...)
	out = append(out, record...)
	out = append(out, lines[insertAt:]...)
	content := []byte(strings.Join(out, "\n") + "\n")

	wrapped := filepath.Join(filepath.Dir(original), WrappedPrefix+filepath.Base(original))
	if err := utils.WriteExecutable(wrapped, content); err != nil {
		return "", NewScriptCreationError(filepath.Base(original), wrapped, err)
	}

	kept := filepath.Join(absOut, copyName)
	if err := utils.WriteExecutable(kept, content); err != nil {
		return "", NewScriptCreationError(filepath.Base(original), kept, err)
	}

	utils.PrintDebug("Wrapped %s as %s", utils.StylePath(original), utils.StylePath(wrapped))
	return wrapped, nil
}

// shellQuote single-quotes s for bash.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
