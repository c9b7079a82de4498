package scheduler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Justype/perfbench/internal/utils"
)

// readFileLines opens a file and returns all its lines.
// Shared helper used by all scheduler ReadScript implementations.
func readFileLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}
	return lines, nil
}

// parsePositiveInt coerces a directive value, warning and reporting false on
// anything that is not a positive integer.
func parsePositiveInt(scheduler, key, value string, line int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		utils.PrintWarning("%s: ignoring invalid %s value %q at line %d", scheduler, key, value, line)
		return 0, false
	}
	return n, true
}

// isCommandLine reports whether a trimmed line is neither blank nor a comment.
func isCommandLine(trimmed string) bool {
	return trimmed != "" && !strings.HasPrefix(trimmed, "#")
}

// clampNodes enforces the node-count floor.
func clampNodes(d *ScriptDescriptor) {
	if d.Nodes < 1 {
		utils.PrintWarning("%s: node count %d raised to 1", d.ScriptPath, d.Nodes)
		d.Nodes = 1
	}
}
