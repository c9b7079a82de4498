package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ParseTabular reads every sacct_*.log in dir. Only the header and the first
// data line of each file are used.
func ParseTabular(dir string) (*Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "sacct_*.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sacct logs: %w", err)
	}
	sort.Strings(files)

	result := &Result{Kind: KindTabular}
	for _, path := range files {
		sample, ok, err := parseTabularFile(path)
		if err != nil {
			result.warn(err)
			continue
		}
		if ok {
			result.Tabular = append(result.Tabular, sample)
		}
	}

	if len(result.Tabular) == 0 {
		return result, ErrNoData
	}
	return result, nil
}

func parseTabularFile(path string) (TabularSample, bool, error) {
	name := filepath.Base(path)
	stamp, ts, ok := stampFromName(name)
	if !ok {
		return TabularSample{}, false, fmt.Errorf("%s: no timestamp in file name", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return TabularSample{}, false, fmt.Errorf("%s: %w", name, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return TabularSample{}, false, nil
	}

	headers := strings.Split(lines[0], "|")
	values := strings.Split(lines[1], "|")

	fields := make(map[string]string, len(TabularFields))
	for _, f := range TabularFields {
		fields[f] = ""
	}
	for i, h := range headers {
		key := canonicalField(strings.TrimSpace(h))
		if key == "" || i >= len(values) {
			continue
		}
		fields[key] = strings.TrimSpace(values[i])
	}

	return TabularSample{File: name, Stamp: stamp, Time: ts, Fields: fields}, true, nil
}

// canonicalField maps a sacct header to its TabularFields spelling.
// sacct prints AllocCPUS for --format=AllocCPUs, so matching ignores case.
func canonicalField(header string) string {
	for _, f := range TabularFields {
		if strings.EqualFold(f, header) {
			return f
		}
	}
	return ""
}
