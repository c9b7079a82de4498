package telemetry

import (
	"bufio"
	"fmt"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	groupRowRegex = regexp.MustCompile(`\|\s*(MPE|SPE\d+)\s*\|\s*0[xX]([0-9A-Fa-f]+)\s*\|\s*0[xX]([0-9A-Fa-f]+)\s*\|`)
	nodeLineRegex = regexp.MustCompile(`^\s*((?:vn|node)\d+)\b`)
)

// ParseBitmap reads cnload_b_job_*.log in dir, or cnload_b_c_*.log when no
// per-job dump exists. A directory without either yields an empty result.
func ParseBitmap(dir string) (*Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "cnload_b_job_*.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to list cnload logs: %w", err)
	}
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(dir, "cnload_b_c_*.log"))
		if err != nil {
			return nil, fmt.Errorf("failed to list cnload logs: %w", err)
		}
	}
	sort.Strings(files)

	result := &Result{Kind: KindBitmap}
	for _, path := range files {
		sample, ok, err := parseBitmapFile(path)
		if err != nil {
			result.warn(err)
			continue
		}
		if ok {
			result.Bitmap = append(result.Bitmap, sample)
		}
	}
	return result, nil
}

func parseBitmapFile(path string) (BitmapSample, bool, error) {
	name := filepath.Base(path)
	stamp, ts, ok := stampFromName(name)
	if !ok {
		return BitmapSample{}, false, fmt.Errorf("%s: no timestamp in file name", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return BitmapSample{}, false, fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	sample := BitmapSample{File: name, Stamp: stamp, Time: ts}
	node := ""

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := nodeLineRegex.FindStringSubmatch(line); m != nil {
			node = m[1]
			continue
		}
		m := groupRowRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		active, ok := popcountHex(m[3])
		if !ok {
			continue
		}
		row := GroupRow{
			Node:      node,
			Label:     m[1],
			ValidHex:  "0x" + m[2],
			EmployHex: "0x" + m[3],
			Width:     len(m[2]) * 4,
			Active:    active,
		}
		sample.Groups = append(sample.Groups, row)
		sample.TotalActive += row.Active
		sample.TotalBits += row.Width
	}
	if err := scanner.Err(); err != nil {
		return BitmapSample{}, false, fmt.Errorf("%s: %w", name, err)
	}

	if len(sample.Groups) == 0 || sample.TotalBits == 0 {
		return BitmapSample{}, false, nil
	}
	sample.Utilization = roundTo2(100 * float64(sample.TotalActive) / float64(sample.TotalBits))
	return sample, true, nil
}

// popcountHex counts set bits of an arbitrarily long hex string.
func popcountHex(hex string) (int, bool) {
	count := 0
	for _, c := range hex {
		v, err := strconv.ParseUint(string(c), 16, 8)
		if err != nil {
			return 0, false
		}
		count += bits.OnesCount8(uint8(v))
	}
	return count, true
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Nodes lists the distinct nodes seen in a bitmap sample, in order.
func (s BitmapSample) Nodes() []string {
	seen := make(map[string]bool)
	var nodes []string
	for _, g := range s.Groups {
		n := strings.TrimSpace(g.Node)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		nodes = append(nodes, n)
	}
	return nodes
}
