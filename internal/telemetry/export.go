package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

const (
	SummaryCSVName  = "cnload_summary.csv"
	DetailedCSVName = "cnload_detailed.csv"
)

// WriteBitmapSummaryCSV writes one row per bitmap sample.
func WriteBitmapSummaryCSV(path string, r *Result) error {
	rows := [][]string{{"time_stamp", "total_active", "total_bits", "utilization_percent"}}
	for _, s := range r.Bitmap {
		rows = append(rows, []string{
			s.Stamp,
			strconv.Itoa(s.TotalActive),
			strconv.Itoa(s.TotalBits),
			strconv.FormatFloat(s.Utilization, 'f', 2, 64),
		})
	}
	return writeCSV(path, rows)
}

// WriteBitmapDetailCSV writes one row per group row of every bitmap sample.
func WriteBitmapDetailCSV(path string, r *Result) error {
	rows := [][]string{{"file", "time_stamp", "node", "group_label", "group_size", "active", "valid_hex", "employ_hex"}}
	for _, s := range r.Bitmap {
		for _, g := range s.Groups {
			rows = append(rows, []string{
				s.File,
				s.Stamp,
				g.Node,
				g.Label,
				strconv.Itoa(g.Width),
				strconv.Itoa(g.Active),
				g.ValidHex,
				g.EmployHex,
			})
		}
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
