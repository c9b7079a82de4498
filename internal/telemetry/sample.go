// Package telemetry parses the log files written by the monitor probes.
//
// Two layouts are understood: pipe-separated tabular dumps produced by sacct
// and hexadecimal core bitmaps produced by cnload -b.
package telemetry

import (
	"errors"
	"regexp"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
)

// StampLayout is the timestamp suffix every probe log carries.
const StampLayout = "20060102_150405"

// ErrNoData is returned when no tabular log contributed a sample.
var ErrNoData = errors.New("no telemetry data found")

// TabularFields are the sacct attributes kept per sample.
var TabularFields = []string{"JobID", "JobName", "State", "Elapsed", "MaxRSS", "AllocCPUS"}

var stampRegex = regexp.MustCompile(`(\d{8}_\d{6})\.log$`)

// Kind identifies which parser produced a Result.
type Kind int

const (
	KindTabular Kind = iota
	KindBitmap
)

func (k Kind) String() string {
	switch k {
	case KindTabular:
		return "tabular"
	case KindBitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// TabularSample is one sacct observation.
type TabularSample struct {
	File   string
	Stamp  string
	Time   time.Time
	Fields map[string]string
}

// Get returns the value of a tabular attribute, or "" when absent.
func (s TabularSample) Get(name string) string {
	return s.Fields[name]
}

// GroupRow is one MPE/SPE row of a bitmap dump.
type GroupRow struct {
	Node      string
	Label     string
	ValidHex  string
	EmployHex string
	Width     int
	Active    int
}

// BitmapSample aggregates every group row of one bitmap log file.
type BitmapSample struct {
	File        string
	Stamp       string
	Time        time.Time
	Groups      []GroupRow
	TotalActive int
	TotalBits   int
	Utilization float64
}

// Point is one timestamped value of a tabular column.
type Point struct {
	Stamp string
	Time  time.Time
	Value string
}

// Result accumulates the samples of one run, in file discovery order.
type Result struct {
	Kind    Kind
	Tabular []TabularSample
	Bitmap  []BitmapSample

	warnings *multierror.Error
}

// Len returns the number of samples collected.
func (r *Result) Len() int {
	if r.Kind == KindBitmap {
		return len(r.Bitmap)
	}
	return len(r.Tabular)
}

// Warnings returns the per-file problems hit while parsing, or nil.
func (r *Result) Warnings() error {
	return r.warnings.ErrorOrNil()
}

func (r *Result) warn(err error) {
	r.warnings = multierror.Append(r.warnings, err)
}

// SortByTime orders samples by their parsed timestamp.
func (r *Result) SortByTime() {
	sort.SliceStable(r.Tabular, func(i, j int) bool {
		return r.Tabular[i].Time.Before(r.Tabular[j].Time)
	})
	sort.SliceStable(r.Bitmap, func(i, j int) bool {
		return r.Bitmap[i].Time.Before(r.Bitmap[j].Time)
	})
}

// Column returns the timestamped values of one tabular attribute.
func (r *Result) Column(name string) []Point {
	points := make([]Point, 0, len(r.Tabular))
	for _, s := range r.Tabular {
		points = append(points, Point{Stamp: s.Stamp, Time: s.Time, Value: s.Get(name)})
	}
	return points
}

// PeakUtilization returns the highest per-file bitmap utilization.
func (r *Result) PeakUtilization() float64 {
	peak := 0.0
	for _, s := range r.Bitmap {
		if s.Utilization > peak {
			peak = s.Utilization
		}
	}
	return peak
}

// MeanUtilization returns the average per-file bitmap utilization.
func (r *Result) MeanUtilization() float64 {
	if len(r.Bitmap) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range r.Bitmap {
		sum += s.Utilization
	}
	return roundTo2(sum / float64(len(r.Bitmap)))
}

// stampFromName extracts the YYYYMMDD_HHMMSS suffix of a probe log name.
func stampFromName(name string) (string, time.Time, bool) {
	m := stampRegex.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, false
	}
	t, err := time.ParseInLocation(StampLayout, m[1], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], t, true
}
