package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// ElapsedSeconds returns the run's wall time. Tabular results use the Elapsed
// attribute of the chronologically last sample; bitmap results use the span
// between the earliest and latest sample. Sample order is left untouched.
// The bool is false when no value exists.
func (r *Result) ElapsedSeconds() (int64, bool) {
	switch r.Kind {
	case KindTabular:
		if len(r.Tabular) == 0 {
			return 0, false
		}
		last := 0
		for i, s := range r.Tabular {
			if !s.Time.Before(r.Tabular[last].Time) {
				last = i
			}
		}
		secs, err := ParseElapsed(r.Tabular[last].Get("Elapsed"))
		if err != nil {
			return 0, false
		}
		return secs, true
	case KindBitmap:
		if len(r.Bitmap) == 0 {
			return 0, false
		}
		first, last := r.Bitmap[0].Time, r.Bitmap[0].Time
		for _, s := range r.Bitmap[1:] {
			if s.Time.Before(first) {
				first = s.Time
			}
			if s.Time.After(last) {
				last = s.Time
			}
		}
		return int64(last.Sub(first).Seconds()), true
	default:
		return 0, false
	}
}

// ParseElapsed converts a sacct Elapsed value ([D-]HH:MM:SS or MM:SS,
// optionally with fractional seconds) into seconds.
func ParseElapsed(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty elapsed value")
	}

	var days int64
	if i := strings.Index(s, "-"); i >= 0 {
		d, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid days in elapsed value %q", s)
		}
		days = d
		s = s[i+1:]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid elapsed value %q", s)
	}

	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid elapsed value %q", s)
		}
		total = total*60 + n
	}
	return days*86400 + total, nil
}
