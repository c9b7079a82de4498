package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses the duration spellings users copy from batch scripts:
//   - Go duration: "2h", "30m", "1h30m", "90s"
//   - HH:MM:SS or H:MM: "02:00:00", "2:30" (hours:minutes)
//   - SLURM days: "1-00:00:00"
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if !strings.Contains(s, ":") {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s (use '2h', '30m', '02:00:00' or '1-00:00:00')", s)
		}
		return dur, nil
	}

	var total time.Duration
	clock := s
	if days, rest, ok := strings.Cut(s, "-"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid days: %s", days)
		}
		total = time.Duration(n) * 24 * time.Hour
		clock = rest
	}

	parts := strings.Split(clock, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s (use HH:MM:SS or HH:MM)", s)
	}
	units := []struct {
		name string
		unit time.Duration
	}{{"hours", time.Hour}, {"minutes", time.Minute}, {"seconds", time.Second}}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s: %s", units[i].name, p)
		}
		total += time.Duration(n) * units[i].unit
	}
	return total, nil
}

// StripInlineComment removes a trailing " # comment" from a directive value.
// A '#' inside single or double quotes is kept.
func StripInlineComment(s string) string {
	var quote rune
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '#':
			if i == 0 || s[i-1] == ' ' || s[i-1] == '\t' {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return strings.TrimSpace(s)
}

// Unquote strips one pair of matching surrounding quotes.
func Unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
