package scheduler

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Oldest scheduler releases whose sacct/bjobs output perfbench understands.
const (
	MinSlurmVersion = "v17.2.0"
	MinLsfVersion   = "v9.1.0"
)

var versionNumberRe = regexp.MustCompile(`\d+(?:\.\d+)+`)

// CanonicalVersion turns a scheduler version string ("slurm 23.02.6",
// "IBM Spectrum LSF 10.1.0.0, Jan 01 2020") into a semver string such as
// "v23.2.6". It returns "" when no version number can be found.
func CanonicalVersion(raw string) string {
	match := versionNumberRe.FindString(raw)
	if match == "" {
		return ""
	}

	parts := strings.Split(match, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ""
		}
		// semver forbids leading zeros ("02")
		parts[i] = strconv.Itoa(n)
	}

	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// MinVersion returns the minimum supported version of a scheduler family.
func MinVersion(kind Kind) string {
	switch kind {
	case KindSLURM:
		return MinSlurmVersion
	case KindLSF:
		return MinLsfVersion
	default:
		return ""
	}
}

// MeetsMinVersion reports whether raw is at least the family's minimum.
// An unparseable version is reported as not meeting it.
func MeetsMinVersion(kind Kind, raw string) (string, bool) {
	v := CanonicalVersion(raw)
	minimum := MinVersion(kind)
	if v == "" || minimum == "" {
		return v, false
	}
	return v, semver.Compare(v, minimum) >= 0
}
