// Package efficiency turns a node count and wall time into a parallel
// efficiency figure relative to a reference baseline.
package efficiency

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPlatform is returned for a platform name with no core formula.
var ErrUnknownPlatform = errors.New("unknown platform")

// Formula describes how many cores one node contributes.
type Formula struct {
	PerNode int // cores per node
	// MasterFanOut, when non-zero, is the core count per master core; it is
	// used instead of PerNode whenever a master-core hint is available.
	MasterFanOut int
}

var formulas = map[string]Formula{
	"SW26010":      {PerNode: 260, MasterFanOut: 64},
	"SW39000":      {PerNode: 390, MasterFanOut: 64},
	"飞腾-64":        {PerNode: 64},
	"Phytium-64":   {PerNode: 64},
	"Matrix2000":   {PerNode: 256},
	"Matrix3000":   {PerNode: 1648},
	"DCU Z100":     {PerNode: 288},
	"DCU Z100L":    {PerNode: 288},
	"BW1000(80CU)": {PerNode: 352},
	"BW1000(88CU)": {PerNode: 384},
	"Tesla P100":   {PerNode: 112},
	"Tesla V100":   {PerNode: 160},
	"Tesla As100":  {PerNode: 216},
}

// Profile pairs a platform name with its reference baseline.
type Profile struct {
	Platform        string
	ComparedCores   float64
	ComparedRunTime float64
}

// Platforms returns the known platform names, sorted.
func Platforms() []string {
	names := make([]string, 0, len(formulas))
	for name := range formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormulaFor returns the core formula of a platform.
func FormulaFor(platform string) (Formula, bool) {
	f, ok := formulas[platform]
	return f, ok
}

// Describe renders a formula for listings, e.g. "n×390 (n×m×64 with master cores)".
func (f Formula) Describe() string {
	if f.MasterFanOut > 0 {
		return fmt.Sprintf("n×%d (n×m×%d with master cores)", f.PerNode, f.MasterFanOut)
	}
	return fmt.Sprintf("n×%d", f.PerNode)
}
