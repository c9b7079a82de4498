package efficiency

import (
	"fmt"
	"math"
)

// CoreNormalization scales the core count before it is multiplied by the
// wall time, so baselines are expressed per 10,000 cores.
const CoreNormalization = 10000.0

// CoreCount computes the parallel core count for a run. masterCores <= 0
// means no hint. nodes < 1 is treated as 1.
func CoreCount(p Profile, nodes, masterCores int) (int, string, error) {
	f, ok := formulas[p.Platform]
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownPlatform, p.Platform)
	}
	if nodes < 1 {
		nodes = 1
	}

	if f.MasterFanOut > 0 && masterCores > 0 {
		return nodes * masterCores * f.MasterFanOut,
			fmt.Sprintf("%s: %d nodes × %d master cores × %d", p.Platform, nodes, masterCores, f.MasterFanOut), nil
	}
	return nodes * f.PerNode,
		fmt.Sprintf("%s: %d nodes × %d cores", p.Platform, nodes, f.PerNode), nil
}

// Efficiency returns the percentage of the baseline achieved by a run of
// cores cores lasting elapsed seconds. Degenerate inputs yield 0.
func Efficiency(p Profile, cores int, elapsed float64) float64 {
	if cores <= 0 || elapsed <= 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		return 0
	}
	eff := 100 * (p.ComparedCores * p.ComparedRunTime) / ((float64(cores) / CoreNormalization) * elapsed)
	if math.IsNaN(eff) || math.IsInf(eff, 0) || eff < 0 {
		return 0
	}
	return eff
}

// Format renders an efficiency the way reports show it: "18.30%(10 Nodes)".
func Format(percent float64, nodes int) string {
	return fmt.Sprintf("%.2f%%(%d Nodes)", percent, nodes)
}

// Result is the outcome of one evaluation. Known is false when the figure
// could not be computed; Reason then says why.
type Result struct {
	Platform       string
	Nodes          int
	Cores          int
	Method         string
	ElapsedSeconds int64
	Percent        float64
	Formatted      string
	Known          bool
	Reason         string
}

// Evaluate combines CoreCount and Efficiency. It never fails: any problem
// degrades to a zero result carrying the reason.
func Evaluate(p Profile, nodes, masterCores int, elapsed int64, elapsedOK bool) Result {
	if nodes < 1 {
		nodes = 1
	}
	res := Result{
		Platform:       p.Platform,
		Nodes:          nodes,
		ElapsedSeconds: elapsed,
		Formatted:      Format(0, nodes),
	}

	cores, method, err := CoreCount(p, nodes, masterCores)
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	res.Cores = cores
	res.Method = method

	if !elapsedOK {
		res.Reason = "elapsed time unavailable"
		return res
	}
	if elapsed <= 0 {
		res.Reason = "elapsed time is zero"
		return res
	}
	if p.ComparedCores <= 0 || p.ComparedRunTime <= 0 {
		res.Reason = "reference baseline is not positive"
		return res
	}

	res.Percent = Efficiency(p, cores, float64(elapsed))
	res.Formatted = Format(res.Percent, nodes)
	res.Known = true
	return res
}
