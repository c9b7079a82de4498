package cmd

import (
	"fmt"

	"github.com/Justype/perfbench/internal/bench"
	"github.com/Justype/perfbench/internal/utils"
)

// printAnalysis prints the efficiency summary of an analysed run.
func printAnalysis(a *bench.Analysis) {
	fmt.Println(utils.StyleTitle("Benchmark Result:"))
	fmt.Printf("  Platform:    %s (%s)\n", utils.StyleName(a.Platform.PlatformName), a.Platform.Source)
	fmt.Printf("  Application: %s\n", a.Record.AppName)
	if a.Record.JobID != "" {
		fmt.Printf("  Job:         %s\n", utils.StyleNumber(a.Record.JobID))
	}
	fmt.Printf("  Nodes:       %s\n", utils.StyleNumber(a.Efficiency.Nodes))
	fmt.Printf("  Cores:       %s\n", utils.StyleNumber(a.Efficiency.Cores))
	if a.Telemetry != nil {
		fmt.Printf("  Samples:     %s\n", utils.StyleNumber(a.Telemetry.Len()))
	}
	fmt.Printf("  Elapsed:     %s s\n", utils.StyleNumber(a.Efficiency.ElapsedSeconds))
	if a.Efficiency.Known {
		fmt.Printf("  Efficiency:  %s\n", utils.StyleSuccess(a.Efficiency.Formatted))
	} else {
		fmt.Printf("  Efficiency:  %s (%s)\n", utils.StyleWarning(a.Efficiency.Formatted), a.Efficiency.Reason)
	}
	if a.RecordPath != "" {
		fmt.Printf("  Record:      %s\n", utils.StylePath(a.RecordPath))
	}
	if a.MetricsPath != "" {
		fmt.Printf("  Metrics:     %s\n", utils.StylePath(a.MetricsPath))
	}
	for _, p := range a.CSVPaths {
		fmt.Printf("  CSV:         %s\n", utils.StylePath(p))
	}
}
