package report

import (
	"fmt"
	"path/filepath"

	"github.com/Justype/perfbench/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsFile is the Prometheus textfile written next to the record.
const MetricsFile = "perfbench.prom"

var runLabels = []string{"platform", "app", "scheduler", "run_id"}

// WriteMetrics renders a record, and bitmap statistics when available, in
// Prometheus text format so a node_exporter textfile collector can pick it up.
func WriteMetrics(dir string, rec Record, result *telemetry.Result) (string, error) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	efficiencyPercent := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfbench_efficiency_percent",
		Help: "Parallel efficiency of the run relative to the platform baseline",
	}, runLabels)
	elapsed := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfbench_elapsed_seconds",
		Help: "Wall time of the benchmarked job",
	}, runLabels)
	cores := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfbench_core_count",
		Help: "Parallel core count used for the efficiency figure",
	}, runLabels)
	nodes := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfbench_node_count",
		Help: "Nodes requested by the batch script",
	}, runLabels)
	known := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfbench_efficiency_known",
		Help: "1 if the efficiency could be computed, 0 if it fell back to zero",
	}, runLabels)

	labels := prometheus.Labels{
		"platform":  rec.Platform,
		"app":       rec.AppName,
		"scheduler": rec.Scheduler,
		"run_id":    rec.RunID,
	}
	efficiencyPercent.With(labels).Set(rec.Percent)
	elapsed.With(labels).Set(float64(rec.ElapsedSeconds))
	cores.With(labels).Set(float64(rec.CoreNum))
	nodes.With(labels).Set(float64(rec.NodeNum))
	if rec.Known {
		known.With(labels).Set(1)
	} else {
		known.With(labels).Set(0)
	}

	if result != nil {
		samples := factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perfbench_telemetry_samples",
			Help: "Telemetry samples parsed for the run",
		}, []string{"run_id", "kind"})
		samples.WithLabelValues(rec.RunID, result.Kind.String()).Set(float64(result.Len()))

		if result.Kind == telemetry.KindBitmap && len(result.Bitmap) > 0 {
			util := factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "perfbench_bitmap_utilization_percent",
				Help: "Share of worker cores in use according to the core bitmaps",
			}, []string{"run_id", "stat"})
			util.WithLabelValues(rec.RunID, "peak").Set(result.PeakUtilization())
			util.WithLabelValues(rec.RunID, "mean").Set(result.MeanUtilization())
		}
	}

	path := filepath.Join(dir, MetricsFile)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
