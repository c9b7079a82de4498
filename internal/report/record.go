// Package report writes the artifacts handed to downstream consumers: the
// run record read by the certificate renderer and a Prometheus textfile.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Justype/perfbench/internal/efficiency"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RecordFile is the name of the run record inside a run directory.
const RecordFile = "result.yaml"

// Record is the structured result of one benchmark run. The first six fields
// are what the certificate renderer consumes.
type Record struct {
	Platform string `yaml:"platform"`
	NodeNum  int    `yaml:"node_num"`
	AppName  string `yaml:"app_name"`
	CoreNum  int    `yaml:"core_num"`
	Eff      string `yaml:"eff"`
	Time     string `yaml:"time"`

	RunID          string  `yaml:"run_id"`
	JobID          string  `yaml:"job_id,omitempty"`
	Scheduler      string  `yaml:"scheduler,omitempty"`
	ElapsedSeconds int64   `yaml:"elapsed_seconds"`
	Percent        float64 `yaml:"efficiency_percent"`
	Known          bool    `yaml:"known"`
	Reason         string  `yaml:"reason,omitempty"`
	Method         string  `yaml:"method,omitempty"`
	OutputDir      string  `yaml:"output_dir"`
}

// NewRecord builds a record from an efficiency evaluation.
func NewRecord(res efficiency.Result, appName, jobID, scheduler, outputDir string, now time.Time) Record {
	return Record{
		Platform:       res.Platform,
		NodeNum:        res.Nodes,
		AppName:        appName,
		CoreNum:        res.Cores,
		Eff:            res.Formatted,
		Time:           now.Format("2006-01-02 15:04:05"),
		RunID:          uuid.NewString(),
		JobID:          jobID,
		Scheduler:      scheduler,
		ElapsedSeconds: res.ElapsedSeconds,
		Percent:        res.Percent,
		Known:          res.Known,
		Reason:         res.Reason,
		Method:         res.Method,
		OutputDir:      outputDir,
	}
}

// WriteRecord writes result.yaml into dir and returns its path.
func WriteRecord(dir string, rec Record) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode run record: %w", err)
	}
	path := filepath.Join(dir, RecordFile)
	if err := os.WriteFile(path, data, utils.PermFile); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ReadRecord loads result.yaml from dir.
func ReadRecord(dir string) (Record, error) {
	path := filepath.Join(dir, RecordFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return rec, nil
}
