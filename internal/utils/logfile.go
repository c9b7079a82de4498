package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	fileLog   *logrus.Logger
	fileLogMu sync.RWMutex
)

// LogFileName returns the daily log file name, e.g. perfbench_20251201.log.
func LogFileName(t time.Time) string {
	return fmt.Sprintf("perfbench_%s.log", t.Format("20060102"))
}

// InitLogFile opens (or appends to) the daily log file under dir and mirrors
// every printed line into it. The returned function closes the file.
func InitLogFile(dir string) (func(), error) {
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, LogFileName(time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, PermFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.DebugLevel)

	fileLogMu.Lock()
	fileLog = logger
	fileLogMu.Unlock()

	return func() {
		fileLogMu.Lock()
		fileLog = nil
		fileLogMu.Unlock()
		f.Close()
	}, nil
}

// mirror writes msg to the log file, if one is open.
func mirror(level logrus.Level, msg string) {
	fileLogMu.RLock()
	defer fileLogMu.RUnlock()
	if fileLog == nil {
		return
	}
	fileLog.WithField("component", "perfbench").Log(level, msg)
}
