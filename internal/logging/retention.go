package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logFilePattern = "feedrelay-*.log"

// LogFilePath returns the daily log file for ts under dir.
func LogFilePath(dir string, ts time.Time) string {
	return filepath.Join(dir, "feedrelay-"+ts.Format("2006-01-02")+".log")
}

// PruneLogs removes daily log files in dir older than retentionDays, never
// touching keep. A retentionDays value of 0 disables pruning. It returns the
// number of files removed.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keepAbs, _ := filepath.Abs(keep)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(logFilePattern, entry.Name()); !matched {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil && abs == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", fullPath), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
