package logging

import (
	"os"
	"path/filepath"
	"time"
)

// Cleaner deletes daily log files older than the retention period. The age
// of a file is the day in its name, not its modification time.
type Cleaner struct {
	baseDir       string
	retentionDays int
	now           func() time.Time
}

// NewCleaner creates a new Cleaner with the specified base directory and retention period.
func NewCleaner(baseDir string, retentionDays int) *Cleaner {
	return &Cleaner{baseDir: baseDir, retentionDays: retentionDays, now: time.Now}
}

// Cleanup removes expired log files and returns how many were deleted.
// Files that do not follow the daily naming scheme are left alone.
func (c *Cleaner) Cleanup() (int, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return 0, err
	}

	now := c.now()
	threshold := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -c.retentionDays)

	var deleted int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		day, ok := fileDay(e.Name())
		if !ok || !day.Before(threshold) {
			continue
		}
		if err := os.Remove(filepath.Join(c.baseDir, e.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
