package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "agenda-"
	fileSuffix = ".log"
	dayLayout  = "2006-01-02"
)

// FileName returns the log file name for the day of t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(dayLayout) + fileSuffix
}

// fileDay parses the day out of a log file name.
func fileDay(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	day, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// DailyWriter appends to one log file per day, switching files when the day
// changes.
type DailyWriter struct {
	mu      sync.Mutex
	baseDir string
	now     func() time.Time
	day     string
	file    *os.File
}

// NewDailyWriter creates a writer for baseDir, creating the directory if
// needed.
func NewDailyWriter(baseDir string) (*DailyWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return &DailyWriter{baseDir: baseDir, now: time.Now}, nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if day := now.Format(dayLayout); day != w.day || w.file == nil {
		if err := w.rotate(now); err != nil {
			return 0, err
		}
		w.day = day
	}
	return w.file.Write(p)
}

func (w *DailyWriter) rotate(now time.Time) error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(filepath.Join(w.baseDir, FileName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	w.file = f
	return nil
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
