package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	baseDir := t.TempDir()
	cleaner := NewCleaner(baseDir, 30)
	scheduler := NewCleanupScheduler(cleaner, 100*time.Millisecond, quiet())

	// Start should not block
	scheduler.Start()

	// Give the goroutine time to start
	time.Sleep(10 * time.Millisecond)

	scheduler.Stop()
	// Stop is idempotent
	scheduler.Stop()
}

func TestCleanupScheduler_CleanupCalled(t *testing.T) {
	baseDir := t.TempDir()

	oldFile := filepath.Join(baseDir, "agenda-2000-01-01.log")
	writeFile(t, oldFile)

	cleaner := NewCleaner(baseDir, 30)
	scheduler := NewCleanupScheduler(cleaner, 50*time.Millisecond, quiet())

	scheduler.Start()

	// Wait for at least one cleanup cycle
	time.Sleep(100 * time.Millisecond)

	scheduler.Stop()

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Old file should have been deleted by scheduled cleanup")
	}
}

func TestCleanupScheduler_NilLogger(t *testing.T) {
	scheduler := NewCleanupScheduler(NewCleaner(t.TempDir(), 30), time.Hour, nil)
	if scheduler.logger == nil {
		t.Error("logger = nil, want default")
	}
	scheduler.Stop()
}
