package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCleanup_OldLogs(t *testing.T) {
	baseDir := t.TempDir()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	files := map[string]bool{
		"agenda-2026-01-01.log": true,  // 89 days old
		"agenda-2026-02-28.log": true,  // 31 days old
		"agenda-2026-03-01.log": false, // exactly 30 days
		"agenda-2026-03-31.log": false, // today
		"notes.txt":             false, // not a daily log
		"agenda-latest.log":     false, // no date
	}
	for name := range files {
		writeFile(t, filepath.Join(baseDir, name))
	}

	cleaner := NewCleaner(baseDir, 30)
	cleaner.now = func() time.Time { return now }

	deleted, err := cleaner.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	for name, gone := range files {
		_, err := os.Stat(filepath.Join(baseDir, name))
		if gone && !os.IsNotExist(err) {
			t.Errorf("%s should be deleted", name)
		}
		if !gone && err != nil {
			t.Errorf("%s should still exist: %v", name, err)
		}
	}
}

func TestCleanup_IgnoresModTime(t *testing.T) {
	baseDir := t.TempDir()
	path := filepath.Join(baseDir, FileName(time.Now()))
	writeFile(t, path)
	old := time.Now().AddDate(0, 0, -90)
	os.Chtimes(path, old, old)

	deleted, err := NewCleaner(baseDir, 30).Cleanup()
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestCleanup_SkipsDirectories(t *testing.T) {
	baseDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(baseDir, "agenda-2000-01-01.log"), 0755); err != nil {
		t.Fatal(err)
	}

	deleted, err := NewCleaner(baseDir, 30).Cleanup()
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestCleanup_MissingDir(t *testing.T) {
	cleaner := NewCleaner(filepath.Join(t.TempDir(), "missing"), 30)
	if _, err := cleaner.Cleanup(); err == nil {
		t.Error("Cleanup() error = nil, want error for missing directory")
	}
}
