package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}

	health := GetSysHealth(dir)
	if health.Goroutines < 1 {
		t.Errorf("Expected at least one goroutine, got %d", health.Goroutines)
	}
	if health.DataDiskSize != "2.0 KB" {
		t.Errorf("Expected disk size '2.0 KB', got '%s'", health.DataDiskSize)
	}
}

func TestCalculateDirSize(t *testing.T) {
	dir := t.TempDir()
	if got := calculateDirSize(dir); got != "0 B" {
		t.Errorf("Expected '0 B' for empty dir, got '%s'", got)
	}
	if got := calculateDirSize(filepath.Join(dir, "missing")); !strings.HasSuffix(got, "B") {
		t.Errorf("Expected a byte size for missing dir, got '%s'", got)
	}
}
