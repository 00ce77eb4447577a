package home

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-deedflow")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-deedflow" {
			t.Errorf("expected path /tmp/test-deedflow, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-deedflow")

	t.Run("UploadsPath", func(t *testing.T) {
		expected := "/tmp/test-deedflow/uploads"
		if dir.UploadsPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.UploadsPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-deedflow/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("MongoDataPath", func(t *testing.T) {
		expected := "/tmp/test-deedflow/mongo"
		if dir.MongoDataPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.MongoDataPath())
		}
	})
}

func TestDir_UploadDir(t *testing.T) {
	dir, _ := New("/tmp/test-deedflow")
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

	t.Run("year month client layout", func(t *testing.T) {
		got := dir.UploadDir(at, "Kumar Traders")
		expected := "/tmp/test-deedflow/uploads/2025/mar/kumar_traders"
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})

	t.Run("empty client falls back", func(t *testing.T) {
		got := dir.UploadDir(at, "  ")
		expected := "/tmp/test-deedflow/uploads/2025/mar/unknown"
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})

	t.Run("UploadPath appends id and extension", func(t *testing.T) {
		got := dir.UploadPath(at, "kumar", "doc-1", ".pdf")
		expected := "/tmp/test-deedflow/uploads/2025/mar/kumar/doc-1.pdf"
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	homeDir := filepath.Join(tmpDir, "deedflow-test")

	dir, err := New(homeDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.UploadsPath()); err != nil {
		t.Errorf("uploads directory not created: %v", err)
	}
}
