package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-corpus")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-corpus" {
			t.Errorf("expected path /tmp/test-corpus, got %s", dir.Path())
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
	dir, _ := New("/tmp/test-corpus")

	t.Run("StoragePath", func(t *testing.T) {
		expected := "/tmp/test-corpus/storage"
		if dir.StoragePath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.StoragePath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-corpus/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("StoredFilePath shards by hash prefix", func(t *testing.T) {
		got := dir.StoredFilePath("ab12cd34", "pdf")
		expected := "/tmp/test-corpus/storage/ab/ab12cd34.pdf"
		if got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	corpusDir := filepath.Join(tmpDir, "corpus-test")

	dir, err := New(corpusDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	for _, p := range []string{dir.StoragePath(), dir.InboxPath(), dir.LogsPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected directory %s to exist: %v", p, err)
		}
	}
}
