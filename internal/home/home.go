package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the corpus home directory.
	DefaultDirName = ".corpus"

	// StorageDirName is the subdirectory for uploaded document files.
	StorageDirName = "storage"

	// InboxDirName is the watched directory; files dropped here are uploaded.
	InboxDirName = "inbox"

	// LogsDirName is the subdirectory for log files.
	LogsDirName = "logs"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the embedded sqlite database file name.
	DatabaseFileName = "corpus.db"
)

// Dir represents the corpus home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.corpus).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// StoragePath returns the path to the document storage directory.
func (d *Dir) StoragePath() string {
	return filepath.Join(d.path, StorageDirName)
}

// InboxPath returns the path to the watched inbox directory.
func (d *Dir) InboxPath() string {
	return filepath.Join(d.path, InboxDirName)
}

// LogsPath returns the path to the logs directory.
func (d *Dir) LogsPath() string {
	return filepath.Join(d.path, LogsDirName)
}

// LogFilePath returns the path to the server log file.
func (d *Dir) LogFilePath() string {
	return filepath.Join(d.LogsPath(), "corpus.log")
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the path to the embedded sqlite database.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// StoredFileDir returns the storage directory for a content hash.
// Files are sharded by the first two characters of the hash.
func (d *Dir) StoredFileDir(hash string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(d.StoragePath(), shard)
}

// StoredFilePath returns the path for a stored file by hash and extension.
func (d *Dir) StoredFilePath(hash, extension string) string {
	name := hash
	if extension != "" {
		name = hash + "." + extension
	}
	return filepath.Join(d.StoredFileDir(hash), name)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.StoragePath(), d.InboxPath(), d.LogsPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
