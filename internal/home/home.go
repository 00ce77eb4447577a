package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultDirName is the default name for the deedflow home directory.
	DefaultDirName = ".deedflow"

	// UploadsDirName is the subdirectory for uploaded document files.
	UploadsDirName = "uploads"

	// MongoDirName is the subdirectory for MongoDB container data.
	MongoDirName = "mongo"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the deedflow home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.deedflow).
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

// UploadsPath returns the path to the uploads directory.
func (d *Dir) UploadsPath() string {
	return filepath.Join(d.path, UploadsDirName)
}

// MongoDataPath returns the path to the MongoDB data directory.
func (d *Dir) MongoDataPath() string {
	return filepath.Join(d.path, MongoDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.UploadsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	if err := os.MkdirAll(d.MongoDataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create mongo data directory: %w", err)
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

// UploadDir returns the directory for an upload received at time t for the
// given client, laid out as uploads/<year>/<month>/<client>.
func (d *Dir) UploadDir(t time.Time, clientName string) string {
	return filepath.Join(
		d.UploadsPath(),
		fmt.Sprintf("%04d", t.Year()),
		strings.ToLower(t.Month().String())[:3],
		sanitizeClientName(clientName),
	)
}

// UploadPath returns the storage path for a document's original file.
func (d *Dir) UploadPath(t time.Time, clientName, documentID, ext string) string {
	return filepath.Join(d.UploadDir(t, clientName), documentID+"."+strings.TrimPrefix(ext, "."))
}

// EnsureUploadDir creates the upload directory for a client and time.
func (d *Dir) EnsureUploadDir(t time.Time, clientName string) error {
	return os.MkdirAll(d.UploadDir(t, clientName), 0o755)
}

// sanitizeClientName makes a client name safe for use as a directory name.
func sanitizeClientName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
