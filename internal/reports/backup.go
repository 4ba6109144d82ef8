package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/toolcrib/toolcrib-backend/pkg/config"
)

// Archiver stores backup artifacts and enforces the retention policy.
type Archiver interface {
	Dir() string
	Write(name string, data []byte) error
	Prune() error
}

// DirArchiver writes backups to a local directory and keeps only the
// newest N files.
type DirArchiver struct {
	dir      string
	retained int
}

// NewDirArchiver builds an archiver from the backup config.
func NewDirArchiver(cfg config.BackupConfig) *DirArchiver {
	retained := cfg.RetainedFiles
	if retained <= 0 {
		retained = 30
	}
	return &DirArchiver{dir: cfg.Directory, retained: retained}
}

func (a *DirArchiver) Dir() string { return a.dir }

func (a *DirArchiver) Write(name string, data []byte) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Prune removes the oldest backup files beyond the retention count.
func (a *DirArchiver) Prune() error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) <= a.retained {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-a.retained] {
		if err := os.Remove(filepath.Join(a.dir, name)); err != nil {
			return err
		}
	}
	return nil
}
