package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// FileSource mirrors a local definitions directory into the source dir.
type FileSource struct {
	repo string
	path string
}

func NewFileSource(c *Config) (*FileSource, error) {
	if c == nil {
		return nil, errors.New("need file source config")
	}
	if _, err := os.Stat(c.Destination); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := os.MkdirAll(c.Destination, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileSource{repo: c.SourcePath, path: c.Destination}, nil
}

func (f *FileSource) Clean() error {
	return os.RemoveAll(f.path)
}

func (f *FileSource) Sync(ctx context.Context) error {
	if _, err := os.Stat(f.repo); err != nil {
		return fmt.Errorf("source repo %v: %w", f.repo, err)
	}
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(f.path, e.Name())); err != nil {
			return fmt.Errorf("error syncing filesystem: can't clear path: %w", err)
		}
	}
	if err := os.CopyFS(f.path, os.DirFS(f.repo)); err != nil {
		return fmt.Errorf("error syncing filesystem: can't copy fs: %w", err)
	}
	log.Debug("synced definitions", "from", f.repo, "to", f.path)
	return nil
}
