package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileArchive keeps raw payloads on the local filesystem. Used for local runs.
type FileArchive struct {
	dir string
}

var _ ArchiveInterface = (*FileArchive)(nil)

// NewFileArchive creates a file archive rooted at dir
func NewFileArchive(dir string) *FileArchive {
	return &FileArchive{dir: dir}
}

func (f *FileArchive) Store(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(f.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *FileArchive) Retrieve(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileArchive) List(ctx context.Context, prefix string) ([]ArchivedPayload, error) {
	var payloads []ArchivedPayload
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		payloads = append(payloads, ArchivedPayload{Name: name, Size: info.Size(), ModifiedAt: info.ModTime().UTC()})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return payloads, err
}
