package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Filesystem stores media under a root directory on local disk.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "create media root: %s", root)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) fullPath(path string) string {
	return filepath.Join(f.root, filepath.FromSlash(path))
}

func (f *Filesystem) Save(_ context.Context, path, _ string, data []byte) error {
	full := f.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(full, data, 0644)) //nolint:gosec
}

func (f *Filesystem) Open(_ context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(f.fullPath(path))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

func (f *Filesystem) Delete(_ context.Context, path string) error {
	err := os.Remove(f.fullPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}
