package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

const fileExt = ".json"

// File is a Backend storing each key as a JSON file in a directory.
type File struct {
	fs  afero.Afero
	dir string
	mu  sync.RWMutex
}

// NewFile creates a file backend rooted at dir on the given filesystem.
func NewFile(fs afero.Fs, dir string) (*File, error) {
	f := &File{fs: afero.Afero{Fs: fs}, dir: dir}
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return f, nil
}

func (f *File) path(key string) string {
	// keys are flat names; keep separators out of the file name
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(key)
	return filepath.Join(f.dir, name+fileExt)
}

// Get implements Backend.
func (f *File) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.fs.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

// Put implements Backend. The value is written to a temporary file and
// renamed into place.
func (f *File) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp := target + ".tmp"
	if err := f.fs.WriteFile(tmp, value, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err := f.fs.Rename(tmp, target); err != nil {
		return errors.Wrapf(err, "failed to commit %s", key)
	}
	return nil
}

// Delete implements Backend.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.fs.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

// Clear implements Backend.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.fs.ReadDir(f.dir)
	if err != nil {
		return errors.Wrap(err, "failed to list store directory")
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if err := f.fs.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			return errors.Wrapf(err, "failed to remove %s", e.Name())
		}
	}
	return nil
}

// Close implements Backend.
func (f *File) Close() error {
	return nil
}
