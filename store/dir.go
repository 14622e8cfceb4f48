package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir implements Store with one file per key in a directory.
//
// Writes are atomic: values are written to a temporary file that is then
// renamed over the previous value.
type Dir struct {
	root string
}

// NewDir creates a store in directory 'root', creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create store directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// DefaultDir returns the default store directory in the user config directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "coinfolio")
}

// Root returns the store directory.
func (s *Dir) Root() string { return s.root }

func (s *Dir) path(key string) string { return filepath.Join(s.root, key) }

func (s *Dir) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cannot read %q: %w", key, err)
	}
	return data, true, nil
}

func (s *Dir) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.root, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("cannot write %q: %w", key, err)
	}
	defer os.Remove(f.Name()) // no-op after a successful rename
	if _, err := f.Write(value); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot write %q: %w", key, err)
	}
	if err := os.Rename(f.Name(), s.path(key)); err != nil {
		return fmt.Errorf("cannot write %q: %w", key, err)
	}
	return nil
}

func (s *Dir) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot delete %q: %w", key, err)
	}
	return nil
}
