// Package file provides a Persist that keeps serialized nodes as files in a
// directory, one file per content address, fanned out over two-character
// subdirectories.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmapdb/persistent"
)

// Store persists nodes under the given directory.
type Store struct {
	dir string
}

var _ persistent.Persist = (*Store)(nil)

// NewStore creates the directory if needed and returns a Store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	if len(name) < 2 {
		return filepath.Join(s.dir, name)
	}
	return filepath.Join(s.dir, name[:2], name)
}

// Store writes the value under its name. Content is immutable, so an
// already-present file is left alone; a fresh write goes through a temp file
// and rename so readers never observe a partial node.
func (s *Store) Store(_ context.Context, name string, value []byte) error {
	path := s.path(name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err = tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Load retrieves the previously-stored bytes by name.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	value, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path(name), err)
	}
	return value, nil
}
