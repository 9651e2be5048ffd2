// Package store reads and writes encrypted blocks and decrypted content without ever replacing an existing file.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/absfs/absfs"
	"github.com/absfs/osfs"
)

const FileMode os.FileMode = 0600

var (
	ErrNotFound      = errors.New("file not found")
	ErrAlreadyExists = errors.New("file already exists")
)

// Store wraps a file system with write-if-absent semantics.
type Store struct {
	fs      absfs.FileSystem
	resolve func(string) (string, error)
}

// New creates a Store over the given file system. Paths are passed through as-is.
func New(fsys absfs.FileSystem) *Store {
	return &Store{
		fs: fsys,
		resolve: func(path string) (string, error) {
			return path, nil
		},
	}
}

// NewOS creates a Store over the host file system. Relative paths are resolved against the working directory.
func NewOS() (*Store, error) {
	fsys, err := osfs.NewFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open host file system: %w", err)
	}
	s := New(fsys)
	s.resolve = filepath.Abs
	return s, nil
}

// Read returns the full contents of the file at path.
func (s *Store) Read(path string) ([]byte, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	return data, nil
}

// Write creates the file at path with data. An existing file is never overwritten.
func (s *Store) Write(path string, data []byte) (err error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if s.exists(resolved) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	f, err := s.fs.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

// Exists reports whether anything exists at path.
func (s *Store) Exists(path string) bool {
	resolved, err := s.resolve(path)
	if err != nil {
		return false
	}
	return s.exists(resolved)
}

func (s *Store) exists(resolved string) bool {
	_, err := s.fs.Stat(resolved)
	return err == nil
}
