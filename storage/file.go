package storage

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// FileStore implements Store, keeping each value in a file named after its key
// under a root directory. Keys may contain slashes, which become
// subdirectories, but may not escape the root.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not make dir %q: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %q: %w", dir, err)
	}
	return &FileStore{dir: abs}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put replaces the file for key by writing a uniquely named temporary sibling
// and renaming it over the destination.
func (s *FileStore) Put(key string, value []byte) (err error) {
	valpath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	f, err := os.CreateTemp(filepath.Dir(valpath), filepath.Base(valpath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %q: %w", valpath, err)
	}
	tmp := f.Name()
	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("could not write %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, valpath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not rename %q into place: %w", tmp, err)
	}
	return nil
}

func (s *FileStore) Get(key string) (value []byte, err error) {
	valpath, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	value, err = ioutil.ReadFile(valpath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", valpath, err)
	}
	return value, nil
}

func (s *FileStore) Move(from, to string) error {
	src, err := s.pathFor(from)
	if err != nil {
		return err
	}
	dst, err := s.pathFor(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", dst, err)
	}
	err = os.Rename(src, dst)
	if os.IsNotExist(err) {
		return fmt.Errorf("%q: %w", from, ErrNotFound)
	}
	return err
}

// DiskStats returns the available and total bytes of the filesystem holding
// the store. (0, 0) means the numbers are not available.
func (s *FileStore) DiskStats() (avail, total uint64) {
	return diskStats(s.dir)
}

func (s *FileStore) pathFor(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	joined := filepath.Join(s.dir, filepath.Clean(filepath.FromSlash(key)))
	rel, err := filepath.Rel(s.dir, joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes %q", key, s.dir)
	}
	return joined, nil
}
