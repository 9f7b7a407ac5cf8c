package persist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tetcal/internal/config"
)

// FileStore keeps one JSON file per key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir (0700) if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("persist: file store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save replaces the file for key atomically.
func (f *FileStore) Save(key string, data []byte) error {
	return config.WriteFileAtomic(f.path(key), data)
}

func (f *FileStore) Close() error { return nil }

// path maps a key to a file name, replacing anything that is not a safe
// file-name character.
func (f *FileStore) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, key)
	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		safe = "_"
	}
	return filepath.Join(f.dir, safe+".json")
}
