// Package blob is the opaque binary-store boundary: avatars and attached files are
// consumed by key only. The core never interprets blob contents.
package blob

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	Upload(key string, data []byte) error
	Download(key string) ([]byte, error)
	Delete(key string) error
}

// FSStore keeps blobs on the local filesystem, one file per key.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Upload(key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FSStore) Download(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FSStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", errors.New("invalid blob key")
	}
	return filepath.Join(s.dir, key), nil
}
