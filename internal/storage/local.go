package storage

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"katalog/internal/apperr"
)

// ProductImageDir is the namespace product images are stored under, mirroring
// the layout the static file server exposes.
const ProductImageDir = "images/products"

// LocalStorage stores blobs on a filesystem rooted at the public storage
// directory. Tests hand it an afero.MemMapFs.
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage creates a LocalStorage over the given filesystem.
func NewLocalStorage(fs afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fs}
}

// Put writes the blob under the product-image namespace with a generated name,
// keeping the original file extension, and returns the storage path.
func (s *LocalStorage) Put(data []byte, originalName string) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	p := path.Join(ProductImageDir, name)

	if err := s.fs.MkdirAll(ProductImageDir, 0o755); err != nil {
		return "", &apperr.StorageError{Op: "put", Path: p, Err: err}
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return "", &apperr.StorageError{Op: "put", Path: p, Err: err}
	}
	return p, nil
}

// Get reads a stored blob back.
func (s *LocalStorage) Get(p string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, &apperr.StorageError{Op: "get", Path: p, Err: err}
	}
	return data, nil
}

// Delete removes a stored blob. Deleting a path that does not exist is an
// error; callers decide whether that is fatal.
func (s *LocalStorage) Delete(p string) error {
	if err := s.fs.Remove(p); err != nil {
		return &apperr.StorageError{Op: "delete", Path: p, Err: err}
	}
	return nil
}
