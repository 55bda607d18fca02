package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	filePerm = 0o600
	dirPerm  = 0o700
)

// FileRegion stores the image in a fixed size file. Writes go to a temporary
// file that is synced and renamed over the old image, so a crash leaves
// either the old or the new image.
type FileRegion struct {
	path string
}

// NewFileRegion returns a region backed by path, creating its directory
func NewFileRegion(path string) (*FileRegion, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return &FileRegion{path: path}, nil
}

// Load reads the image file
func (f *FileRegion) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlank
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrBlank
	}
	return data, nil
}

// Store pads image to Capacity and replaces the file atomically
func (f *FileRegion) Store(image []byte) error {
	if len(image) > Capacity {
		return fmt.Errorf("image of %d bytes exceeds region capacity %d", len(image), Capacity)
	}
	padded := make([]byte, Capacity)
	copy(padded, image)
	defer clear(padded)

	return atomicWriteFile(f.path, padded, filePerm)
}

// Erase overwrites the file with zeros. This is a logical wipe: the file
// system may keep the old blocks.
func (f *FileRegion) Erase() error {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return atomicWriteFile(f.path, make([]byte, Capacity), filePerm)
}

// Close is a no-op
func (f *FileRegion) Close() error {
	return nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"

	// Best effort cleanup if something already exists.
	_ = os.Remove(tmp)

	fh, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync tmp: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
