package filestore

import (
	"fmt"
	"io/fs"
	"os"
)

// OS returns a Store backed by the local file system.
func OS() Store {
	return osStore{}
}

type osStore struct{}

func (osStore) Open(path string) (File, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied paths are the point
	if err != nil {
		return nil, err
	}
	return &osFile{File: f}, nil
}

func (osStore) Stat(path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return infoFrom(info), nil
}

func (osStore) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Create opens the file owner-only; the archive writer widens it on close.
func (osStore) Create(path string) (WriteFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // caller-supplied path
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (osStore) Chmod(path string, perm fs.FileMode) error {
	return os.Chmod(path, perm)
}

func (osStore) MkdirAll(dir string, perm fs.FileMode) error {
	return os.MkdirAll(dir, perm)
}

type osFile struct {
	*os.File
}

func (f *osFile) Stat() (Info, error) {
	info, err := f.File.Stat()
	if err != nil {
		return Info{}, err
	}
	return infoFrom(info), nil
}

func (f *osFile) Owner() (string, error) {
	owner, err := fileOwner(f.File)
	if err != nil {
		return "", fmt.Errorf("resolve owner of %s: %w", f.Name(), err)
	}
	return owner, nil
}

func infoFrom(info fs.FileInfo) Info {
	return Info{
		Name:    info.Name(),
		Size:    info.Size(),
		Regular: info.Mode().IsRegular(),
		Dir:     info.IsDir(),
	}
}

var _ Store = osStore{}
