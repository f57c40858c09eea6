// Package filestore defines the file-store primitives the archive core
// consumes, and an implementation backed by the local file system.
package filestore

import (
	"io"
	"io/fs"
)

// Info describes a file as observed through a Store.
type Info struct {
	// Name is the base name of the file.
	Name string

	// Size is the byte length at the moment of the call.
	Size int64

	// Regular is true for regular files.
	Regular bool

	// Dir is true for directories.
	Dir bool
}

// File is an open, readable file.
type File interface {
	io.Reader
	io.ReaderAt
	io.Closer

	// Stat describes the open file, not whatever the path now names.
	Stat() (Info, error)

	// Owner returns the principal owning the open file.
	Owner() (string, error)
}

// WriteFile is a file opened for writing.
type WriteFile interface {
	io.Writer
	io.Closer
	Sync() error
}

// Store provides the file primitives used to build and read archives.
//
// Paths use the host separator. Implementations must report a missing path
// with an error matching fs.ErrNotExist.
type Store interface {
	// Open opens path for reading, following symlinks.
	Open(path string) (File, error)

	// Stat describes path, following symlinks.
	Stat(path string) (Info, error)

	// List returns the names of the direct children of dir.
	List(dir string) ([]string, error)

	// Create creates path, truncating it if it exists.
	Create(path string) (WriteFile, error)

	// Chmod sets the permission bits of path exactly, ignoring the umask.
	Chmod(path string, perm fs.FileMode) error

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string, perm fs.FileMode) error
}
