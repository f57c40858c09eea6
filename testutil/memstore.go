package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/meigma/logarchive/filestore"
)

// MemStore is an in-memory filestore.Store. It is safe for concurrent use.
//
// Files opened for reading see the content present at Open. Files opened by
// Create write through to the store as they are written.
type MemStore struct {
	mu       sync.Mutex
	nodes    map[string]*memNode
	openErrs map[string]error
	dirErrs  map[string]error
}

type memNode struct {
	data  []byte
	owner string
	dir   bool
	perm  fs.FileMode
}

// NewMemStore returns an empty store containing only the root directory.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:    map[string]*memNode{string(filepath.Separator): {dir: true, perm: fs.ModeDir | 0o755}, ".": {dir: true, perm: fs.ModeDir | 0o755}},
		openErrs: map[string]error{},
		dirErrs:  map[string]error{},
	}
}

// AddFile stores data at path owned by owner, creating parent directories.
func (m *MemStore) AddFile(path string, data []byte, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.mkdirs(filepath.Dir(path))
	m.nodes[path] = &memNode{data: bytes.Clone(data), owner: owner, perm: 0o644}
}

// AddDir creates a directory and its parents.
func (m *MemStore) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirs(filepath.Clean(path))
}

// AppendBytes appends data to an existing file.
func (m *MemStore) AppendBytes(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok || n.dir {
		return &fs.PathError{Op: "append", Path: path, Err: fs.ErrNotExist}
	}
	n.data = append(n.data, data...)
	return nil
}

// SetBytes replaces the content of an existing file.
func (m *MemStore) SetBytes(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok || n.dir {
		return &fs.PathError{Op: "write", Path: path, Err: fs.ErrNotExist}
	}
	n.data = bytes.Clone(data)
	return nil
}

// Bytes returns a copy of the content at path.
func (m *MemStore) Bytes(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok || n.dir {
		return nil, false
	}
	return bytes.Clone(n.data), true
}

// Perm returns the permission bits of path.
func (m *MemStore) Perm(path string) (fs.FileMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok {
		return 0, false
	}
	return n.perm.Perm(), true
}

// FailOpen makes Open of path return err.
func (m *MemStore) FailOpen(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[filepath.Clean(path)] = err
}

// FailMkdir makes MkdirAll return err for dir or any path beneath it.
func (m *MemStore) FailMkdir(dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirErrs[filepath.Clean(dir)] = err
}

func (m *MemStore) Open(path string) (filestore.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err, ok := m.openErrs[path]; ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	n, ok := m.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	data := bytes.Clone(n.data)
	return &memFile{
		Reader: bytes.NewReader(data),
		info:   filestore.Info{Name: filepath.Base(path), Size: int64(len(data)), Regular: !n.dir, Dir: n.dir},
		owner:  n.owner,
	}, nil
}

func (m *MemStore) Stat(path string) (filestore.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	n, ok := m.nodes[path]
	if !ok {
		return filestore.Info{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return filestore.Info{Name: filepath.Base(path), Size: int64(len(n.data)), Regular: !n.dir, Dir: n.dir}, nil
}

// List returns child names in an unspecified order, as real directories do.
func (m *MemStore) List(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	n, ok := m.nodes[dir]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}
	if !n.dir {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: errors.New("not a directory")}
	}
	var names []string
	for p := range m.nodes {
		if p != dir && filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	// Reverse order keeps callers honest about sorting for themselves.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (m *MemStore) Create(path string) (filestore.WriteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	parent, ok := m.nodes[filepath.Dir(path)]
	if !ok || !parent.dir {
		return nil, &fs.PathError{Op: "create", Path: path, Err: fs.ErrNotExist}
	}
	if n, ok := m.nodes[path]; ok && n.dir {
		return nil, &fs.PathError{Op: "create", Path: path, Err: errors.New("is a directory")}
	}
	m.nodes[path] = &memNode{perm: 0o600}
	return &memWriter{store: m, path: path}, nil
}

func (m *MemStore) Chmod(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok {
		return &fs.PathError{Op: "chmod", Path: path, Err: fs.ErrNotExist}
	}
	n.perm = n.perm.Type() | perm.Perm()
	return nil
}

func (m *MemStore) MkdirAll(dir string, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	for p := dir; ; p = filepath.Dir(p) {
		if err, ok := m.dirErrs[p]; ok {
			return &fs.PathError{Op: "mkdir", Path: dir, Err: err}
		}
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	for p := dir; ; p = filepath.Dir(p) {
		if n, ok := m.nodes[p]; ok && !n.dir {
			return &fs.PathError{Op: "mkdir", Path: p, Err: errors.New("not a directory")}
		}
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}
	m.mkdirs(dir)
	return nil
}

// mkdirs creates dir and its ancestors. m.mu must be held.
func (m *MemStore) mkdirs(dir string) {
	for p := dir; ; p = filepath.Dir(p) {
		if _, ok := m.nodes[p]; !ok {
			m.nodes[p] = &memNode{dir: true, perm: fs.ModeDir | 0o755}
		}
		if parent := filepath.Dir(p); parent == p {
			return
		}
	}
}

type memFile struct {
	*bytes.Reader
	info   filestore.Info
	owner  string
	closed bool
}

func (f *memFile) Stat() (filestore.Info, error) {
	if f.closed {
		return filestore.Info{}, fs.ErrClosed
	}
	return f.info, nil
}

func (f *memFile) Owner() (string, error) {
	if f.closed {
		return "", fs.ErrClosed
	}
	return f.owner, nil
}

func (f *memFile) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	return nil
}

type memWriter struct {
	store  *MemStore
	path   string
	closed bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	n, ok := w.store.nodes[w.path]
	if !ok {
		return 0, fmt.Errorf("write %s: %w", w.path, fs.ErrNotExist)
	}
	n.data = append(n.data, p...)
	return len(p), nil
}

func (w *memWriter) Sync() error {
	if w.closed {
		return fs.ErrClosed
	}
	return nil
}

func (w *memWriter) Close() error {
	if w.closed {
		return fs.ErrClosed
	}
	w.closed = true
	return nil
}

var _ filestore.Store = (*MemStore)(nil)
