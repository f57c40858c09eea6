package logarchive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"slices"

	"github.com/docker/go-units"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/logarchive/access"
	"github.com/meigma/logarchive/filestore"
	"github.com/meigma/logarchive/identity"
	"github.com/meigma/logarchive/internal/codec"
	"github.com/meigma/logarchive/internal/file"
	"github.com/meigma/logarchive/internal/trailer"
)

type writerState uint8

const (
	stateCreated writerState = iota
	stateOpen
	stateClosed
)

// Writer packs log files into an archive.
//
// A Writer is not safe for concurrent use. Only one Writer may target a
// given path at a time; this is not enforced.
type Writer struct {
	store    filestore.Store
	cfg      writerConfig
	admitter access.Admitter

	state writerState
	path  string
	owner string

	f        filestore.WriteFile
	bw       *bufio.Writer
	cw       *file.CountingWriter
	digester digest.Digester
	copyBuf  []byte

	entries []trailer.Entry
	keys    map[EntryKey]struct{}
	stats   Stats

	// err is the first failure writing the archive. Once set, nothing more
	// is written and Close leaves the archive without a trailer.
	err error
}

// NewWriter returns a Writer over store. Call Open before Append.
func NewWriter(store filestore.Store, opts ...WriterOption) *Writer {
	cfg := writerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	w := &Writer{
		store:    store,
		cfg:      cfg,
		admitter: cfg.admitter,
		keys:     make(map[EntryKey]struct{}),
	}
	if w.admitter == nil {
		w.admitter = access.New(store)
	}
	return w
}

// Create is NewWriter followed by Open.
func Create(store filestore.Store, path string, opts ...WriterOption) (*Writer, error) {
	w := NewWriter(store, opts...)
	if err := w.Open(path); err != nil {
		return nil, err
	}
	return w, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}

// Open creates or truncates the archive at path and writes its header.
// Missing parent directories are created; failure to do so is reported as a
// *DirectoryCreationError.
func (w *Writer) Open(path string) error {
	if w.state != stateCreated {
		return fmt.Errorf("%w: open called twice", ErrWriterState)
	}

	owner, err := w.resolveOwner()
	if err != nil {
		return err
	}
	hdr := codec.Header{Owner: owner, Attributes: w.cfg.attributes}
	if err := hdr.Validate(); err != nil {
		return fmt.Errorf("archive header: %w", err)
	}

	dir := filepath.Dir(path)
	if err := w.store.MkdirAll(dir, dirPerm); err != nil {
		return &DirectoryCreationError{Dir: dir, Err: err}
	}
	f, err := w.store.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	digester := digest.Canonical.Digester()
	bw := bufio.NewWriterSize(io.MultiWriter(f, digester.Hash()), 64<<10)
	cw := &file.CountingWriter{W: bw}
	if err := codec.WriteHeader(cw, hdr); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}

	w.path = path
	w.owner = owner
	w.f = f
	w.bw = bw
	w.cw = cw
	w.digester = digester
	w.copyBuf = make([]byte, 32*1024)
	w.state = stateOpen
	w.log().Info("archive opened", "path", path, "owner", owner)
	return nil
}

func (w *Writer) resolveOwner() (string, error) {
	if w.cfg.owner != "" {
		return w.cfg.owner, nil
	}
	id := w.cfg.ident
	if id == nil {
		id = identity.OS()
	}
	owner, err := id.Current()
	if err != nil {
		return "", errors.Join(ErrNoOwner, err)
	}
	if owner == "" {
		return "", ErrNoOwner
	}
	return owner, nil
}

// Owner returns the archive owner written to the header. It is empty until
// Open succeeds.
func (w *Writer) Owner() string {
	return w.owner
}

// Stats returns counters for what has been written so far.
func (w *Writer) Stats() Stats {
	s := w.stats
	if s.Bytes == 0 && w.cw != nil {
		s.Bytes = w.cw.N
	}
	return s
}

// Append writes one entry holding the admissible files of src under key.
//
// Files that fail admission are logged and skipped; they never fail Append.
// A key with no admissible files still produces an empty entry. An error
// writing the archive itself is returned here and by every later Append and
// Close.
func (w *Writer) Append(key EntryKey, src EntrySource) error {
	switch w.state {
	case stateCreated:
		return fmt.Errorf("%w: append before open", ErrWriterState)
	case stateClosed:
		return ErrWriterClosed
	}
	if w.err != nil {
		return w.err
	}
	if key == "" || len(key) > codec.MaxStringLen {
		return fmt.Errorf("%w: %.64q", ErrInvalidKey, key)
	}
	if _, dup := w.keys[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	filter, err := newNameFilter(src.Include, src.Exclude)
	if err != nil {
		return err
	}

	owner := src.Owner
	if owner == "" {
		owner = w.owner
	}
	files := w.admitAll(key, src, filter, owner)
	defer func() {
		for _, f := range files {
			f.release()
		}
	}()

	entry, err := w.writeEntry(key, files, owner)
	if err != nil {
		w.err = fmt.Errorf("write entry %s: %w", key, err)
		w.log().Error("archive write failed", "path", w.path, "key", string(key), "error", err)
		return w.err
	}
	w.entries = append(w.entries, entry)
	w.keys[key] = struct{}{}
	w.stats.Entries++
	w.log().Debug("entry written",
		"key", string(key),
		"records", entry.Records,
		"size", units.HumanSize(float64(entry.Length)))
	return nil
}

// admitted is a file that passed admission. h is nil once the file has been
// closed to stay under the open file bound.
type admitted struct {
	path string
	name string
	size int64
	h    *access.Handle
}

func (a *admitted) release() {
	if a.h != nil {
		a.h.Close()
		a.h = nil
	}
}

// admitAll lists every root in order and admits the candidate files of each,
// sorted by name. Directories are not descended into.
func (w *Writer) admitAll(key EntryKey, src EntrySource, filter *nameFilter, owner string) []*admitted {
	maxOpen := w.cfg.maxOpen
	if maxOpen < 1 {
		maxOpen = defaultMaxOpen
	}

	var files []*admitted
	for _, root := range src.Roots {
		dir := filepath.Join(root, src.RelPath)
		names, err := w.store.List(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.log().Debug("log directory missing", "key", string(key), "dir", dir)
			} else {
				w.log().Warn("cannot list log directory", "key", string(key), "dir", dir, "error", err)
			}
			continue
		}
		slices.Sort(names)

		for _, name := range names {
			h := w.admitOne(key, dir, name, filter, owner)
			if h == nil {
				continue
			}
			a := &admitted{path: h.Path, name: h.Name, size: h.Size, h: h}
			if len(files) >= maxOpen {
				a.release()
			}
			files = append(files, a)
		}
	}
	return files
}

func (w *Writer) admitOne(key EntryKey, dir, name string, filter *nameFilter, owner string) *access.Handle {
	path := filepath.Join(dir, name)
	ok, err := filter.admits(name)
	if err != nil {
		w.log().Warn("cannot match log file name", "key", string(key), "path", path, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	info, err := w.store.Stat(path)
	if err != nil {
		w.log().Warn("cannot stat log file", "key", string(key), "path", path, "error", err)
		return nil
	}
	if !info.Regular {
		w.log().Debug("skipping non-regular file", "key", string(key), "path", path)
		return nil
	}
	if err := codec.ValidName(name); err != nil {
		w.log().Warn("skipping log file", "key", string(key), "path", path, "error", err)
		return nil
	}

	h, err := w.admitter.Admit(path, owner)
	if err != nil {
		w.stats.Rejected++
		w.log().Warn("skipping log file", "key", string(key), "path", path, "error", err)
		return nil
	}
	return h
}

// writeEntry writes the entry header and one record per admitted file, each
// exactly as long as the file was at its first admission.
func (w *Writer) writeEntry(key EntryKey, files []*admitted, owner string) (trailer.Entry, error) {
	start := w.cw.N
	if err := codec.WriteEntryHeader(w.cw, string(key), uint64(len(files))); err != nil {
		return trailer.Entry{}, err
	}
	for _, a := range files {
		err := w.writeRecord(a, owner)
		a.release()
		if err != nil {
			return trailer.Entry{}, err
		}
	}
	return trailer.Entry{
		Key:     string(key),
		Offset:  start,
		Length:  w.cw.N - start,
		Records: uint64(len(files)),
	}, nil
}

// writeRecord copies a into the archive. A file that was closed after
// admission is admitted again; if that fails, its record keeps the declared
// length and holds zero bytes only.
func (w *Writer) writeRecord(a *admitted, owner string) error {
	if a.size < 0 {
		return fmt.Errorf("record %s: negative size %d", a.name, a.size)
	}
	if err := codec.WriteRecordHeader(w.cw, a.name, uint64(a.size)); err != nil {
		return err
	}

	var src file.SourceReader
	if a.h == nil {
		h, err := w.admitter.Admit(a.path, owner)
		if err != nil {
			w.stats.Rejected++
			w.log().Warn("log file rejected on reopen, zero-filling record", "path", a.path, "error", err)
			_, err = file.CopyExact(w.cw, bytes.NewReader(nil), a.size, w.copyBuf)
			return err
		}
		a.h = h
	}
	src.R = a.h.File

	copied, err := file.CopyExact(w.cw, &src, a.size, w.copyBuf)
	if err != nil {
		return fmt.Errorf("record %s: %w", a.name, err)
	}
	w.stats.Admitted++
	if copied < a.size {
		w.log().Warn("log file ended early, padding record",
			"path", a.path,
			"want", a.size,
			"got", copied,
			"error", src.Err)
	}
	return nil
}

// Close writes the trailer, closes the archive, and sets its permission to
// ArchivePerm. Close on a closed Writer does nothing.
//
// If an earlier write failed, Close releases the file without writing a
// trailer and returns that failure; the file then fails Open.
func (w *Writer) Close() error {
	switch w.state {
	case stateClosed:
		return nil
	case stateCreated:
		w.state = stateClosed
		return nil
	}
	w.state = stateClosed

	if w.err != nil {
		return errors.Join(w.err, w.f.Close())
	}
	if err := w.finish(); err != nil {
		w.err = err
		w.f.Close()
		return err
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := w.store.Chmod(w.path, ArchivePerm); err != nil {
		return fmt.Errorf("set archive permission: %w", err)
	}

	w.log().Info("archive closed",
		"path", w.path,
		"entries", len(w.entries),
		"size", units.HumanSize(float64(w.stats.Bytes)))
	return nil
}

// finish flushes the body and appends the trailer and footer. The trailer
// bypasses the digester: the digest covers the body only.
func (w *Writer) finish() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	body := w.cw.N

	idx := trailer.Build(trailer.Trailer{
		Version: trailer.Version,
		Digest:  w.digester.Digest(),
		Entries: w.entries,
	})
	if uint64(len(idx)) > math.MaxUint32 {
		return fmt.Errorf("trailer of %d bytes: %w", len(idx), codec.ErrTooLarge)
	}
	footer := codec.Footer{
		TotalLength:   body + uint64(len(idx)) + codec.FooterSize,
		TrailerLength: uint32(len(idx)),
	}
	if _, err := w.f.Write(footer.Append(idx)); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	w.stats.Bytes = footer.TotalLength
	return nil
}
