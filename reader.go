package logarchive

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/docker/go-units"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/logarchive/filestore"
	"github.com/meigma/logarchive/internal/codec"
	"github.com/meigma/logarchive/internal/file"
	"github.com/meigma/logarchive/internal/sizing"
	"github.com/meigma/logarchive/internal/trailer"
)

// Reader replays the entries of a closed archive.
//
// The index is read and validated once by Open. Bytes later appended to the
// file do not affect the regions it describes. A Reader is not safe for
// concurrent use; open one Reader per goroutine instead.
type Reader struct {
	path string
	f    filestore.File
	cfg  readerConfig

	size      int64
	header    codec.Header
	dgst      digest.Digest
	entries   []trailer.Entry
	index     map[EntryKey]int
	headerEnd uint64
	bodyEnd   uint64
	next      int
	closed    bool
}

// Open opens and validates the archive at path.
//
// Validation failures are returned as *FormatCorruptionError, which wraps
// ErrCorrupt. An archive that was never closed has no trailer and fails here.
func Open(store filestore.Store, path string, opts ...ReaderOption) (*Reader, error) {
	cfg := readerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r := &Reader{path: path, f: f, cfg: cfg}
	if err := r.load(); err != nil {
		f.Close()
		r.log().Debug("archive rejected", "path", path, "error", err)
		return nil, err
	}
	r.log().Info("archive opened",
		"path", path,
		"entries", len(r.entries),
		"size", units.HumanSize(float64(r.size)))
	return r, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.cfg.logger
}

func (r *Reader) load() error {
	info, err := r.f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	r.size = info.Size
	if info.Size < codec.FooterSize {
		return corrupt(r.path, fmt.Sprintf("file of %d bytes has no footer", info.Size), nil)
	}
	size := uint64(info.Size)

	var fbuf [codec.FooterSize]byte
	if err := readFullAt(r.f, fbuf[:], info.Size-codec.FooterSize); err != nil {
		return corrupt(r.path, "read footer", err)
	}
	footer, err := codec.ParseFooter(fbuf[:])
	if err != nil {
		return corrupt(r.path, "missing trailer", err)
	}
	if footer.TotalLength != size {
		return corrupt(r.path, fmt.Sprintf("recorded length %d, file length %d", footer.TotalLength, size), nil)
	}
	bodyMax := size - codec.FooterSize
	if bodyMax < uint64(codec.MinHeaderSize) || uint64(footer.TrailerLength) > bodyMax-uint64(codec.MinHeaderSize) {
		return corrupt(r.path, fmt.Sprintf("trailer of %d bytes does not fit", footer.TrailerLength), nil)
	}
	r.bodyEnd = bodyMax - uint64(footer.TrailerLength)

	idx := make([]byte, footer.TrailerLength)
	if err := readFullAt(r.f, idx, int64(r.bodyEnd)); err != nil {
		return corrupt(r.path, "read trailer", err)
	}
	t, err := trailer.Parse(idx)
	if err != nil {
		return corrupt(r.path, "decode trailer", err)
	}
	if t.Version != trailer.Version {
		return corrupt(r.path, fmt.Sprintf("unsupported trailer version %d", t.Version), nil)
	}

	if err := r.loadHeader(); err != nil {
		return err
	}
	if err := r.checkEntries(t.Entries); err != nil {
		return err
	}
	for _, e := range t.Entries {
		if err := r.scanEntry(e); err != nil {
			return err
		}
	}
	r.entries = t.Entries
	r.dgst = t.Digest

	if t.Digest != "" {
		if err := t.Digest.Validate(); err != nil {
			return corrupt(r.path, "malformed digest", err)
		}
	}
	if r.cfg.verifyDigest {
		return r.verifyDigest()
	}
	return nil
}

// loadHeader decodes the header and records where it ends.
func (r *Reader) loadHeader() error {
	cr := &file.CountingReader{R: io.NewSectionReader(r.f, 0, int64(r.bodyEnd))}
	br := bufio.NewReaderSize(cr, 4096)
	h, err := codec.ReadHeader(br)
	if err != nil {
		return corrupt(r.path, "bad header", err)
	}
	r.header = h
	r.headerEnd = cr.N - uint64(br.Buffered())
	return nil
}

// checkEntries verifies every index entry lies inside the body, after the
// header, without overlapping another, under a unique non-empty key.
func (r *Reader) checkEntries(entries []trailer.Entry) error {
	// Smallest entry: one-byte key length, one key byte, one-byte count.
	const minEntry = 3

	r.index = make(map[EntryKey]int, len(entries))
	for i, e := range entries {
		if e.Key == "" {
			return corrupt(r.path, fmt.Sprintf("entry %d has an empty key", i), nil)
		}
		key := EntryKey(e.Key)
		if _, dup := r.index[key]; dup {
			return corrupt(r.path, fmt.Sprintf("duplicate key %q", e.Key), nil)
		}
		r.index[key] = i

		if _, ok := sizing.SpanEnd(e.Offset, e.Length, r.bodyEnd); !ok || e.Offset < r.headerEnd || e.Length < minEntry {
			return corrupt(r.path, fmt.Sprintf("entry %q at %d+%d is outside the body", e.Key, e.Offset, e.Length), nil)
		}
	}

	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b trailer.Entry) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		// SpanEnd above guarantees this sum does not overflow.
		if prev.Offset+prev.Length > cur.Offset {
			return corrupt(r.path, fmt.Sprintf("entries %q and %q overlap", prev.Key, cur.Key), nil)
		}
	}
	return nil
}

func (r *Reader) verifyDigest() error {
	if r.dgst == "" {
		return corrupt(r.path, "archive has no digest", nil)
	}
	v := r.dgst.Verifier()
	if _, err := io.Copy(v, io.NewSectionReader(r.f, 0, int64(r.bodyEnd))); err != nil {
		return corrupt(r.path, "read body", err)
	}
	if !v.Verified() {
		return corrupt(r.path, fmt.Sprintf("body does not match digest %s", r.dgst), nil)
	}
	return nil
}

// Next returns the next entry in write order. Its record stream is ready to
// read. After the last entry Next returns ErrEndOfArchive, and keeps doing so.
//
// The returned EntryReader is valid until Close.
func (r *Reader) Next() (EntryKey, *EntryReader, error) {
	if r.closed {
		return "", nil, ErrReaderClosed
	}
	if r.next >= len(r.entries) {
		return "", nil, ErrEndOfArchive
	}
	e := r.entries[r.next]
	r.next++
	er, err := r.openEntry(e)
	if err != nil {
		return "", nil, err
	}
	return EntryKey(e.Key), er, nil
}

// Lookup returns the entry stored under key.
func (r *Reader) Lookup(key EntryKey) (*EntryReader, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	i, ok := r.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return r.openEntry(r.entries[i])
}

// section returns the region of the file indexed by e.
func (r *Reader) section(e trailer.Entry) (*io.SectionReader, error) {
	off, err := sizing.ToInt64(e.Offset, codec.ErrTooLarge)
	if err != nil {
		return nil, corrupt(r.path, "entry offset", err)
	}
	n, err := sizing.ToInt64(e.Length, codec.ErrTooLarge)
	if err != nil {
		return nil, corrupt(r.path, "entry length", err)
	}
	return io.NewSectionReader(r.f, off, n), nil
}

// scanEntry checks that the records of e fill its indexed region exactly and
// that its header agrees with the index. Payloads are skipped, not read.
func (r *Reader) scanEntry(e trailer.Entry) error {
	sr, err := r.section(e)
	if err != nil {
		return err
	}
	key, records, err := codec.ScanEntry(sr)
	if err != nil {
		return corrupt(r.path, fmt.Sprintf("entry %q", e.Key), err)
	}
	if key != e.Key {
		return corrupt(r.path, fmt.Sprintf("entry at %d has key %q, index says %q", e.Offset, key, e.Key), nil)
	}
	if records != e.Records {
		return corrupt(r.path, fmt.Sprintf("entry %q has %d records, index says %d", e.Key, records, e.Records), nil)
	}
	return nil
}

// openEntry positions a stream at e and checks its header against the index.
// Open has already scanned every entry, so a failure here means the file
// changed underneath the Reader.
func (r *Reader) openEntry(e trailer.Entry) (*EntryReader, error) {
	sr, err := r.section(e)
	if err != nil {
		return nil, err
	}
	er, err := codec.NewEntryReader(sr)
	if err != nil {
		return nil, corrupt(r.path, fmt.Sprintf("entry %q", e.Key), err)
	}
	if er.Key() != e.Key {
		return nil, corrupt(r.path, fmt.Sprintf("entry at %d has key %q, index says %q", e.Offset, er.Key(), e.Key), nil)
	}
	if er.Len() != e.Records {
		return nil, corrupt(r.path, fmt.Sprintf("entry %q has %d records, index says %d", e.Key, er.Len(), e.Records), nil)
	}
	return er, nil
}

// Keys returns every entry key in write order.
func (r *Reader) Keys() []EntryKey {
	keys := make([]EntryKey, len(r.entries))
	for i, e := range r.entries {
		keys[i] = EntryKey(e.Key)
	}
	return keys
}

// Len returns the number of entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Owner returns the archive owner recorded in the header.
func (r *Reader) Owner() string {
	return r.header.Owner
}

// Attributes returns the header attributes in write order.
func (r *Reader) Attributes() []Attribute {
	return slices.Clone(r.header.Attributes)
}

// Digest returns the digest of the archive body recorded in the trailer.
func (r *Reader) Digest() digest.Digest {
	return r.dgst
}

// Size returns the archive length in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Close releases the archive. Entry streams obtained earlier stop working.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}

// readFullAt fills p from off, treating a short read as an error.
func readFullAt(ra io.ReaderAt, p []byte, off int64) error {
	n, err := ra.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return err
}
