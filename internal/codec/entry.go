package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// Record is one file inside an entry.
type Record struct {
	// Name is the file's base name.
	Name string

	// Length is the declared payload length.
	Length uint64

	// Payload yields exactly Length bytes unless the archive is damaged.
	Payload io.Reader
}

// EntryReader decodes the records of one entry in order.
type EntryReader struct {
	r     *bufio.Reader
	key   string
	count uint64
	read  uint64
	cur   *io.LimitedReader
}

// NewEntryReader reads the entry header from r and returns a reader
// positioned at the first record.
func NewEntryReader(r io.Reader) (*EntryReader, error) {
	br := bufio.NewReader(r)
	key, count, err := ReadEntryHeader(br)
	if err != nil {
		return nil, err
	}
	return &EntryReader{r: br, key: key, count: count}, nil
}

// Key returns the key stored in the entry header.
func (e *EntryReader) Key() string {
	return e.key
}

// Len returns the number of records declared by the entry header.
func (e *EntryReader) Len() uint64 {
	return e.count
}

// Next returns the next record, discarding whatever remained unread of the
// previous one. It returns io.EOF after the last record.
func (e *EntryReader) Next() (Record, error) {
	if e.cur != nil {
		if _, err := io.Copy(io.Discard, e.cur); err != nil {
			return Record{}, fmt.Errorf("skip payload: %w", err)
		}
		if e.cur.N > 0 {
			return Record{}, fmt.Errorf("skip payload: %w", io.ErrUnexpectedEOF)
		}
		e.cur = nil
	}
	if e.read >= e.count {
		return Record{}, io.EOF
	}

	name, length, err := ReadRecordHeader(e.r)
	if err != nil {
		return Record{}, fmt.Errorf("record %d: %w", e.read, err)
	}
	if length > math.MaxInt64 {
		return Record{}, fmt.Errorf("record %s: %w: %d bytes", name, ErrTooLarge, length)
	}
	e.read++
	e.cur = &io.LimitedReader{R: e.r, N: int64(length)}
	return Record{Name: name, Length: length, Payload: e.cur}, nil
}

// ScanEntry walks the record headers of the entry held in r without reading
// payloads. The declared records must fill r exactly.
func ScanEntry(r *io.SectionReader) (key string, records uint64, err error) {
	size := r.Size()
	br := bufio.NewReaderSize(r, 512)
	cr := &countingReader{r: br}
	if key, records, err = ReadEntryHeader(cr); err != nil {
		return "", 0, err
	}
	pos := cr.n

	for i := uint64(0); i < records; i++ {
		br.Reset(io.NewSectionReader(r, pos, size-pos))
		cr.n = 0
		name, length, err := ReadRecordHeader(cr)
		if err != nil {
			return "", 0, fmt.Errorf("record %d: %w", i, err)
		}
		pos += cr.n
		if length > uint64(size-pos) {
			return "", 0, fmt.Errorf("record %s declares %d bytes, %d left: %w", name, length, size-pos, io.ErrUnexpectedEOF)
		}
		pos += int64(length)
	}
	if pos != size {
		return "", 0, fmt.Errorf("%d bytes after the last record", size-pos)
	}
	return key, records, nil
}

// countingReader counts the bytes consumed from a buffered reader.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
