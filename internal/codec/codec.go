package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Magic opens every archive.
	Magic = "LGAR"

	// Version is the archive format version written by this package.
	Version byte = 1

	// FooterMagic closes every complete archive.
	FooterMagic = "LGTR"

	// FooterSize is the fixed length of the footer.
	FooterSize = 16

	// MinHeaderSize is the length of a header with an empty owner and no attributes.
	MinHeaderSize = len(Magic) + 1 + 1 + 1

	// MaxStringLen bounds keys, names, and attributes when decoding.
	MaxStringLen = 64 << 10

	// MaxAttributes bounds the header attribute count when decoding.
	MaxAttributes = 1024
)

var (
	// ErrBadMagic is returned when a header or footer does not carry its magic.
	ErrBadMagic = errors.New("codec: bad magic")

	// ErrVersion is returned for archives newer than this package understands.
	ErrVersion = errors.New("codec: unsupported version")

	// ErrInvalidName is returned for record names that are empty or contain a
	// path separator.
	ErrInvalidName = errors.New("codec: invalid record name")

	// ErrTooLarge is returned when a decoded length exceeds its bound.
	ErrTooLarge = errors.New("codec: length too large")
)

// ByteReader is the reader the decoders need.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// Attribute is one header key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// Header is the archive-wide metadata at offset zero.
type Header struct {
	// Owner is the principal the archive was written for.
	Owner string

	// Attributes are written and read back in order.
	Attributes []Attribute
}

// Validate reports whether h fits the bounds ReadHeader enforces.
func (h Header) Validate() error {
	if len(h.Owner) > MaxStringLen {
		return fmt.Errorf("%w: owner of %d bytes", ErrTooLarge, len(h.Owner))
	}
	if len(h.Attributes) > MaxAttributes {
		return fmt.Errorf("%w: %d attributes", ErrTooLarge, len(h.Attributes))
	}
	for _, a := range h.Attributes {
		if len(a.Key) > MaxStringLen || len(a.Value) > MaxStringLen {
			return fmt.Errorf("%w: attribute %.32q", ErrTooLarge, a.Key)
		}
	}
	return nil
}

// WriteHeader writes the archive header.
func WriteHeader(w io.Writer, h Header) error {
	if err := h.Validate(); err != nil {
		return err
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, Magic...)
	buf = append(buf, Version)
	buf = appendString(buf, h.Owner)
	buf = binary.AppendUvarint(buf, uint64(len(h.Attributes)))
	for _, a := range h.Attributes {
		buf = appendString(buf, a.Key)
		buf = appendString(buf, a.Value)
	}
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and checks the archive header.
func ReadHeader(r ByteReader) (Header, error) {
	magic := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(r, magic); err != nil {
		return Header{}, fmt.Errorf("read magic: %w", unexpected(err))
	}
	if string(magic[:len(Magic)]) != Magic {
		return Header{}, fmt.Errorf("%w: %q", ErrBadMagic, magic[:len(Magic)])
	}
	if v := magic[len(Magic)]; v == 0 || v > Version {
		return Header{}, fmt.Errorf("%w: %d > %d", ErrVersion, v, Version)
	}

	var h Header
	var err error
	if h.Owner, err = readString(r); err != nil {
		return Header{}, fmt.Errorf("read owner: %w", err)
	}
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return Header{}, fmt.Errorf("read attribute count: %w", unexpected(err))
	}
	if n > MaxAttributes {
		return Header{}, fmt.Errorf("%w: %d attributes", ErrTooLarge, n)
	}
	for range n {
		var a Attribute
		if a.Key, err = readString(r); err != nil {
			return Header{}, fmt.Errorf("read attribute: %w", err)
		}
		if a.Value, err = readString(r); err != nil {
			return Header{}, fmt.Errorf("read attribute %q: %w", a.Key, err)
		}
		h.Attributes = append(h.Attributes, a)
	}
	return h, nil
}

// WriteEntryHeader writes the key and record count that open an entry.
func WriteEntryHeader(w io.Writer, key string, records uint64) error {
	buf := appendString(make([]byte, 0, len(key)+2*binary.MaxVarintLen64), key)
	buf = binary.AppendUvarint(buf, records)
	_, err := w.Write(buf)
	return err
}

// ReadEntryHeader reads the key and record count that open an entry.
func ReadEntryHeader(r ByteReader) (key string, records uint64, err error) {
	if key, err = readString(r); err != nil {
		return "", 0, fmt.Errorf("read entry key: %w", err)
	}
	if records, err = binary.ReadUvarint(r); err != nil {
		return "", 0, fmt.Errorf("read record count: %w", unexpected(err))
	}
	return key, records, nil
}

// WriteRecordHeader writes a record's name and declared length. The payload
// must follow immediately.
func WriteRecordHeader(w io.Writer, name string, length uint64) error {
	if err := ValidName(name); err != nil {
		return err
	}
	buf := appendString(make([]byte, 0, len(name)+binary.MaxVarintLen64+8), name)
	buf = binary.BigEndian.AppendUint64(buf, length)
	_, err := w.Write(buf)
	return err
}

// ReadRecordHeader reads a record's name and declared length.
func ReadRecordHeader(r ByteReader) (name string, length uint64, err error) {
	if name, err = readString(r); err != nil {
		return "", 0, fmt.Errorf("read record name: %w", err)
	}
	if err = ValidName(name); err != nil {
		return "", 0, err
	}
	var buf [8]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return "", 0, fmt.Errorf("read length of %s: %w", name, unexpected(err))
	}
	return name, binary.BigEndian.Uint64(buf[:]), nil
}

// ValidName reports whether name can be stored as a record name.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Footer is the fixed-size block at the very end of a complete archive.
type Footer struct {
	// TotalLength is the archive length including the footer itself.
	TotalLength uint64

	// TrailerLength is the length of the encoded index before the footer.
	TrailerLength uint32
}

// Append appends the encoded footer to buf.
func (f Footer) Append(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, f.TotalLength)
	buf = binary.BigEndian.AppendUint32(buf, f.TrailerLength)
	return append(buf, FooterMagic...)
}

// ParseFooter decodes a footer from exactly FooterSize bytes.
func ParseFooter(b []byte) (Footer, error) {
	if len(b) != FooterSize {
		return Footer{}, fmt.Errorf("footer is %d bytes, want %d", len(b), FooterSize)
	}
	if string(b[12:]) != FooterMagic {
		return Footer{}, fmt.Errorf("%w: footer %q", ErrBadMagic, b[12:])
	}
	return Footer{
		TotalLength:   binary.BigEndian.Uint64(b[:8]),
		TrailerLength: binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(r ByteReader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", unexpected(err)
	}
	if n > MaxStringLen {
		return "", fmt.Errorf("%w: string of %d bytes", ErrTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", unexpected(err)
	}
	return string(buf), nil
}

// unexpected maps a clean EOF inside a structure to io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
