// Package trailer encodes the archive index written just before the footer.
//
// The index is a FlatBuffers table listing, in write order, each entry's key,
// byte offset, byte length, and record count, plus a digest of every byte
// that precedes the index.
package trailer

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/logarchive/internal/fb"
)

// Version is the trailer schema version written by Build.
const Version uint32 = 1

// ErrInvalid is returned when trailer bytes cannot be decoded.
var ErrInvalid = errors.New("trailer: invalid index")

// Entry locates one entry in the archive.
type Entry struct {
	Key     string
	Offset  uint64
	Length  uint64
	Records uint64
}

// Trailer is the decoded index.
type Trailer struct {
	Version uint32
	Digest  digest.Digest
	Entries []Entry
}

// Build serializes t. Entries keep their order.
func Build(t Trailer) []byte {
	builder := flatbuffers.NewBuilder(256 + 64*len(t.Entries))

	// Children before parents, vectors back to front.
	offsets := make([]flatbuffers.UOffsetT, len(t.Entries))
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := t.Entries[i]
		key := builder.CreateString(e.Key)
		fb.IndexEntryStart(builder)
		fb.IndexEntryAddKey(builder, key)
		fb.IndexEntryAddOffset(builder, e.Offset)
		fb.IndexEntryAddLength(builder, e.Length)
		fb.IndexEntryAddRecords(builder, e.Records)
		offsets[i] = fb.IndexEntryEnd(builder)
	}

	fb.TrailerStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entries := builder.EndVector(len(offsets))

	var dgst flatbuffers.UOffsetT
	if t.Digest != "" {
		dgst = builder.CreateString(t.Digest.String())
	}

	fb.TrailerStart(builder)
	fb.TrailerAddVersion(builder, t.Version)
	if dgst != 0 {
		fb.TrailerAddDigest(builder, dgst)
	}
	fb.TrailerAddEntries(builder, entries)
	fb.FinishTrailerBuffer(builder, fb.TrailerEnd(builder))
	return builder.FinishedBytes()
}

// Parse decodes trailer bytes produced by Build.
//
// FlatBuffers accessors trust their input, so damaged bytes can make them
// index out of range; such panics are reported as ErrInvalid.
func Parse(data []byte) (t *Trailer, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalid, len(data))
	}

	root := fb.GetRootAsTrailer(data, 0)
	n := root.EntriesLength()
	// Each entry costs at least a 4-byte vector slot.
	if n < 0 || n > len(data)/4 {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrInvalid, n, len(data))
	}

	t = &Trailer{
		Version: root.Version(),
		Digest:  digest.Digest(root.Digest()),
		Entries: make([]Entry, 0, n),
	}
	var e fb.IndexEntry
	for i := range n {
		if !root.Entries(&e, i) {
			return nil, fmt.Errorf("%w: entry %d unreadable", ErrInvalid, i)
		}
		t.Entries = append(t.Entries, Entry{
			Key:     string(e.Key()),
			Offset:  e.Offset(),
			Length:  e.Length(),
			Records: e.Records(),
		})
	}
	return t, nil
}
