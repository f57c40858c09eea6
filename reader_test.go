package logarchive_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/logarchive"
	"github.com/meigma/logarchive/internal/codec"
	"github.com/meigma/logarchive/internal/trailer"
	"github.com/meigma/logarchive/testutil"
)

func TestReaderLookup(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)

	r, err := logarchive.Open(store, archivePath)
	require.NoError(t, err)
	defer r.Close()

	er, err := r.Lookup("c_02")
	require.NoError(t, err)
	assert.Equal(t, "c_02", er.Key())
	assert.Equal(t, uint64(1), er.Len())
	assert.Equal(t, []fileRecord{{Name: "stdout", Data: "c2 out\n"}}, readRecords(t, er))

	_, err = r.Lookup("c_03")
	require.ErrorIs(t, err, logarchive.ErrUnknownKey)

	// Lookup does not move the iterator.
	key, _, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, logarchive.EntryKey("c_01"), key)
}

func TestReaderEndOfArchiveRepeats(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)

	r, err := logarchive.Open(store, archivePath)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, readAll(t, r), 2)

	for range 3 {
		_, er, err := r.Next()
		require.ErrorIs(t, err, logarchive.ErrEndOfArchive)
		assert.Nil(t, er)
	}
}

func TestReaderClose(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)

	r, err := logarchive.Open(store, archivePath)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, _, err = r.Next()
	require.ErrorIs(t, err, logarchive.ErrReaderClosed)
	_, err = r.Lookup("c_01")
	require.ErrorIs(t, err, logarchive.ErrReaderClosed)
}

func TestReaderSkipsUnreadPayload(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)

	r, err := logarchive.Open(store, archivePath)
	require.NoError(t, err)
	defer r.Close()

	_, er, err := r.Next()
	require.NoError(t, err)
	var names []string
	for {
		rec, err := er.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"stderr", "stdout", "syslog"}, names)
}

func TestReaderCorruptAppend(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)

	before, err := logarchive.Open(store, archivePath)
	require.NoError(t, err)
	defer before.Close()

	require.NoError(t, store.AppendBytes(archivePath, []byte("corrupt_text")))

	_, err = logarchive.Open(store, archivePath)
	require.ErrorIs(t, err, logarchive.ErrCorrupt)
	var corruptErr *logarchive.FormatCorruptionError
	require.ErrorAs(t, err, &corruptErr)
	assert.Equal(t, archivePath, corruptErr.Path)

	// The reader opened earlier still serves its snapshot.
	got := readAll(t, before)
	require.Len(t, got, 2)
	assert.Equal(t, "c2 out\n", got[1].Records[0].Data)
	_, _, err = before.Next()
	require.ErrorIs(t, err, logarchive.ErrEndOfArchive)
}

func TestReaderGarbage(t *testing.T) {
	t.Parallel()

	inputs := map[string][]byte{
		"empty":        nil,
		"short":        []byte("LGAR"),
		"text":         []byte("this is not an archive, just some text"),
		"footer only":  codec.Footer{TotalLength: codec.FooterSize}.Append(nil),
		"wrong length": codec.Footer{TotalLength: 99, TrailerLength: 0}.Append([]byte("LGAR\x01\x00\x00")),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := testutil.NewMemStore()
			store.AddFile("/archive", data, owner)
			_, err := logarchive.Open(store, "/archive")
			require.ErrorIs(t, err, logarchive.ErrCorrupt)
		})
	}
}

func TestReaderTruncated(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)
	data, ok := store.Bytes(archivePath)
	require.True(t, ok)

	for cut := range len(data) {
		require.NoError(t, store.SetBytes(archivePath, data[:cut]))
		_, err := logarchive.Open(store, archivePath)
		require.ErrorIs(t, err, logarchive.ErrCorrupt, "cut at %d", cut)
	}
}

func TestReaderVerifyDigest(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)
	data, ok := store.Bytes(archivePath)
	require.True(t, ok)

	i := bytes.Index(data, []byte("c2 out"))
	require.Positive(t, i)
	data[i] = 'X'
	require.NoError(t, store.SetBytes(archivePath, data))

	// Structure is intact, so a plain open succeeds and serves the damage.
	got := openAll(t, store, archivePath)
	assert.Equal(t, "X2 out\n", got[1].Records[0].Data)

	_, err := logarchive.Open(store, archivePath, logarchive.WithVerifyDigest(true))
	require.ErrorIs(t, err, logarchive.ErrCorrupt)
}

func TestReaderConcurrentReaders(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)
	want := openAll(t, store, archivePath)

	var g errgroup.Group
	results := make([][]entry, 8)
	for i := range results {
		g.Go(func() error {
			r, err := logarchive.Open(store, archivePath, logarchive.WithVerifyDigest(true))
			if err != nil {
				return err
			}
			defer r.Close()
			for {
				key, er, err := r.Next()
				if errors.Is(err, logarchive.ErrEndOfArchive) {
					return nil
				}
				if err != nil {
					return err
				}
				e := entry{Key: key}
				for {
					rec, err := er.Next()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						return err
					}
					data, err := io.ReadAll(rec.Payload)
					if err != nil {
						return err
					}
					e.Records = append(e.Records, fileRecord{Name: rec.Name, Data: string(data)})
				}
				results[i] = append(results[i], e)
			}
		})
	}
	require.NoError(t, g.Wait())
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

// craft assembles an archive from a header, a body, and a hand-made index.
func craft(t *testing.T, body []byte, idx trailer.Trailer) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, codec.WriteHeader(&buf, codec.Header{Owner: owner}))
	buf.Write(body)
	tb := trailer.Build(idx)
	footer := codec.Footer{
		TotalLength:   uint64(buf.Len() + len(tb) + codec.FooterSize),
		TrailerLength: uint32(len(tb)),
	}
	return footer.Append(append(buf.Bytes(), tb...))
}

func entryBytes(t *testing.T, key string, records uint64) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, codec.WriteEntryHeader(&buf, key, records))
	return buf.Bytes()
}

func TestReaderRejectsBadIndex(t *testing.T) {
	t.Parallel()

	// Header with owner "yarn" is 11 bytes long.
	const base = 11
	a := entryBytes(t, "a", 0)
	b := entryBytes(t, "b", 0)
	body := append(append([]byte{}, a...), b...)
	good := func() []trailer.Entry {
		return []trailer.Entry{
			{Key: "a", Offset: base, Length: uint64(len(a))},
			{Key: "b", Offset: base + uint64(len(a)), Length: uint64(len(b))},
		}
	}

	tests := []struct {
		name   string
		mutate func(*trailer.Trailer)
	}{
		{"version", func(tr *trailer.Trailer) { tr.Version = 2 }},
		{"empty key", func(tr *trailer.Trailer) { tr.Entries[0].Key = "" }},
		{"duplicate key", func(tr *trailer.Trailer) { tr.Entries[1].Key = "a" }},
		{"inside header", func(tr *trailer.Trailer) { tr.Entries[0].Offset = base - 1 }},
		{"past body", func(tr *trailer.Trailer) { tr.Entries[1].Length += 1 }},
		{"overlap", func(tr *trailer.Trailer) { tr.Entries[0].Length += 1 }},
		{"huge offset", func(tr *trailer.Trailer) { tr.Entries[1].Offset = ^uint64(0) - 1 }},
		{"malformed digest", func(tr *trailer.Trailer) { tr.Digest = "sha256:nothex" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx := trailer.Trailer{Version: trailer.Version, Entries: good()}
			tt.mutate(&idx)
			store := testutil.NewMemStore()
			store.AddFile("/archive", craft(t, body, idx), owner)

			_, err := logarchive.Open(store, "/archive")
			require.ErrorIs(t, err, logarchive.ErrCorrupt)
		})
	}

	t.Run("control", func(t *testing.T) {
		t.Parallel()

		store := testutil.NewMemStore()
		store.AddFile("/archive", craft(t, body, trailer.Trailer{Version: trailer.Version, Entries: good()}), owner)
		got := openAll(t, store, "/archive")
		assert.Equal(t, []entry{{Key: "a"}, {Key: "b"}}, got)
	})
}

func TestReaderEntryMismatch(t *testing.T) {
	t.Parallel()

	const base = 11
	a := entryBytes(t, "a", 2)
	tests := []struct {
		name  string
		entry trailer.Entry
	}{
		{"key", trailer.Entry{Key: "z", Offset: base, Length: uint64(len(a)), Records: 2}},
		{"records", trailer.Entry{Key: "a", Offset: base, Length: uint64(len(a)), Records: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := testutil.NewMemStore()
			store.AddFile("/archive", craft(t, a, trailer.Trailer{
				Version: trailer.Version,
				Entries: []trailer.Entry{tt.entry},
			}), owner)

			_, err := logarchive.Open(store, "/archive")
			require.ErrorIs(t, err, logarchive.ErrCorrupt)
		})
	}
}

func TestReaderRecordLengthMismatch(t *testing.T) {
	t.Parallel()

	store := containerStore()
	writeContainers(t, store)
	data, ok := store.Bytes(archivePath)
	require.True(t, ok)

	// c_01's first record is stderr, holding "c1 err\n".
	i := bytes.Index(data, []byte("stderr"))
	require.Positive(t, i)
	lengthAt := i + len("stderr")
	require.Equal(t, uint64(7), binary.BigEndian.Uint64(data[lengthAt:]))

	for _, length := range []uint64{6, 8, 1 << 40} {
		t.Run(fmt.Sprint(length), func(t *testing.T) {
			t.Parallel()

			damaged := bytes.Clone(data)
			binary.BigEndian.PutUint64(damaged[lengthAt:], length)
			s := testutil.NewMemStore()
			s.AddFile(archivePath, damaged, owner)

			_, err := logarchive.Open(s, archivePath)
			require.ErrorIs(t, err, logarchive.ErrCorrupt)
			var corruptErr *logarchive.FormatCorruptionError
			require.ErrorAs(t, err, &corruptErr)
			assert.Contains(t, corruptErr.Reason, "c_01")
		})
	}
}

func TestReaderVerifyDigestRequiresDigest(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	store.AddFile("/archive", craft(t, nil, trailer.Trailer{Version: trailer.Version}), owner)

	_, err := logarchive.Open(store, "/archive")
	require.NoError(t, err)
	_, err = logarchive.Open(store, "/archive", logarchive.WithVerifyDigest(true))
	require.ErrorIs(t, err, logarchive.ErrCorrupt)
}
