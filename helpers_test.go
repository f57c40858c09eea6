package logarchive_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/logarchive"
	"github.com/meigma/logarchive/filestore"
	"github.com/meigma/logarchive/testutil"
)

const (
	archivePath = "/out/app_1.lgar"
	owner       = "yarn"
)

// fileRecord is a record read back in full.
type fileRecord struct {
	Name string
	Data string
}

// entry is an entry read back in full.
type entry struct {
	Key     logarchive.EntryKey
	Records []fileRecord
}

// readRecords drains er.
func readRecords(t *testing.T, er *logarchive.EntryReader) []fileRecord {
	t.Helper()

	var out []fileRecord
	for {
		rec, err := er.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		data, err := io.ReadAll(rec.Payload)
		require.NoError(t, err)
		require.Len(t, data, int(rec.Length))
		out = append(out, fileRecord{Name: rec.Name, Data: string(data)})
	}
}

// readAll drains r with Next.
func readAll(t *testing.T, r *logarchive.Reader) []entry {
	t.Helper()

	var out []entry
	for {
		key, er, err := r.Next()
		if errors.Is(err, logarchive.ErrEndOfArchive) {
			return out
		}
		require.NoError(t, err)
		out = append(out, entry{Key: key, Records: readRecords(t, er)})
	}
}

// openAll opens path and reads every entry.
func openAll(t *testing.T, store filestore.Store, path string, opts ...logarchive.ReaderOption) []entry {
	t.Helper()

	r, err := logarchive.Open(store, path, opts...)
	require.NoError(t, err)
	defer r.Close()
	return readAll(t, r)
}

// containerStore lays out two log roots holding files for two containers.
func containerStore() *testutil.MemStore {
	store := testutil.NewMemStore()
	store.AddFile("/data1/logs/app_1/c_01/stdout", []byte("c1 out\n"), owner)
	store.AddFile("/data1/logs/app_1/c_01/stderr", []byte("c1 err\n"), owner)
	store.AddFile("/data2/logs/app_1/c_01/syslog", []byte("c1 sys\n"), owner)
	store.AddFile("/data2/logs/app_1/c_02/stdout", []byte("c2 out\n"), owner)
	return store
}

func containerSource(id string) logarchive.EntrySource {
	return logarchive.EntrySource{
		Roots:   []string{"/data1/logs", "/data2/logs"},
		RelPath: "app_1/" + id,
	}
}

// writeContainers writes containerStore's two entries and closes the archive.
func writeContainers(t *testing.T, store filestore.Store, opts ...logarchive.WriterOption) {
	t.Helper()

	opts = append([]logarchive.WriterOption{logarchive.WithOwner(owner)}, opts...)
	w, err := logarchive.Create(store, archivePath, opts...)
	require.NoError(t, err)
	require.NoError(t, w.Append("c_01", containerSource("c_01")))
	require.NoError(t, w.Append("c_02", containerSource("c_02")))
	require.NoError(t, w.Close())
}
