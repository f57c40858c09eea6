package render_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/logarchive"
	"github.com/meigma/logarchive/access"
	"github.com/meigma/logarchive/render"
	"github.com/meigma/logarchive/testutil"
)

func record(name, payload string) logarchive.Record {
	return logarchive.Record{
		Name:    name,
		Length:  uint64(len(payload)),
		Payload: strings.NewReader(payload),
	}
}

func TestRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Record(&buf, record("stdout", "hello\nworld")))
	assert.Equal(t,
		"LogType:stdout\nLogLength:11\nLog Contents:\nhello\nworld\nEnd of LogType:stdout\n\n",
		buf.String())
}

func TestRecordZeroLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Record(&buf, logarchive.Record{Name: "stderr"}))
	assert.Equal(t,
		"LogType:stderr\nLogLength:0\nLog Contents:\n\nEnd of LogType:stderr\n\n",
		buf.String())
}

func TestRecordCopiesDeclaredLengthOnly(t *testing.T) {
	t.Parallel()

	rec := logarchive.Record{Name: "syslog", Length: 3, Payload: strings.NewReader("abcdef")}
	var buf bytes.Buffer
	require.NoError(t, render.Record(&buf, rec))
	assert.Contains(t, buf.String(), "Log Contents:\nabc\nEnd of LogType:syslog\n")
}

func TestRecordShortPayload(t *testing.T) {
	t.Parallel()

	rec := logarchive.Record{Name: "stdout", Length: 10, Payload: strings.NewReader("abc")}
	err := render.Record(io.Discard, rec)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRecordUploadTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.March, 5, 17, 4, 9, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, render.Record(&buf, record("stdout", "x"), render.WithUploadTime(at)))

	want := "LogType:stdout\nLog Upload Time:" + render.FormatUploadTime(at) +
		"\nLogLength:1\nLog Contents:\nx\nEnd of LogType:stdout\n\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatUploadTime(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("", -7*60*60)
	at := time.Date(2024, time.March, 5, 10, 4, 9, 0, zone)

	got := render.FormatUploadTime(at)
	parsed, err := time.Parse(render.UploadTimeLayout, got)
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
	assert.Equal(t, at.Local().Format("Mon Jan 02 15:04:05 -0700 2006"), got)
}

func writeArchive(t *testing.T, files map[string]string) *logarchive.Reader {
	t.Helper()

	store := testutil.NewMemStore()
	for name, data := range files {
		store.AddFile("/logs/c1/"+name, []byte(data), "alice")
	}
	w, err := logarchive.Create(store, "/out/app.lgar", logarchive.WithOwner("alice"))
	require.NoError(t, err)
	require.NoError(t, w.Append("c1", logarchive.EntrySource{Roots: []string{"/logs"}, RelPath: "c1"}))
	require.NoError(t, w.Close())

	r, err := logarchive.Open(store, "/out/app.lgar")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestEntry(t *testing.T) {
	t.Parallel()

	r := writeArchive(t, map[string]string{
		"stdout": "out line\n",
		"stderr": "",
		"syslog": "LogType:fake\nEnd of LogType:fake\n",
	})
	key, er, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, logarchive.EntryKey("c1"), key)

	var buf bytes.Buffer
	require.NoError(t, render.Entry(&buf, er))
	want := "LogType:stderr\nLogLength:0\nLog Contents:\n\nEnd of LogType:stderr\n\n" +
		"LogType:stdout\nLogLength:9\nLog Contents:\nout line\n\nEnd of LogType:stdout\n\n" +
		"LogType:syslog\nLogLength:33\nLog Contents:\nLogType:fake\nEnd of LogType:fake\n\nEnd of LogType:syslog\n\n"
	assert.Equal(t, want, buf.String())
}

func TestEntryLogTypes(t *testing.T) {
	t.Parallel()

	r := writeArchive(t, map[string]string{
		"stdout": "out",
		"stderr": "err",
		"syslog": "sys",
	})
	er, err := r.Lookup("c1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.Entry(&buf, er, render.WithLogTypes("syslog", "stderr")))
	assert.Equal(t,
		"LogType:stderr\nLogLength:3\nLog Contents:\nerr\nEnd of LogType:stderr\n\n"+
			"LogType:syslog\nLogLength:3\nLog Contents:\nsys\nEnd of LogType:syslog\n\n",
		buf.String())
}

func TestEntryEmpty(t *testing.T) {
	t.Parallel()

	r := writeArchive(t, nil)
	_, er, err := r.Next()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.Entry(&buf, er))
	assert.Empty(t, buf.String())
}

func TestEntrySkipsRejectedFile(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemStore()
	store.AddFile("/logs/c1/stdout", []byte("mine\n"), "alice")
	store.AddFile("/logs/c1/stderr", []byte("not mine\n"), "mallory")
	store.AddFile("/logs/c1/syslog", []byte("denied\n"), "alice")
	admitter := testutil.NewFakeAdmitter(access.New(store)).
		Fail("/logs/c1/syslog", errors.New("permission denied"))

	w, err := logarchive.Create(store, "/out/app.lgar",
		logarchive.WithOwner("alice"),
		logarchive.WithAdmitter(admitter))
	require.NoError(t, err)
	require.NoError(t, w.Append("c1", logarchive.EntrySource{Roots: []string{"/logs"}, RelPath: "c1"}))
	require.NoError(t, w.Close())

	r, err := logarchive.Open(store, "/out/app.lgar")
	require.NoError(t, err)
	defer r.Close()
	er, err := r.Lookup("c1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.Entry(&buf, er))
	assert.Equal(t,
		"LogType:stdout\nLogLength:5\nLog Contents:\nmine\n\nEnd of LogType:stdout\n\n",
		buf.String())
	assert.NotContains(t, buf.String(), "LogType:stderr")
	assert.NotContains(t, buf.String(), "not mine")
}
