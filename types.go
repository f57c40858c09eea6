package logarchive

import (
	"io/fs"

	"github.com/meigma/logarchive/internal/codec"
)

// ArchivePerm is the permission every closed archive carries.
const ArchivePerm fs.FileMode = 0o640

// dirPerm is used for parent directories created by Open.
const dirPerm fs.FileMode = 0o750

// EntryKey identifies one producer within an archive.
type EntryKey string

// EntrySource describes where the files for one entry live.
type EntrySource struct {
	// Roots are searched in order. Each contributes the regular files found
	// directly inside filepath.Join(root, RelPath).
	Roots []string

	// RelPath is joined under every root. Empty means the root itself.
	RelPath string

	// Owner is the principal every file must belong to. Empty means the
	// archive owner.
	Owner string

	// Include, when non-empty, admits only file names matching one of the
	// patterns. Exclude drops file names matching any of its patterns.
	// Patterns use .dockerignore syntax.
	Include []string
	Exclude []string
}

// Stats summarizes what a writer has written so far.
type Stats struct {
	// Entries is the number of entries written.
	Entries int

	// Admitted is the number of files copied into records.
	Admitted int

	// Rejected is the number of candidate files skipped at admission, plus
	// files that failed admission again when reopened for copying. The latter
	// still occupy a zero-filled record.
	Rejected int

	// Bytes is the number of bytes written to the archive, trailer included
	// once closed.
	Bytes uint64
}

// Record is one log file read back from an entry.
type Record = codec.Record

// EntryReader yields the records of one entry.
type EntryReader = codec.EntryReader

// Attribute is a key/value pair stored in the archive header.
type Attribute = codec.Attribute
