package logarchive

import (
	"errors"
	"fmt"

	"github.com/meigma/logarchive/access"
)

var (
	// ErrCorrupt is wrapped by every FormatCorruptionError.
	ErrCorrupt = errors.New("logarchive: corrupt archive")

	// ErrEndOfArchive is returned by Reader.Next once every entry has been read.
	ErrEndOfArchive = errors.New("logarchive: end of archive")

	// ErrWriterClosed is returned by Append after Close.
	ErrWriterClosed = errors.New("logarchive: writer closed")

	// ErrWriterState is returned when a writer method is called in the wrong state.
	ErrWriterState = errors.New("logarchive: writer not open")

	// ErrDuplicateKey is returned when a key is appended twice.
	ErrDuplicateKey = errors.New("logarchive: duplicate entry key")

	// ErrInvalidKey is returned for an empty entry key.
	ErrInvalidKey = errors.New("logarchive: invalid entry key")

	// ErrUnknownKey is returned by Reader.Lookup for a key not in the index.
	ErrUnknownKey = errors.New("logarchive: unknown entry key")

	// ErrReaderClosed is returned by Reader methods after Close.
	ErrReaderClosed = errors.New("logarchive: reader closed")

	// ErrNoOwner is returned when the writer has no archive owner and cannot
	// resolve one.
	ErrNoOwner = errors.New("logarchive: archive owner unknown")
)

// Errors re-exported from access.
var (
	// ErrOwnerMismatch is the cause of an AdmissionError for a file owned by
	// someone other than the expected principal.
	ErrOwnerMismatch = access.ErrOwnerMismatch

	// ErrNotRegular is the cause of an AdmissionError for a non-regular file.
	ErrNotRegular = access.ErrNotRegular
)

// AdmissionError reports why one candidate file was skipped.
type AdmissionError = access.AdmissionError

// FormatCorruptionError is returned by Open when an archive fails validation.
type FormatCorruptionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatCorruptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("logarchive: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("logarchive: %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrCorrupt and the underlying cause, if any.
func (e *FormatCorruptionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCorrupt, e.Err}
	}
	return []error{ErrCorrupt}
}

// DirectoryCreationError is returned when the archive's parent directory
// cannot be created.
type DirectoryCreationError struct {
	Dir string
	Err error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("logarchive: create directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error {
	return e.Err
}

func corrupt(path, reason string, err error) error {
	return &FormatCorruptionError{Path: path, Reason: reason, Err: err}
}
