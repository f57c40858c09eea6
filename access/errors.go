package access

import (
	"errors"
	"fmt"
)

var (
	// ErrOwnerMismatch is returned when a file's owner is not the expected principal.
	ErrOwnerMismatch = errors.New("access: owner mismatch")

	// ErrNotRegular is returned when the opened file is not a regular file.
	ErrNotRegular = errors.New("access: not a regular file")

	// ErrNoExpectedOwner is returned when admission is attempted without an owner to check against.
	ErrNoExpectedOwner = errors.New("access: no expected owner")
)

// AdmissionError reports why one candidate file was not admitted.
type AdmissionError struct {
	Path string
	Err  error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("access: cannot admit %s: %v", e.Path, e.Err)
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

func ownerMismatch(path, actual, expected string) error {
	return fmt.Errorf("%w: Owner '%s' for path %s did not match expected owner '%s'",
		ErrOwnerMismatch, actual, path, expected)
}
