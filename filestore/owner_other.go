//go:build !unix && !windows

package filestore

import (
	"errors"
	"os"
)

// ErrOwnerUnsupported is returned where the platform cannot report file owners.
var ErrOwnerUnsupported = errors.New("filestore: file ownership not supported on this platform")

func fileOwner(*os.File) (string, error) {
	return "", ErrOwnerUnsupported
}
