//go:build unix

package filestore

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/meigma/logarchive/identity"
)

// fileOwner stats the descriptor itself, so the answer describes the file
// that was opened even if the path has since been replaced.
func fileOwner(f *os.File) (string, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil { //nolint:gosec // descriptors fit in int
		return "", err
	}
	return identity.NameForUID(int(st.Uid)), nil
}
