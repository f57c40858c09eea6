//go:build !windows

package access

import "github.com/meigma/logarchive/identity"

const defaultElevatedGroup = ""

func defaultIdentity() identity.Identity {
	return nil
}
