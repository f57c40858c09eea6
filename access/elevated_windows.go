//go:build windows

package access

import "github.com/meigma/logarchive/identity"

// Files created by an elevated process belong to the Administrators group
// rather than to the user who ran it.
const defaultElevatedGroup = "Administrators"

func defaultIdentity() identity.Identity {
	return identity.OS()
}
