// Package identity resolves the principals that own log files and archives.
//
// A principal is a user or group name as reported by the platform. The
// aggregation core never consults process-global identity state directly;
// it receives an [Identity] so tests can substitute a fixed one.
package identity

// Identity answers questions about principals.
type Identity interface {
	// Current returns the principal the process runs as.
	Current() (string, error)

	// MemberOf reports whether principal belongs to group.
	MemberOf(principal, group string) (bool, error)
}

// OS returns the Identity backed by the local account database.
func OS() Identity {
	return osIdentity{}
}

type osIdentity struct{}
