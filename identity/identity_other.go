//go:build !(darwin || dragonfly || freebsd || (!android && linux) || netbsd || openbsd || solaris)

package identity

import (
	"fmt"
	"os/user"
	"slices"
	"strconv"
)

// NameForUID maps a uid to its account name, or to the decimal uid when the
// account database has no entry for it.
func NameForUID(uid int) string {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil || u.Username == "" {
		return strconv.Itoa(uid)
	}
	return u.Username
}

func (osIdentity) Current() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	return u.Username, nil
}

func (osIdentity) MemberOf(principal, group string) (bool, error) {
	g, err := user.LookupGroup(group)
	if err != nil {
		return false, fmt.Errorf("lookup group %q: %w", group, err)
	}
	u, err := user.Lookup(principal)
	if err != nil {
		return false, fmt.Errorf("lookup user %q: %w", principal, err)
	}
	gids, err := u.GroupIds()
	if err != nil {
		return false, fmt.Errorf("groups of %q: %w", principal, err)
	}
	return slices.Contains(gids, g.Gid), nil
}
