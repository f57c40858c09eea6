//go:build darwin || dragonfly || freebsd || (!android && linux) || netbsd || openbsd || solaris

package identity

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/moby/sys/user"
)

// NameForUID maps a uid to its passwd name. Accounts without a passwd entry
// are named by their decimal uid, so uid-only containers still compare equal.
func NameForUID(uid int) string {
	u, err := user.LookupUid(uid)
	if err != nil || u.Name == "" {
		return strconv.Itoa(uid)
	}
	return u.Name
}

func (osIdentity) Current() (string, error) {
	return NameForUID(os.Geteuid()), nil
}

func (osIdentity) MemberOf(principal, group string) (bool, error) {
	g, err := user.LookupGroup(group)
	if err != nil {
		return false, fmt.Errorf("lookup group %q: %w", group, err)
	}
	if slices.Contains(g.List, principal) {
		return true, nil
	}
	u, err := user.LookupUser(principal)
	if err != nil {
		return false, fmt.Errorf("lookup user %q: %w", principal, err)
	}
	return u.Gid == g.Gid, nil
}
