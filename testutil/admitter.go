package testutil

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/meigma/logarchive/access"
)

// FakeAdmitter wraps an access.Admitter. Paths registered with Fail are
// rejected without reaching the inner admitter; every other path is
// delegated, and successful admissions run the OnAdmit hook before the
// handle is returned.
type FakeAdmitter struct {
	inner access.Admitter

	mu       sync.Mutex
	failures map[string]error
	onAdmit  func(*access.Handle)
	calls    []string
}

// NewFakeAdmitter returns a FakeAdmitter delegating to inner.
func NewFakeAdmitter(inner access.Admitter) *FakeAdmitter {
	return &FakeAdmitter{inner: inner, failures: map[string]error{}}
}

// Fail makes admission of path fail with err.
func (f *FakeAdmitter) Fail(path string, err error) *FakeAdmitter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[filepath.Clean(path)] = err
	return f
}

// OnAdmit sets a hook run after each successful admission.
func (f *FakeAdmitter) OnAdmit(fn func(*access.Handle)) *FakeAdmitter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAdmit = fn
	return f
}

// Calls returns every path passed to Admit, in order.
func (f *FakeAdmitter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Admit implements access.Admitter.
func (f *FakeAdmitter) Admit(path, expectedOwner string) (*access.Handle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	err, failed := f.failures[filepath.Clean(path)]
	hook := f.onAdmit
	f.mu.Unlock()

	if failed {
		return nil, &access.AdmissionError{Path: path, Err: err}
	}
	h, err := f.inner.Admit(path, expectedOwner)
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(h)
	}
	return h, nil
}

// StaticIdentity is an identity.Identity with a fixed current user and
// group membership table.
type StaticIdentity struct {
	User string

	// Groups maps a group name to its members.
	Groups map[string][]string
}

// Current returns s.User.
func (s StaticIdentity) Current() (string, error) {
	if s.User == "" {
		return "", fmt.Errorf("testutil: static identity has no user")
	}
	return s.User, nil
}

// MemberOf reports membership from s.Groups.
func (s StaticIdentity) MemberOf(principal, group string) (bool, error) {
	members, ok := s.Groups[group]
	if !ok {
		return false, fmt.Errorf("testutil: unknown group %q", group)
	}
	return slices.Contains(members, principal), nil
}

var _ access.Admitter = (*FakeAdmitter)(nil)
