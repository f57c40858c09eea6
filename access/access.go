package access

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meigma/logarchive/filestore"
	"github.com/meigma/logarchive/identity"
)

// Handle is an admitted file.
type Handle struct {
	// Name is the base name of the admitted path.
	Name string

	// Path is the path the file was admitted under.
	Path string

	// Size is the length observed at admission. It is not refreshed.
	Size int64

	// File is the open file. Close releases it.
	File filestore.File
}

// Close closes the underlying file.
func (h *Handle) Close() error {
	if h.File == nil {
		return nil
	}
	err := h.File.Close()
	h.File = nil
	return err
}

// Admitter admits files for a principal.
type Admitter interface {
	Admit(path, expectedOwner string) (*Handle, error)
}

// Accessor is the Admitter backed by a filestore.Store.
type Accessor struct {
	store         filestore.Store
	ident         identity.Identity
	elevatedGroup string
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithElevatedGroup accepts files owned by group when the expected owner is a
// member of it; membership is answered by id. Owner and group names are
// compared without their domain prefix and ignoring case, so "Administrators"
// matches an owner reported as BUILTIN\Administrators.
//
// On Windows the Administrators group is accepted by default, with
// membership from identity.OS(). WithElevatedGroup("", nil) disables the rule.
func WithElevatedGroup(group string, id identity.Identity) Option {
	return func(a *Accessor) {
		a.elevatedGroup = group
		a.ident = id
	}
}

// New creates an Accessor reading through store.
func New(store filestore.Store, opts ...Option) *Accessor {
	a := &Accessor{
		store:         store,
		ident:         defaultIdentity(),
		elevatedGroup: defaultElevatedGroup,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Admit opens path and verifies it is a regular file owned by expectedOwner.
//
// On failure the returned error is an *AdmissionError and no handle is left open.
func (a *Accessor) Admit(path, expectedOwner string) (*Handle, error) {
	if expectedOwner == "" {
		return nil, &AdmissionError{Path: path, Err: ErrNoExpectedOwner}
	}
	f, err := a.store.Open(path)
	if err != nil {
		return nil, &AdmissionError{Path: path, Err: err}
	}
	h, err := a.verify(f, path, expectedOwner)
	if err != nil {
		f.Close()
		return nil, &AdmissionError{Path: path, Err: err}
	}
	return h, nil
}

func (a *Accessor) verify(f filestore.File, path, expectedOwner string) (*Handle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !info.Regular {
		return nil, ErrNotRegular
	}
	if info.Size < 0 {
		return nil, fmt.Errorf("negative file size %d", info.Size)
	}

	owner, err := f.Owner()
	if err != nil {
		return nil, err
	}
	if owner != expectedOwner {
		ok, err := a.acceptElevated(owner, expectedOwner)
		if err != nil {
			return nil, errors.Join(ownerMismatch(path, owner, expectedOwner), err)
		}
		if !ok {
			return nil, ownerMismatch(path, owner, expectedOwner)
		}
	}

	return &Handle{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size,
		File: f,
	}, nil
}

func (a *Accessor) acceptElevated(owner, expectedOwner string) (bool, error) {
	if a.elevatedGroup == "" || a.ident == nil || !samePrincipal(owner, a.elevatedGroup) {
		return false, nil
	}
	return a.ident.MemberOf(expectedOwner, a.elevatedGroup)
}

// samePrincipal compares account names, ignoring any DOMAIN\ prefix and case.
func samePrincipal(a, b string) bool {
	return strings.EqualFold(accountName(a), accountName(b))
}

func accountName(principal string) string {
	if i := strings.LastIndexByte(principal, '\\'); i >= 0 {
		return principal[i+1:]
	}
	return principal
}

var _ Admitter = (*Accessor)(nil)
