package logarchive

import (
	"log/slog"

	"github.com/meigma/logarchive/access"
	"github.com/meigma/logarchive/identity"
)

// writerConfig holds configuration for a Writer.
type writerConfig struct {
	logger     *slog.Logger
	owner      string
	ident      identity.Identity
	admitter   access.Admitter
	attributes []Attribute
	maxOpen    int
}

// defaultMaxOpen is the number of admitted files an entry holds open until
// their records are written.
const defaultMaxOpen = 64

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

// WithLogger sets the logger for writer operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(cfg *writerConfig) {
		cfg.logger = logger
	}
}

// WithOwner sets the archive owner. It is stored in the header and is the
// expected owner of every file whose EntrySource has no Owner.
func WithOwner(principal string) WriterOption {
	return func(cfg *writerConfig) {
		cfg.owner = principal
	}
}

// WithIdentity sets the identity used to resolve the archive owner when
// WithOwner is not given. The default is identity.OS().
func WithIdentity(id identity.Identity) WriterOption {
	return func(cfg *writerConfig) {
		cfg.ident = id
	}
}

// WithAdmitter replaces the admission check. The default is an
// access.Accessor over the writer's store.
func WithAdmitter(a access.Admitter) WriterOption {
	return func(cfg *writerConfig) {
		cfg.admitter = a
	}
}

// WithAttribute adds a key/value pair to the archive header. Attributes are
// kept in the order given.
func WithAttribute(key, value string) WriterOption {
	return func(cfg *writerConfig) {
		cfg.attributes = append(cfg.attributes, Attribute{Key: key, Value: value})
	}
}

// WithMaxOpenFiles bounds how many admitted files of one entry stay open
// between admission and copying. Files past the bound are closed after
// admission and admitted again just before their record is written. Values
// below one select the default of 64.
func WithMaxOpenFiles(n int) WriterOption {
	return func(cfg *writerConfig) {
		cfg.maxOpen = n
	}
}
