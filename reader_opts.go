package logarchive

import "log/slog"

// readerConfig holds configuration for a Reader.
type readerConfig struct {
	logger       *slog.Logger
	verifyDigest bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

// WithVerifyDigest makes Open read the whole archive body and compare it
// against the digest recorded in the trailer.
//
// When false (the default) only the structure is validated, and a damaged
// payload byte is not detected.
func WithVerifyDigest(enabled bool) ReaderOption {
	return func(cfg *readerConfig) {
		cfg.verifyDigest = enabled
	}
}

// WithReaderLogger sets the logger for reader operations.
// If not set, logging is disabled.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(cfg *readerConfig) {
		cfg.logger = logger
	}
}
