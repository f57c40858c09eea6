// Package render turns archive entries into the delimited text operators
// read.
//
// Each record is written as
//
//	LogType:<name>
//	[Log Upload Time:<time>]
//	LogLength:<n>
//	Log Contents:
//	<n payload bytes>
//	End of LogType:<name>
//	<blank line>
//
// The payload is copied verbatim; nothing in it is escaped.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/meigma/logarchive"
)

// UploadTimeLayout is the layout of the "Log Upload Time" line.
const UploadTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// FormatUploadTime formats t in local time with UploadTimeLayout.
func FormatUploadTime(t time.Time) string {
	return t.Local().Format(UploadTimeLayout)
}

type config struct {
	uploadTime time.Time
	logTypes   []string
}

// Option configures rendering.
type Option func(*config)

// WithUploadTime adds a "Log Upload Time" line to every record.
func WithUploadTime(t time.Time) Option {
	return func(c *config) {
		c.uploadTime = t
	}
}

// WithLogTypes renders only the records with one of the given names. The
// payloads of all other records are skipped.
func WithLogTypes(names ...string) Option {
	return func(c *config) {
		c.logTypes = append(c.logTypes, names...)
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *config) wants(name string) bool {
	return len(c.logTypes) == 0 || slices.Contains(c.logTypes, name)
}

// Record writes one record to w. Exactly rec.Length payload bytes are
// copied; a payload that ends early yields io.ErrUnexpectedEOF.
//
// A record excluded by WithLogTypes writes nothing and leaves its payload
// unread.
func Record(w io.Writer, rec logarchive.Record, opts ...Option) error {
	c := newConfig(opts)
	return c.record(w, rec)
}

// Entry writes every record of er to w in order.
func Entry(w io.Writer, er *logarchive.EntryReader, opts ...Option) error {
	c := newConfig(opts)
	for {
		rec, err := er.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.record(w, rec); err != nil {
			return err
		}
	}
}

func (c *config) record(w io.Writer, rec logarchive.Record) error {
	if !c.wants(rec.Name) {
		return nil
	}
	if rec.Length > math.MaxInt64 {
		return fmt.Errorf("render %s: length %d out of range", rec.Name, rec.Length)
	}

	head := "LogType:" + rec.Name + "\n"
	if !c.uploadTime.IsZero() {
		head += "Log Upload Time:" + FormatUploadTime(c.uploadTime) + "\n"
	}
	head += fmt.Sprintf("LogLength:%d\nLog Contents:\n", rec.Length)
	if _, err := io.WriteString(w, head); err != nil {
		return err
	}

	if rec.Length > 0 {
		n, err := io.CopyN(w, rec.Payload, int64(rec.Length))
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("render %s: %d of %d bytes: %w", rec.Name, n, rec.Length, err)
		}
	}

	_, err := io.WriteString(w, "\nEnd of LogType:"+rec.Name+"\n\n")
	return err
}
