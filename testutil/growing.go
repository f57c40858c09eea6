package testutil

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

// GrowingFile is a file being written by a background goroutine in two
// phases. The first phase writes a fixed number of bytes and then signals
// Ready; the second phase starts only after Release.
type GrowingFile struct {
	Path string

	ready       chan struct{}
	release     chan struct{}
	readyOnce   sync.Once
	releaseOnce sync.Once
	group       errgroup.Group
}

// StartGrowingFile creates path and writes first bytes of fill to it in the
// background. After Release it appends rest more bytes and closes the file.
// The test's cleanup releases and waits for the writer.
func StartGrowingFile(tb testing.TB, path string, first, rest int, fill byte) *GrowingFile {
	tb.Helper()

	f, err := os.Create(path) //nolint:gosec // test-controlled path
	if err != nil {
		tb.Fatalf("create growing file: %v", err)
	}

	g := &GrowingFile{
		Path:    path,
		ready:   make(chan struct{}),
		release: make(chan struct{}),
	}
	g.group.Go(func() error {
		defer f.Close()
		defer g.markReady()

		if err := writeFill(f, first, fill); err != nil {
			return err
		}
		g.markReady()
		<-g.release
		return writeFill(f, rest, fill)
	})
	tb.Cleanup(func() {
		g.Release()
		_ = g.group.Wait()
	})
	return g
}

// Ready is closed once the first phase has been written.
func (g *GrowingFile) Ready() <-chan struct{} {
	return g.ready
}

// Release lets the second phase start. It is safe to call more than once.
func (g *GrowingFile) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}

// Wait blocks until the writer finishes and returns its error.
func (g *GrowingFile) Wait() error {
	return g.group.Wait()
}

func (g *GrowingFile) markReady() {
	g.readyOnce.Do(func() { close(g.ready) })
}

func writeFill(f *os.File, n int, fill byte) error {
	chunk := bytes.Repeat([]byte{fill}, 32*1024)
	for n > 0 {
		c := min(n, len(chunk))
		if _, err := f.Write(chunk[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}
