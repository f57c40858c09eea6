package file

import (
	"errors"
	"io"
)

var zeros [4096]byte

// SourceReader turns read errors from a log file into EOF and keeps the
// first one, so a failing source ends a record early instead of failing the
// archive.
type SourceReader struct {
	R   io.Reader
	Err error
}

// Read implements io.Reader.
func (s *SourceReader) Read(p []byte) (int, error) {
	n, err := s.R.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if s.Err == nil {
			s.Err = err
		}
		return n, io.EOF
	}
	return n, err
}

// CopyExact writes exactly n bytes to dst. It copies at most n bytes from src
// and fills any shortfall with zero bytes. copied is the number of bytes that
// came from src. Errors come only from dst; src must not return errors other
// than io.EOF (wrap it in a SourceReader).
func CopyExact(dst io.Writer, src io.Reader, n int64, buf []byte) (copied int64, err error) {
	copied, err = io.CopyBuffer(dst, io.LimitReader(src, n), buf)
	if err != nil {
		return copied, err
	}
	for pad := n - copied; pad > 0; {
		c := min(pad, int64(len(zeros)))
		w, err := dst.Write(zeros[:c])
		if err != nil {
			return copied, err
		}
		pad -= int64(w)
	}
	return copied, nil
}
