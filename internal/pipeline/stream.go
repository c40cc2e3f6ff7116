package pipeline

import (
	"bytes"
	"context"
	"io"
)

// startedStream is a provider stream whose first chunk was already read.
type startedStream struct {
	io.Reader
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (s *startedStream) Close() error {
	err := s.rc.Close()
	s.cancel()
	return err
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// trackingWriter remembers write errors so they can be told apart from read
// errors after io.Copy.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
