package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mediakit/internal/util"
)

// FileSink writes deliverables into Dir under their own filename. The file
// appears only once it is complete.
type FileSink struct {
	Dir string

	// Path and Bytes describe the last delivered file.
	Path  string
	Bytes int64
}

func (s *FileSink) Deliver(ctx context.Context, d Deliverable) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := util.EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	name := filepath.Base(d.Filename)
	if name == "." || name == string(filepath.Separator) {
		return errors.New("deliverable has no filename")
	}

	tmp, err := os.CreateTemp(dir, "."+name+".part-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	n, err := io.Copy(tmp, ctxReader{ctx: ctx, r: d.Body})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.Size >= 0 && n != d.Size {
		err = fmt.Errorf("short write: got %d of %d bytes", n, d.Size)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("finalize output: %w", err)
	}
	s.Path, s.Bytes = dst, n
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
