package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path    string   // Binary path
	Args    []string // Arguments
	Env     []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir     string   // Working directory; empty = inherit.
	Verbose bool     // Echo the command line and stderr while capturing

	StdoutLine    func(string) // Called for each stdout line (if non-nil). Ignored by Start.
	StderrLine    func(string) // Called for each stderr line (if non-nil)
	CaptureStdout bool         // When false, do not buffer stdout into CmdResult (still invoke StdoutLine)
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// CmdRunner runs subprocesses. Tests substitute fakes.
type CmdRunner interface {
	// Run executes the command to completion, capturing its output.
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
	// Start launches the command and exposes stdout as a byte stream.
	Start(ctx context.Context, spec CmdSpec) (io.ReadCloser, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewDefaultRunner returns the os/exec backed runner.
func NewDefaultRunner() CmdRunner { return ExecRunner{} }

// Run implements CmdRunner.
func (ExecRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	return Run(ctx, spec)
}

// Start implements CmdRunner.
func (ExecRunner) Start(ctx context.Context, spec CmdSpec) (io.ReadCloser, error) {
	return Start(ctx, spec)
}

const (
	scanInitialBuf = 64 * 1024
	// yt-dlp --dump-json for a long YouTube video is routinely over 500KB.
	scanMaxLine = 4 * 1024 * 1024
	stderrTail  = 8 * 1024
)

// Run executes the command, optionally streaming output if Verbose is true.
// It always captures stderr. Stdout capture can be disabled with CaptureStdout=false.
// On non-zero exit, returns an error describing the exit code, while also
// populating CmdResult.Code and captured buffers.
func Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmd := newCmd(ctx, spec)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	if spec.Verbose {
		fmt.Fprintf(os.Stderr, "+ %s\n", shellQuote(spec.Path, spec.Args))
	}

	if err := cmd.Start(); err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		sc := newScanner(stdoutPipe)
		for sc.Scan() {
			line := sc.Text()
			if spec.StdoutLine != nil {
				spec.StdoutLine(line)
			}
			if spec.CaptureStdout || spec.StdoutLine == nil {
				stdoutBuf.WriteString(line)
				stdoutBuf.WriteByte('\n')
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanStderr(stderrPipe, spec, &stderrBuf, -1)
	}()

	// Readers must drain before Wait closes the pipes.
	wg.Wait()
	waitErr := cmd.Wait()

	code := exitCode(waitErr)
	res := CmdResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
		Code:   code,
		Err:    waitErr,
	}

	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w", code, waitErr)
	}
	return res, nil
}

// Start launches the command and returns its stdout as a stream. Reading to
// EOF reports a non-zero exit as the read error. Close kills the process if it
// is still running and releases it.
func Start(ctx context.Context, spec CmdSpec) (io.ReadCloser, error) {
	cctx, cancel := context.WithCancel(ctx)
	cmd := newCmd(cctx, spec)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	if spec.Verbose {
		fmt.Fprintf(os.Stderr, "+ %s\n", shellQuote(spec.Path, spec.Args))
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	p := &process{
		cmd:        cmd,
		stdout:     stdout,
		cancel:     cancel,
		stderrDone: make(chan struct{}),
	}
	go func() {
		defer close(p.stderrDone)
		scanStderr(stderr, spec, &p.stderr, stderrTail)
	}()
	return p, nil
}

type process struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	cancel     context.CancelFunc
	stderrDone chan struct{}
	stderr     bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (p *process) Close() error {
	p.cancel()
	_ = p.wait()
	return nil
}

func (p *process) wait() error {
	p.waitOnce.Do(func() {
		<-p.stderrDone
		err := p.cmd.Wait()
		if err != nil {
			tail := strings.TrimSpace(p.stderr.String())
			if tail != "" {
				p.waitErr = fmt.Errorf("command failed (exit %d): %w: %s", exitCode(err), err, tail)
			} else {
				p.waitErr = fmt.Errorf("command failed (exit %d): %w", exitCode(err), err)
			}
		}
		p.cancel()
	})
	return p.waitErr
}

func newCmd(ctx context.Context, spec CmdSpec) *exec.Cmd {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	return cmd
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, scanInitialBuf), scanMaxLine)
	return sc
}

// scanStderr forwards stderr lines and captures them into buf. When limit is
// positive only the last limit bytes are kept.
func scanStderr(r io.Reader, spec CmdSpec, buf *bytes.Buffer, limit int) {
	sc := newScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if spec.StderrLine != nil {
			spec.StderrLine(line)
		}
		if spec.Verbose {
			fmt.Fprintln(os.Stderr, line)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		if limit > 0 && buf.Len() > limit {
			keep := buf.Bytes()[buf.Len()-limit:]
			tail := append([]byte(nil), keep...)
			buf.Reset()
			buf.Write(tail)
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// shellQuote returns a printable shell-like command string for logging.
func shellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
