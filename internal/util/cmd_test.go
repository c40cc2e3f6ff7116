package util

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestRun_CapturesOutput(t *testing.T) {
	sh := requireShell(t)
	var lines []string
	res, err := Run(context.Background(), CmdSpec{
		Path:       sh,
		Args:       []string{"-c", "echo out; echo err 1>&2"},
		StderrLine: func(l string) { lines = append(lines, l) },
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if len(lines) != 1 || lines[0] != "err" {
		t.Errorf("stderr lines = %v", lines)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	sh := requireShell(t)
	res, err := Run(context.Background(), CmdSpec{Path: sh, Args: []string{"-c", "exit 3"}})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if res.Code != 3 {
		t.Errorf("Code = %d, want 3", res.Code)
	}
}

func TestStart_StreamsStdout(t *testing.T) {
	sh := requireShell(t)
	rc, err := Start(context.Background(), CmdSpec{Path: sh, Args: []string{"-c", "printf 'hello world'"}})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("stream = %q", data)
	}
}

func TestStart_ReportsExitOnRead(t *testing.T) {
	sh := requireShell(t)
	rc, err := Start(context.Background(), CmdSpec{Path: sh, Args: []string{"-c", "printf abc; echo broken 1>&2; exit 2"}})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer rc.Close()
	_, err = io.ReadAll(rc)
	if err == nil {
		t.Fatal("ReadAll() expected exit error")
	}
	if !strings.Contains(err.Error(), "exit 2") || !strings.Contains(err.Error(), "broken") {
		t.Errorf("error = %v, want exit code and stderr tail", err)
	}
}
