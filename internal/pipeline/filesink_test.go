package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSinkDeliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := &FileSink{Dir: dir}
	err := sink.Deliver(context.Background(), Deliverable{Filename: "clip_1080p.mp4", Size: 5, Body: strings.NewReader("VIDEO")})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if sink.Path != filepath.Join(dir, "clip_1080p.mp4") || sink.Bytes != 5 {
		t.Fatalf("sink = %+v", sink)
	}
	data, err := os.ReadFile(sink.Path)
	if err != nil || string(data) != "VIDEO" {
		t.Fatalf("file = %q, %v", data, err)
	}
	assertOnly(t, dir, "clip_1080p.mp4")
}

func TestFileSinkFailuresLeaveNothing(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		d    Deliverable
	}{
		{
			name: "short body",
			ctx:  context.Background,
			d:    Deliverable{Filename: "a.mp4", Size: 10, Body: strings.NewReader("abc")},
		},
		{
			name: "canceled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			d: Deliverable{Filename: "a.mp4", Size: -1, Body: strings.NewReader("abc")},
		},
		{
			name: "read error",
			ctx:  context.Background,
			d:    Deliverable{Filename: "a.mp4", Size: -1, Body: errReader{err: os.ErrClosed}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			sink := &FileSink{Dir: dir}
			if err := sink.Deliver(tt.ctx(), tt.d); err == nil {
				t.Fatal("expected error")
			}
			assertOnly(t, dir)
		})
	}
}

func assertOnly(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if strings.Join(got, ",") != strings.Join(names, ",") {
		t.Fatalf("dir holds %v, want %v", got, names)
	}
}
