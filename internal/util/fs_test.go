package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTempFile_ReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	tf, err := NewTempFile(dir, "job-*.mp4")
	if err != nil {
		t.Fatalf("NewTempFile() error: %v", err)
	}
	if filepath.Dir(tf.Path) != dir {
		t.Errorf("temp file dir = %q, want %q", filepath.Dir(tf.Path), dir)
	}
	if !strings.HasSuffix(tf.Path, ".mp4") {
		t.Errorf("temp file %q lost its extension", tf.Path)
	}
	if _, err := os.Stat(tf.Path); err != nil {
		t.Fatalf("temp file should exist after acquisition: %v", err)
	}

	if err := tf.Release(); err != nil {
		t.Fatalf("first Release() error: %v", err)
	}
	if _, err := os.Stat(tf.Path); !os.IsNotExist(err) {
		t.Errorf("temp file still present after Release")
	}
	if err := tf.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}

	var nilFile *TempFile
	if err := nilFile.Release(); err != nil {
		t.Errorf("nil Release() error: %v", err)
	}
}

func TestTempFile_ReleaseAfterExternalDelete(t *testing.T) {
	tf, err := NewTempFile(t.TempDir(), "audio-*")
	if err != nil {
		t.Fatalf("NewTempFile() error: %v", err)
	}
	if err := os.Remove(tf.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := tf.Release(); err != nil {
		t.Errorf("Release() of already-deleted file = %v, want nil", err)
	}
}

func TestTempFile_Create(t *testing.T) {
	tf, err := NewTempFile(t.TempDir(), "video-*")
	if err != nil {
		t.Fatalf("NewTempFile() error: %v", err)
	}
	defer tf.Release()

	f, err := tf.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.WriteString("payload"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(tf.Path)
	if err != nil || string(data) != "payload" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.bin")
	if err := RemoveIfExists(path); err != nil {
		t.Errorf("RemoveIfExists(missing) = %v, want nil", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Errorf("RemoveIfExists(existing) = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "untitled"},
		{in: "My Video: Part 1?", want: "My_Video_Part_1"},
		{in: "a/b\\c", want: "a_b_c"},
		{in: "...", want: "untitled"},
		{in: "Rick's Song", want: "Rick_s_Song"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
