package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveIfExists deletes the file if present. A missing file is not an error.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// TempFile is a scoped temporary file. The file is created empty on
// acquisition and deleted by Release, which is safe to call any number of
// times and from any exit path.
type TempFile struct {
	Path string

	once sync.Once
	err  error
}

// NewTempFile creates an empty file in dir. pattern follows os.CreateTemp:
// the last "*" is replaced by a random string, so "job-*.mp4" keeps its
// extension for tools that sniff the container from the name.
func NewTempFile(dir, pattern string) (*TempFile, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mediakit")
	}
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &TempFile{Path: path}, nil
}

// Create truncates the file and opens it for writing.
func (t *TempFile) Create() (*os.File, error) {
	return os.OpenFile(t.Path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
}

// Release deletes the file. Only the first call does work; later calls return
// the first result.
func (t *TempFile) Release() error {
	if t == nil {
		return nil
	}
	t.once.Do(func() {
		t.err = RemoveIfExists(t.Path)
	})
	return t.err
}

// SanitizeFilename cleans a string to be safe as a filename:
// - Replace spaces with underscores
// - Replace forbidden characters with underscores
// - Trim duplicated underscores
// - Truncate to a reasonable length (~200 runes)
func SanitizeFilename(s string) string {
	if s == "" {
		return "untitled"
	}
	s = strings.ReplaceAll(s, " ", "_")
	forbidden := `[]/\:*?"<>|#%{}$!@+^~\` + "`" + `=&;'`
	for _, r := range forbidden {
		s = strings.ReplaceAll(s, string(r), "_")
	}
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "._-")

	const maxRunes = 200
	if utf8.RuneCountInString(s) > maxRunes {
		var b strings.Builder
		b.Grow(len(s))
		count := 0
		for _, r := range s {
			if count >= maxRunes {
				break
			}
			b.WriteRune(r)
			count++
		}
		s = b.String()
	}

	if s == "" {
		return "untitled"
	}
	return s
}
