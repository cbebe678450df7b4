package audiostore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Saved describes an audio file that has been fully written to disk.
type Saved struct {
	Path      string
	SizeBytes int64
}

// Store writes uploaded audio under a single directory.
type Store struct {
	dir string
	now func() time.Time
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes r to {unixSeconds}_{name} and returns its final path and size.
// The data lands in a temp file first; the final name only ever points at a
// complete, synced file, and an existing file is never replaced.
func (s *Store) Save(originalName string, r io.Reader) (Saved, error) {
	name := cleanName(originalName)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Saved{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return Saved{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Saved{}, fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Saved{}, fmt.Errorf("close upload: %w", err)
	}

	ts := s.now().Unix()
	for n := 0; n < 1000; n++ {
		final := filepath.Join(s.dir, storageName(ts, n, name))
		err := os.Link(tmpPath, final)
		if err == nil {
			return Saved{Path: final, SizeBytes: size}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return Saved{}, fmt.Errorf("publish upload: %w", err)
		}
	}
	return Saved{}, fmt.Errorf("publish upload: no free name for %q", name)
}

func storageName(ts int64, n int, name string) string {
	if n == 0 {
		return fmt.Sprintf("%d_%s", ts, name)
	}
	return fmt.Sprintf("%d_%d_%s", ts, n, name)
}

// cleanName drops any client-supplied directories from the name.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}
