package audiostore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	st.now = func() time.Time { return time.Unix(1700000000, 0) }
	return st
}

func TestSaveWritesTimestampedFile(t *testing.T) {
	st := fixedStore(t)

	saved, err := st.Save("call.wav", strings.NewReader("RIFF-audio"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(saved.Path) != "1700000000_call.wav" {
		t.Fatalf("unexpected name %s", saved.Path)
	}
	if saved.SizeBytes != int64(len("RIFF-audio")) {
		t.Fatalf("size = %d", saved.SizeBytes)
	}
	data, err := os.ReadFile(saved.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "RIFF-audio" {
		t.Fatalf("content = %q", data)
	}

	entries, _ := os.ReadDir(st.Dir())
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestSaveNeverOverwrites(t *testing.T) {
	st := fixedStore(t)

	first, err := st.Save("call.wav", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save("call.wav", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Path == second.Path {
		t.Fatal("second upload reused the first name")
	}
	if filepath.Base(second.Path) != "1700000000_1_call.wav" {
		t.Fatalf("unexpected name %s", second.Path)
	}
	data, _ := os.ReadFile(first.Path)
	if string(data) != "one" {
		t.Fatalf("first file clobbered: %q", data)
	}
}

func TestSaveStripsDirectories(t *testing.T) {
	st := fixedStore(t)
	saved, err := st.Save("../../etc/evil.mp3", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(saved.Path) != st.Dir() {
		t.Fatalf("file escaped upload dir: %s", saved.Path)
	}
	if filepath.Base(saved.Path) != "1700000000_evil.mp3" {
		t.Fatalf("unexpected name %s", saved.Path)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveStreamFailure(t *testing.T) {
	st := fixedStore(t)
	if _, err := st.Save("call.wav", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(st.Dir())
	if len(entries) != 0 {
		t.Fatalf("partial file exposed: %d entries", len(entries))
	}
}
