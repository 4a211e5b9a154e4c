package fileutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeNewlines(t *testing.T) {
	t.Parallel()

	if got := SanitizeNewlines("a\r\nb\rc\nd"); got != `a\nb\nc\nd` {
		t.Fatalf("got=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  hello  ", 0); got != "hello" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("abcdef", 4); got != "abcd…" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("ab", 4); got != "ab" {
		t.Fatalf("got=%q", got)
	}
}

func TestWriteFileAtomic_NoTempLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "artifact.json")
	if err := WriteFileAtomic(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "data" {
		t.Fatalf("content=%q", b)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "two" {
		t.Fatalf("content=%q", b)
	}
}

func TestWriteJSONFile_RoundTrip(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}

	path := filepath.Join(t.TempDir(), "p.json")
	if err := WriteJSONFile(path, payload{Name: "x", N: 3}, true); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got payload
	if err := UnmarshalJSON(b, &got); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got.Name != "x" || got.N != 3 {
		t.Fatalf("got=%+v", got)
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")
	if FileExists(path) {
		t.Fatalf("missing file reported as existing")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(path) {
		t.Fatalf("existing file reported as missing")
	}
}
