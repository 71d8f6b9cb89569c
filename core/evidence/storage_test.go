package evidence

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cyberincident/core/utils"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return NewStorage(t.TempDir(), utils.NewLogger())
}

func TestSaveIdenticalNamesGetDistinctPaths(t *testing.T) {
	s := newTestStorage(t)
	p1, err := s.Save(7, "captura.png", []byte("one"))
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	p2, err := s.Save(7, "captura.png", []byte("two"))
	if err != nil {
		t.Fatalf("save 2: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("identical names collided on %s", p1)
	}
	got1, _ := s.Read(p1)
	got2, _ := s.Read(p2)
	if string(got1) != "one" || string(got2) != "two" {
		t.Fatal("stored contents swapped or lost")
	}
}

func TestSaveKeepsFilesUnderIncidentDir(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.Save(42, "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	wantDir := filepath.Join(s.Root(), "42")
	if filepath.Dir(path) != wantDir {
		t.Fatalf("file landed in %s, want %s", filepath.Dir(path), wantDir)
	}
	if strings.Contains(filepath.Base(path), "..") {
		t.Fatalf("stored name %s still carries traversal", filepath.Base(path))
	}
}

func TestReadMissingFile(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Read(filepath.Join(s.Root(), "1", "nope.bin")); !errors.Is(err, ErrFileMissing) {
		t.Fatalf("error %v, want ErrFileMissing", err)
	}
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	s := newTestStorage(t)
	if err := s.Remove(filepath.Join(s.Root(), "gone.bin")); err != nil {
		t.Fatalf("missing file should be swallowed: %v", err)
	}
	if err := s.Remove(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}

func TestRemoveIncidentDir(t *testing.T) {
	s := newTestStorage(t)
	path, err := s.Save(3, "a.txt", []byte("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	s.RemoveIncidentDir(3)
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file survived dir removal: %v", err)
	}
}

func TestZipSkipsMissingAndRenamesDuplicates(t *testing.T) {
	s := newTestStorage(t)
	p1, _ := s.Save(1, "log.txt", []byte("first"))
	p2, _ := s.Save(1, "log.txt", []byte("second"))
	data, included, err := s.Zip([]ZipEntry{
		{DisplayName: "log.txt", Path: p1},
		{DisplayName: "log.txt", Path: p2},
		{DisplayName: "gone.txt", Path: filepath.Join(s.Root(), "1", "missing")},
	})
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if included != 2 {
		t.Fatalf("included %d files, want 2", included)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["log.txt"] || !names["log_1.txt"] {
		t.Fatalf("archive names %v, want log.txt and log_1.txt", names)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"informe final.pdf":   "informe_final.pdf",
		"../../etc/passwd":    "passwd",
		"..\\..\\boot.ini":    "boot.ini",
		"":                    "archivo",
		".":                   "archivo",
		"trazas..2024.log":    "trazas_2024.log",
		"normal.png":          "normal.png",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
