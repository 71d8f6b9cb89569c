package evidence

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cyberincident/core/utils"

	"github.com/gofrs/uuid/v5"
)

var ErrFileMissing = errors.New("evidence file missing")

// Storage keeps evidence files under one subdirectory per incident:
// <root>/<incident-id>/<uuid-token>_<sanitized-name>. The token makes
// concurrent uploads of identically named files land on distinct paths.
type Storage struct {
	root   string
	logger *utils.Logger
}

func NewStorage(root string, logger *utils.Logger) *Storage {
	if root == "" {
		root = "uploads"
	}
	return &Storage{root: root, logger: logger}
}

func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) incidentDir(incidentID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(incidentID, 10))
}

func (s *Storage) Save(incidentID int64, filename string, data []byte) (string, error) {
	dir := s.incidentDir(incidentID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}
	token := uuid.Must(uuid.NewV4()).String()
	name := token + "_" + SanitizeFilename(filename)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return path, nil
}

func (s *Storage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileMissing
		}
		return nil, err
	}
	return data, nil
}

// Remove is best-effort: a missing file is logged and swallowed so a
// row delete never blocks on the filesystem.
func (s *Storage) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warnf("evidence file already gone: %s", path)
			return nil
		}
		return err
	}
	return nil
}

// RemoveIncidentDir clears the per-incident directory after a cascade
// delete. Failures are logged only.
func (s *Storage) RemoveIncidentDir(incidentID int64) {
	dir := s.incidentDir(incidentID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warnf("evidence dir cleanup failed for incident %d: %v", incidentID, err)
	}
}

// ZipEntry names a file to include under its display name.
type ZipEntry struct {
	DisplayName string
	Path        string
}

// Zip builds an in-memory archive. Entries whose backing file is gone
// are skipped; duplicate display names get a numeric suffix so both
// survive. Returns the number of files actually included.
func (s *Storage) Zip(entries []ZipEntry) ([]byte, int, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := map[string]int{}
	included := 0
	for _, entry := range entries {
		data, err := s.Read(entry.Path)
		if err != nil {
			if errors.Is(err, ErrFileMissing) {
				s.logger.Warnf("skipping missing archive entry: %s", entry.Path)
				continue
			}
			zw.Close()
			return nil, 0, err
		}
		name := SanitizeFilename(entry.DisplayName)
		if n := seen[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		seen[SanitizeFilename(entry.DisplayName)]++
		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, 0, err
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return nil, 0, err
		}
		included++
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), included, nil
}

// SanitizeFilename strips anything usable for path traversal. The
// original client-supplied name is never trusted as a path component.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	replacer := strings.NewReplacer("/", "_", "\x00", "_", " ", "_")
	name = replacer.Replace(name)
	if name == "" || name == "." {
		return "archivo"
	}
	return name
}
