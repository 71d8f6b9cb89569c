package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("db driver %q, want sqlite", cfg.DBDriver)
	}
	if cfg.ListenAddr != "0.0.0.0:5000" {
		t.Fatalf("listen addr %q", cfg.ListenAddr)
	}
	if cfg.Uploads.MaxBytes != 16<<20 {
		t.Fatalf("max bytes %d, want %d", cfg.Uploads.MaxBytes, 16<<20)
	}
	if !cfg.Previews.Enabled || cfg.Previews.MaxWidth != 800 || cfg.Previews.MaxHeight != 600 {
		t.Fatalf("previews %+v", cfg.Previews)
	}
	if cfg.EffectivePageSize() != 20 {
		t.Fatalf("page size %d, want 20", cfg.EffectivePageSize())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := `db_driver: sqlite
db_path: /tmp/otra.db
listen_addr: 127.0.0.1:8080
uploads:
  dir: /tmp/subidas
  max_bytes: 1048576
  allowed_extensions: [pdf, png]
listing:
  page_size: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/otra.db" || cfg.ListenAddr != "127.0.0.1:8080" {
		t.Fatalf("cfg %+v", cfg)
	}
	if cfg.Uploads.MaxBytes != 1<<20 || len(cfg.Uploads.AllowedExtensions) != 2 {
		t.Fatalf("uploads %+v", cfg.Uploads)
	}
	if cfg.EffectivePageSize() != 5 {
		t.Fatalf("page size %d, want 5", cfg.EffectivePageSize())
	}
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("db driver %q, want sqlite default", cfg.DBDriver)
	}
}
