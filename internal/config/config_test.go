package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("server url = %q, want default", cfg.ServerURL)
	}
	if cfg.AuthToken != "" || cfg.DarkMode {
		t.Errorf("unexpected non-zero defaults: %+v", cfg)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{
		ServerURL: "http://tasks.example.edu",
		AuthToken: "tok-abc",
		UserRole:  "department_head",
		DarkMode:  true,
	}
	if err := cfg.saveTo(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := loadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("got %+v, want %+v", loaded, cfg)
	}

	// no temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("darkMode: true\n"), 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.DarkMode {
		t.Error("darkMode not loaded")
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("server url = %q, want default backfilled", cfg.ServerURL)
	}
}

func TestPath_HonorsXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := Path()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, "archtrack", "config.yaml")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}
