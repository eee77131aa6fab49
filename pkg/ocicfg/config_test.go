package ocicfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("OCICTL_CONFIG", "")
	os.Unsetenv("OCICTL_CONFIG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load() without a config file = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("registry:\n  hostname: http://localhost:5000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OCICTL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.Hostname != "http://localhost:5000" {
		t.Errorf("Registry.Hostname = %q, want http://localhost:5000", cfg.Registry.Hostname)
	}
	if cfg.Registry.TTLSecs != 60 {
		t.Errorf("Registry.TTLSecs = %d, want default 60 preserved", cfg.Registry.TTLSecs)
	}
	if cfg.Archive.WorkDir != "/var/lib/ocictl" {
		t.Errorf("Archive.WorkDir = %q, want default preserved", cfg.Archive.WorkDir)
	}
}

func TestLoadMissingExplicitPathErrors(t *testing.T) {
	t.Setenv("OCICTL_CONFIG", "/nonexistent/path/config.yaml")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing explicit OCICTL_CONFIG path")
	}
}
