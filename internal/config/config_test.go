package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.Sync.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Sync.RetryDelay)
	}
	if cfg.Sync.MutationTimeout != 30*time.Second {
		t.Errorf("MutationTimeout = %v, want 30s", cfg.Sync.MutationTimeout)
	}
	if cfg.Calendar.MaxVisiblePerCell != 2 {
		t.Errorf("MaxVisiblePerCell = %d, want 2", cfg.Calendar.MaxVisiblePerCell)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  base_url: https://study.example.edu
  token: secret
sync:
  mutation_timeout: 45s
calendar:
  max_visible_per_cell: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.BaseURL != "https://study.example.edu" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.Server.Token != "secret" {
		t.Errorf("Token = %s", cfg.Server.Token)
	}
	if cfg.Sync.MutationTimeout != 45*time.Second {
		t.Errorf("MutationTimeout = %v, want 45s", cfg.Sync.MutationTimeout)
	}
	if cfg.Calendar.MaxVisiblePerCell != 4 {
		t.Errorf("MaxVisiblePerCell = %d, want 4", cfg.Calendar.MaxVisiblePerCell)
	}

	// Fields the file omits keep their defaults.
	if cfg.Sync.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want the default 2s", cfg.Sync.RetryDelay)
	}
	if cfg.Server.WSURL != "ws://127.0.0.1:8080/ws" {
		t.Errorf("WSURL = %s, want the default", cfg.Server.WSURL)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sync:\n  retry_delay: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
