package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
quiz:
  reference_ttl: 5m
  snapshot_max_age: 10d
  fallback: false
storage:
  type: minio
  minio:
    endpoint: localhost:9000
    bucket: scalp
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Minio.Bucket != "scalp" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.FallbackEnabled() {
		t.Fatalf("expected fallback disabled")
	}
	if got := TTLDuration(cfg.Quiz.SnapshotMaxAge, 0); got != 240*time.Hour {
		t.Fatalf("expected 10 days, got %v", got)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to be fine, got %v", err)
	}
	if !cfg.FallbackEnabled() {
		t.Fatalf("expected fallback enabled by default")
	}
}

func TestTTLDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":      time.Minute,
		"90s":   90 * time.Second,
		"2d":    48 * time.Hour,
		"bogus": time.Minute,
	}
	for raw, want := range cases {
		if got := TTLDuration(raw, time.Minute); got != want {
			t.Fatalf("TTLDuration(%q) = %v, want %v", raw, got, want)
		}
	}
}
