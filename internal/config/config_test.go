package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("server address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.HubSpot.BaseURL != "https://api.hubapi.com" {
		t.Errorf("base url = %q", cfg.HubSpot.BaseURL)
	}
	if cfg.Cache.ScanResultTTL != time.Minute {
		t.Errorf("scan ttl = %v, want 1m", cfg.Cache.ScanResultTTL)
	}
	if cfg.Unlock.TokenTTL != 30*24*time.Hour {
		t.Errorf("token ttl = %v, want 720h", cfg.Unlock.TokenTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: ":9090"
hubspot:
  sampleLimit: 250
logging:
  level: debug
  json: true
cache:
  backend: redis
  addr: "localhost:6379"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("server address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.HubSpot.SampleLimit != 250 {
		t.Errorf("sample limit = %d, want 250", cfg.HubSpot.SampleLimit)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Addr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	// File silence keeps defaults.
	if cfg.HubSpot.PageSize != 100 {
		t.Errorf("page size = %d, want 100", cfg.HubSpot.PageSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CRMSCAN_SERVER_ADDRESS", ":7070")
	t.Setenv("CRMSCAN_HUBSPOT_SAMPLE_LIMIT", "50")
	t.Setenv("CRMSCAN_CACHE_BACKEND", "none")
	t.Setenv("CRMSCAN_CACHE_SCAN_TTL", "90s")
	t.Setenv("CRMSCAN_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("server address = %q, want :7070", cfg.Server.Address)
	}
	if cfg.HubSpot.SampleLimit != 50 {
		t.Errorf("sample limit = %d, want 50", cfg.HubSpot.SampleLimit)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("cache backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.ScanResultTTL != 90*time.Second {
		t.Errorf("scan ttl = %v, want 90s", cfg.Cache.ScanResultTTL)
	}
	if !cfg.Logging.JSON {
		t.Error("expected JSON logging")
	}
}

func TestSampleLimitFloor(t *testing.T) {
	t.Setenv("CRMSCAN_HUBSPOT_SAMPLE_LIMIT", "-10")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HubSpot.SampleLimit != 500 {
		t.Errorf("sample limit = %d, want fallback 500", cfg.HubSpot.SampleLimit)
	}
}
