package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  address: "127.0.0.1:9000"
logging:
  level: DEBUG
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: file
  path: ./store
notifier:
  workers: 3
  rate_per_sec: 7
telegram:
  token: "secret"
  chat_id: 42
maintenance:
  enabled: true
  schedule: "@hourly"
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Fatalf("server.address = %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "DEBUG" || !cfg.Logging.Console {
		t.Fatalf("logging mismatch: %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./store" {
		t.Fatalf("storage mismatch: %+v", cfg.Storage)
	}
	if cfg.Notifier.Workers != 3 || cfg.Notifier.RatePerSec != 7 {
		t.Fatalf("notifier mismatch: %+v", cfg.Notifier)
	}
	if cfg.Telegram == nil || cfg.Telegram.ChatID != 42 {
		t.Fatalf("telegram mismatch: %+v", cfg.Telegram)
	}
	if m.Get() != cfg {
		t.Fatalf("Get must return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  address: "127.0.0.1:9000"
  bogus_field: true
logging:
  level: INFO
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: memory
  path: ""
`)

	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("unknown fields must be rejected")
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", "  15s "); err != nil || d != 15*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty must resolve to 0: %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatalf("negative duration must be rejected")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatalf("garbage must be rejected")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "server": {"address": "127.0.0.1:9001"},
  "logging": {"level": "INFO", "console": true, "file": {"enabled": false, "path": ""}},
  "storage": {"driver": "memory", "path": ""}
}`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9001" {
		t.Fatalf("server.address = %q", cfg.Server.Address)
	}
	if cfg.Telegram != nil {
		t.Fatalf("telegram must default to nil")
	}
}
