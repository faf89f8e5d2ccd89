package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("unexpected addr: %s", cfg.HTTPAddr)
	}
	if cfg.DBDriver != DefaultDBDriver || cfg.DBDSN != DefaultDBDSN {
		t.Fatalf("unexpected db config: %s %s", cfg.DBDriver, cfg.DBDSN)
	}
	if cfg.HistoryQueueSize != DefaultHistoryQueueSize {
		t.Fatalf("unexpected queue size: %d", cfg.HistoryQueueSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "haggle.yaml")
	content := []byte("http_addr: \":9090\"\ndb_driver: postgres\ndb_dsn: \"host=localhost\"\nhistory_queue_size: 32\nwebhook_url: \"https://example.test/hook\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvHTTPAddr, ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("env must override file, got %s", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "postgres" || cfg.DBDSN != "host=localhost" {
		t.Fatalf("unexpected db config: %s %s", cfg.DBDriver, cfg.DBDSN)
	}
	if cfg.HistoryQueueSize != 32 {
		t.Fatalf("unexpected queue size: %d", cfg.HistoryQueueSize)
	}
	if cfg.WebhookURL != "https://example.test/hook" {
		t.Fatalf("unexpected webhook url: %s", cfg.WebhookURL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		HTTPAddr:         ":8080",
		DBDriver:         "sqlite",
		DBDSN:            "haggle.db",
		HistoryQueueSize: 256,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := base
	bad.DBDriver = "mysql"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}

	bad = base
	bad.HistoryQueueSize = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero queue size")
	}

	bad = base
	bad.DiscordBotToken = "token"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for token without channel")
	}
	bad.DiscordChannelID = "channel"
	if err := bad.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
