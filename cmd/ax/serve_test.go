package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/attyx/assistant/internal/config"
)

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"version", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	sub, _, err := cmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	cfg, err := loadConfig(sub)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"version", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	sub, _, err := cmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	cfg, err := loadConfig(sub)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
}

func TestOpenStore_SQLiteMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = ":memory:"

	conn, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	if conn == nil {
		t.Fatal("nil connection")
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "postgres"

	if _, err := openStore(cfg); err == nil {
		t.Error("expected error for unknown driver")
	}
}
