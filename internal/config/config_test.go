package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.Mode != "stdio" || cfg.Storage.DataRoot != "./data" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "docsmith.toml")
	contents := `
[storage]
data_root = "/var/lib/docsmith"

[transport]
mode = "http"
port = "9000"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.DataRoot != "/var/lib/docsmith" || cfg.Transport.Mode != "http" || cfg.Transport.Port != "9000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docsmith.toml")
	contents := "[storage]\ndata_root = \"/from/file\"\n\n[transport]\nmode = \"stdio\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("DOCSMITH_DATA_ROOT", "/from/env")
	t.Setenv("DOCSMITH_TRANSPORT", "http")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.DataRoot != "/from/env" || cfg.Transport.Mode != "http" {
		t.Fatalf("env override not applied: %+v", cfg)
	}
}

func TestValidate_RejectsUnknownTransportMode(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataRoot: "./data"}, Transport: TransportConfig{Mode: "carrier-pigeon"}, Images: ImagesConfig{TimeoutSeconds: 10}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown transport mode")
	}
}

func TestValidate_RejectsHousekeeperEnabledWithoutMaxStorage(t *testing.T) {
	cfg := &Config{
		Storage:     StorageConfig{DataRoot: "./data"},
		Transport:   TransportConfig{Mode: "stdio"},
		Images:      ImagesConfig{TimeoutSeconds: 10},
		Housekeeper: HousekeeperConfig{Enabled: true, MaxStorageMB: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for housekeeper enabled without max_storage_mb")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DOCSMITH_CONFIG", "DOCSMITH_DATA_ROOT", "DOCSMITH_TRANSPORT", "DOCSMITH_PORT",
		"DOCSMITH_HOST", "DOCSMITH_CORS_ORIGINS", "DOCSMITH_PUBLIC_BASE_URL", "DOCSMITH_LOG_LEVEL",
		"DOCSMITH_IMAGES_TIMEOUT_SECONDS", "DOCSMITH_IMAGES_MAX_SIZE_MB", "DOCSMITH_IMAGES_STOCK_DIR",
		"DOCSMITH_HOUSEKEEPER_ENABLED", "DOCSMITH_HOUSEKEEPER_INTERVAL_HOURS",
		"DOCSMITH_HOUSEKEEPER_MAX_STORAGE_MB",
	} {
		t.Setenv(key, "")
	}
	wd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(wd, "docsmith.toml")); err == nil {
		t.Fatal("unexpected docsmith.toml in test working directory")
	}
}
