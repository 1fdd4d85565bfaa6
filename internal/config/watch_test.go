package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnFileChange(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "docsmith.toml")
	if err := os.WriteFile(path, []byte("[transport]\nmode = \"stdio\"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reloaded := make(chan *Config, 1)
	go Watch(ctx, path, nil, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[transport]\nmode = \"http\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config file: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Transport.Mode != "http" {
			t.Fatalf("reloaded config mode = %q, want http", cfg.Transport.Mode)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for config reload")
	}
}
