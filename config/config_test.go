package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":3001"
postgres:
  dsn: "postgres://localhost:5432/rooms"
auth:
  jwtSecret: "s3cret"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Service != "room-server" {
		t.Errorf("service default: got %q", cfg.Logging.Service)
	}
	if cfg.Logging.Env != "dev" {
		t.Errorf("env default: got %q", cfg.Logging.Env)
	}
	if got := cfg.Sync.CoalesceWindowOr(2 * time.Second); got != 2*time.Second {
		t.Errorf("coalesce window default: got %v", got)
	}
}

func TestLoadConfig_SyncDurations(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":3001"
postgres:
  dsn: "postgres://localhost:5432/rooms"
auth:
  jwtSecret: "s3cret"
sync:
  coalesceWindow: "5s"
  joinSyncDelay: "250ms"
  checkInterval: "bogus"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Sync.CoalesceWindowOr(2 * time.Second); got != 5*time.Second {
		t.Errorf("coalesce window: got %v", got)
	}
	if got := cfg.Sync.JoinSyncDelayOr(time.Second); got != 250*time.Millisecond {
		t.Errorf("join sync delay: got %v", got)
	}
	if got := cfg.Sync.CheckIntervalOr(30 * time.Second); got != 30*time.Second {
		t.Errorf("unparseable interval should fall back: got %v", got)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":3001"
auth:
  jwtSecret: "s3cret"
`)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing postgres.dsn")
	}
}

func TestLoadConfig_JWTSecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	writeConfig(t, `
http:
  addr: ":3001"
postgres:
  dsn: "postgres://localhost:5432/rooms"
`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt secret: got %q", cfg.Auth.JWTSecret)
	}
}
