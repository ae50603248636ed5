package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papershare.yaml")
	yamlBody := `
server:
  port: "9090"
  corsAllowOrigins: ["http://a.test", "http://b.test"]
store:
  backend: redis
  redisPrefix: "ps:"
auth:
  sessionTtl: 2h
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("ENV", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env port to win, got %s", cfg.Port)
	}
	if cfg.StoreBackend != "redis" {
		t.Fatalf("expected redis backend from file, got %s", cfg.StoreBackend)
	}
	if cfg.RedisPrefix != "ps:" {
		t.Fatalf("unexpected redis prefix %q", cfg.RedisPrefix)
	}
	if len(cfg.CORSAllowOrigin) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowOrigin)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Fatalf("expected dev secret fallback")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET in production")
	}
}

func TestPostgresWithoutURLFallsBackInDev(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV", "dev")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "file" {
		t.Fatalf("expected file fallback, got %s", cfg.StoreBackend)
	}
}
