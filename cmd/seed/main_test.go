package main

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/config"
	"papershare-backend/internal/shared/storage/record"
	"papershare-backend/internal/users"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		StoreBackend:    "file",
		DataDir:         t.TempDir(),
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
	}
}

func TestRunSeedsFixturesAndFakeUsers(t *testing.T) {
	auth.BcryptCost = bcrypt.MinCost
	cfg := testConfig(t)
	if err := run(context.Background(), cfg, []string{"-fake", "2", "-items", "1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	store, err := record.NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got := record.Load[users.User](context.Background(), store, "users")
	if len(got) != 4 {
		t.Fatalf("expected 2 fixture and 2 fake users, got %d", len(got))
	}
}

func TestRunReturnsFlagErrors(t *testing.T) {
	if err := run(context.Background(), testConfig(t), []string{"-fake", "lots"}); err == nil {
		t.Fatalf("expected invalid flag value to fail")
	}
}
