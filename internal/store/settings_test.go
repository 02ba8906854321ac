package store

import (
	"context"
	"testing"

	"github.com/vhnguyen/libra/internal/db"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call must return the stored secret, not a fresh one.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestEnsureSettingKeepsFirstValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	got, err := ensureSetting(ctx, database, "greeting", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}

	got, err = ensureSetting(ctx, database, "greeting", "goodbye")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("expected first value to win, got %q", got)
	}

	missing, err := getSetting(ctx, database, "absent")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "" {
		t.Fatalf("expected empty value for absent key, got %q", missing)
	}
}
