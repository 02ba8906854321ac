package store

import (
	"context"
	"testing"

	"github.com/vhnguyen/libra/internal/db"
	"github.com/vhnguyen/libra/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", "Test User", model.RoleReader, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleReader {
		t.Errorf("expected role READER, got %q", user.Role)
	}
	if user.Status != model.UserStatusActive {
		t.Errorf("expected default ACTIVE status, got %q", user.Status)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", "Alice", model.RoleAdmin, "")

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != "alice" {
		t.Errorf("expected 'alice', got %q", user.Username)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListUsersFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", "A", model.RoleReader, "")
	CreateUser(ctx, database, "b", "hash", "B", model.RoleLibrarian, "")

	users, total, err := ListUsers(ctx, database, "", "", 1, 10)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Errorf("expected 2 users, got %d", total)
	}

	staff, total, _ := ListUsers(ctx, database, "", model.RoleLibrarian, 1, 10)
	if total != 1 || len(staff) != 1 {
		t.Errorf("expected 1 librarian, got %d", total)
	}
}

func TestDeleteUserLocksAndCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "member", "hash", "Member", model.RoleReader, "")
	reader, _ := CreateReader(ctx, database, ReaderInput{FullName: "Member", Email: "member@example.com"}, &user.ID)

	deleted, err := DeleteUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if !deleted {
		t.Fatal("expected user to be deleted")
	}

	// The row survives soft-deleted, with the account locked.
	byName, _ := GetUserByUsername(ctx, database, "member")
	if byName == nil || byName.DeletedAt == nil {
		t.Fatal("expected soft-deleted user to remain visible by username")
	}
	if byName.Status != model.UserStatusLocked {
		t.Errorf("expected LOCKED status, got %q", byName.Status)
	}

	// The linked reader profile goes with it.
	if gone, _ := GetReader(ctx, database, reader.ID); gone != nil {
		t.Error("expected linked reader profile to be deleted")
	}
}

func TestDeleteUserMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	deleted, err := DeleteUser(ctx, database, 999)
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if deleted {
		t.Error("expected false for missing user")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", "PW", model.RoleReader, "")
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestRestoreUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "ghost", "hash", "Ghost", model.RoleReader, "")
	DeleteUser(ctx, database, user.ID)

	restored, err := RestoreUser(ctx, database, user.ID, "ghost", "newhash", "Ghost Again")
	if err != nil {
		t.Fatalf("RestoreUser: %v", err)
	}
	if restored == nil {
		t.Fatal("expected restored user")
	}
	if restored.Status != model.UserStatusActive {
		t.Errorf("expected ACTIVE after restore, got %q", restored.Status)
	}
	if restored.DeletedAt != nil {
		t.Error("expected deleted_at cleared")
	}
	if restored.FullName != "Ghost Again" {
		t.Errorf("expected updated full name, got %q", restored.FullName)
	}
}

func TestHardDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "temp", "hash", "Temp", model.RoleReader, "")
	if err := HardDeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("HardDeleteUser: %v", err)
	}

	byName, _ := GetUserByUsername(ctx, database, "temp")
	if byName != nil {
		t.Error("expected hard-deleted user to be gone entirely")
	}
}
