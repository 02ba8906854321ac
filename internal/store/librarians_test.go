package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vhnguyen/libra/internal/db"
	"github.com/vhnguyen/libra/internal/model"
)

func TestCreateLibrarianEmployeeCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	year := time.Now().UTC().Year()

	u1, _ := CreateUser(ctx, database, "staff1", "hash", "Staff One", model.RoleLibrarian, "")
	l1, err := CreateLibrarian(ctx, database, u1.ID, LibrarianInput{FullName: "Staff One"})
	if err != nil {
		t.Fatalf("CreateLibrarian: %v", err)
	}
	if l1.EmployeeCode != fmt.Sprintf("ST%d001", year) {
		t.Errorf("unexpected first employee code %q", l1.EmployeeCode)
	}

	u2, _ := CreateUser(ctx, database, "staff2", "hash", "Staff Two", model.RoleLibrarian, "")
	l2, _ := CreateLibrarian(ctx, database, u2.ID, LibrarianInput{FullName: "Staff Two"})
	if l2.EmployeeCode != fmt.Sprintf("ST%d002", year) {
		t.Errorf("unexpected second employee code %q", l2.EmployeeCode)
	}
}

func TestGetLibrarianDetail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, _ := CreateUser(ctx, database, "staff", "hash", "Staff", model.RoleLibrarian, "")
	l, _ := CreateLibrarian(ctx, database, u.ID, LibrarianInput{FullName: "Staff", Position: "Front desk"})

	detail, err := GetLibrarianDetail(ctx, database, l.ID)
	if err != nil {
		t.Fatalf("GetLibrarianDetail: %v", err)
	}
	if detail.AccountInfo == nil {
		t.Fatal("expected account info")
	}
	if detail.AccountInfo.Username != "staff" || detail.AccountInfo.Role != model.RoleLibrarian {
		t.Errorf("unexpected account info %+v", detail.AccountInfo)
	}
}

func TestDeleteLibrarianViaUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, _ := CreateUser(ctx, database, "staff", "hash", "Staff", model.RoleLibrarian, "")
	l, _ := CreateLibrarian(ctx, database, u.ID, LibrarianInput{FullName: "Staff"})

	DeleteUser(ctx, database, u.ID)

	if gone, _ := GetLibrarian(ctx, database, l.ID); gone != nil {
		t.Error("expected staff profile to be deleted with its account")
	}
}

func TestListLibrariansSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u1, _ := CreateUser(ctx, database, "s1", "hash", "Mai Pham", model.RoleLibrarian, "")
	CreateLibrarian(ctx, database, u1.ID, LibrarianInput{FullName: "Mai Pham"})
	u2, _ := CreateUser(ctx, database, "s2", "hash", "Duc Vo", model.RoleLibrarian, "")
	CreateLibrarian(ctx, database, u2.ID, LibrarianInput{FullName: "Duc Vo"})

	matches, total, err := ListLibrarians(ctx, database, "mai", 1, 10)
	if err != nil {
		t.Fatalf("ListLibrarians: %v", err)
	}
	if total != 1 || len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", total)
	}
}
