package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vhnguyen/libra/internal/db"
	"github.com/vhnguyen/libra/internal/model"
)

func TestCreateReaderIssuesCard(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reader, err := CreateReader(ctx, database, ReaderInput{
		FullName: "An Nguyen",
		Email:    "an@example.com",
	}, nil)
	if err != nil {
		t.Fatalf("CreateReader: %v", err)
	}

	if !strings.HasPrefix(reader.Card.Number, "RC") || len(reader.Card.Number) != 10 {
		t.Errorf("unexpected card number format: %q", reader.Card.Number)
	}
	if reader.Card.Status != model.CardStatusActive {
		t.Errorf("expected ACTIVE card, got %q", reader.Card.Status)
	}

	validity := reader.Card.ExpiryDate.Sub(reader.Card.IssueDate)
	if validity < model.CardValidity-time.Minute || validity > model.CardValidity+time.Minute {
		t.Errorf("expected one-year validity, got %v", validity)
	}
	if reader.CurrentLoans != 0 {
		t.Errorf("expected 0 current loans, got %d", reader.CurrentLoans)
	}
}

func TestCreateReaderDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateReader(ctx, database, ReaderInput{FullName: "A", Email: "dup@example.com"}, nil)
	_, err := CreateReader(ctx, database, ReaderInput{FullName: "B", Email: "dup@example.com"}, nil)
	if err == nil {
		t.Error("expected error for duplicate email")
	}
}

func TestCreateReaderRestoresDeletedWithNewCard(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reader, _ := CreateReader(ctx, database, ReaderInput{FullName: "A", Email: "back@example.com"}, nil)

	deleted, err := DeleteReader(ctx, database, reader.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteReader: deleted=%v err=%v", deleted, err)
	}

	restored, err := CreateReader(ctx, database, ReaderInput{FullName: "A Again", Email: "back@example.com"}, nil)
	if err != nil {
		t.Fatalf("CreateReader restore: %v", err)
	}
	if restored.ID != reader.ID {
		t.Errorf("expected restored reader to keep id %d, got %d", reader.ID, restored.ID)
	}
	if restored.FullName != "A Again" {
		t.Errorf("expected updated name, got %q", restored.FullName)
	}
	if restored.Card.Number == "" || restored.Card.Status != model.CardStatusActive {
		t.Errorf("expected a freshly issued active card, got %q (%s)", restored.Card.Number, restored.Card.Status)
	}
}

func TestUpdateReaderCardStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reader, _ := CreateReader(ctx, database, ReaderInput{FullName: "A", Email: "lock@example.com"}, nil)

	updated, err := UpdateReader(ctx, database, reader.ID, ReaderInput{
		FullName: "A",
		Email:    "lock@example.com",
	}, model.CardStatusLocked)
	if err != nil {
		t.Fatalf("UpdateReader: %v", err)
	}
	if updated.Card.Status != model.CardStatusLocked {
		t.Errorf("expected LOCKED card, got %q", updated.Card.Status)
	}
	if updated.Card.Number != reader.Card.Number {
		t.Errorf("card number must not change on update")
	}
}

func TestAdjustReaderLoanCount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reader, _ := CreateReader(ctx, database, ReaderInput{FullName: "A", Email: "count@example.com"}, nil)

	AdjustReaderLoanCount(ctx, database, reader.ID, 3)
	AdjustReaderLoanCount(ctx, database, reader.ID, -1)

	got, _ := GetReader(ctx, database, reader.ID)
	if got.CurrentLoans != 2 {
		t.Errorf("expected 2 current loans, got %d", got.CurrentLoans)
	}
}

func TestListReadersSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateReader(ctx, database, ReaderInput{FullName: "Alice Tran", Email: "alice@example.com"}, nil)
	CreateReader(ctx, database, ReaderInput{FullName: "Bob Le", Email: "bob@example.com"}, nil)

	readers, total, err := ListReaders(ctx, database, "alice", 1, 10)
	if err != nil {
		t.Fatalf("ListReaders: %v", err)
	}
	if total != 1 || len(readers) != 1 {
		t.Errorf("expected 1 match, got %d", total)
	}

	all, total, _ := ListReaders(ctx, database, "", 1, 10)
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 readers, got %d", total)
	}
}
