package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/vhnguyen/libra/internal/model"
)

// ReaderInput carries the caller-supplied profile fields for a reader.
type ReaderInput struct {
	FullName string
	Email    string
	Phone    string
	DOB      *time.Time
	Gender   string
	Address  string
}

const readerColumns = `id, full_name, email, phone, dob, gender, address,
	card_number, card_issue_date, card_expiry_date, card_status, card_type,
	current_loans, user_id, created_at, updated_at, deleted_at`

// CreateReader registers a reader profile with a freshly issued card,
// optionally linked to a user account. A soft-deleted reader with the same
// email is restored under its old id with a new card.
func CreateReader(ctx context.Context, db *sql.DB, in ReaderInput, userID *int64) (*model.Reader, error) {
	existing, err := GetReaderByEmail(ctx, db, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.DeletedAt == nil {
		return nil, fmt.Errorf("email %s %w", in.Email, ErrAlreadyExists)
	}

	card, err := generateUniqueCard(ctx, db)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err = db.ExecContext(ctx,
			`UPDATE readers SET full_name = ?, email = ?, phone = ?, dob = ?, gender = ?,
			     address = ?, card_number = ?, card_issue_date = ?, card_expiry_date = ?,
			     card_status = ?, card_type = ?, user_id = ?, deleted_at = NULL,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			in.FullName, in.Email, in.Phone, in.DOB, in.Gender, in.Address,
			card.Number, card.IssueDate, card.ExpiryDate, card.Status, card.Type,
			userID, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("restoring reader: %w", err)
		}
		return GetReader(ctx, db, existing.ID)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO readers (full_name, email, phone, dob, gender, address,
		     card_number, card_issue_date, card_expiry_date, card_status, card_type, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.FullName, in.Email, in.Phone, in.DOB, in.Gender, in.Address,
		card.Number, card.IssueDate, card.ExpiryDate, card.Status, card.Type, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating reader: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting reader id: %w", err)
	}

	return GetReader(ctx, db, id)
}

// generateCard issues a new membership card valid for one year. Card numbers
// are RCyymmNNNN with a random 4-digit suffix.
func generateCard() model.Card {
	now := time.Now().UTC()
	return model.Card{
		Number:     fmt.Sprintf("RC%s%04d", now.Format("0601"), 1000+rand.Intn(9000)),
		IssueDate:  now,
		ExpiryDate: now.Add(model.CardValidity),
		Status:     model.CardStatusActive,
		Type:       model.CardTypeStudent,
	}
}

// generateUniqueCard retries card generation until the number is unused.
func generateUniqueCard(ctx context.Context, db *sql.DB) (model.Card, error) {
	for {
		card := generateCard()

		var count int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM readers WHERE card_number = ? AND deleted_at IS NULL`,
			card.Number,
		).Scan(&count)
		if err != nil {
			return model.Card{}, fmt.Errorf("checking card number: %w", err)
		}
		if count == 0 {
			return card, nil
		}
	}
}

// GetReader returns a non-deleted reader by ID.
func GetReader(ctx context.Context, db *sql.DB, id int64) (*model.Reader, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+readerColumns+` FROM readers WHERE id = ? AND deleted_at IS NULL`, id)
	r, err := scanReaderRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetReaderByEmail returns a reader by email, including soft-deleted readers
// so that registration can restore them.
func GetReaderByEmail(ctx context.Context, db *sql.DB, email string) (*model.Reader, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+readerColumns+` FROM readers WHERE email = ?
		 ORDER BY deleted_at IS NULL DESC LIMIT 1`, email)
	r, err := scanReaderRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListReaders returns a page of non-deleted readers, newest first. Search
// matches name, email, and card number case-insensitively.
func ListReaders(ctx context.Context, db *sql.DB, search string, page, limit int) ([]model.Reader, int, error) {
	where := ` WHERE deleted_at IS NULL`
	var args []any

	if search != "" {
		where += ` AND (full_name LIKE '%' || ? || '%' OR email LIKE '%' || ? || '%'
		           OR card_number LIKE '%' || ? || '%')`
		args = append(args, search, search, search)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting readers: %w", err)
	}

	query := `SELECT ` + readerColumns + ` FROM readers` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing readers: %w", err)
	}
	defer rows.Close()

	var readers []model.Reader
	for rows.Next() {
		r, err := scanReaderRow(rows)
		if err != nil {
			return nil, 0, err
		}
		readers = append(readers, *r)
	}
	return readers, total, rows.Err()
}

// UpdateReader replaces a reader's profile fields and card status.
func UpdateReader(ctx context.Context, db *sql.DB, id int64, in ReaderInput, cardStatus string) (*model.Reader, error) {
	_, err := db.ExecContext(ctx,
		`UPDATE readers SET full_name = ?, phone = ?, dob = ?, gender = ?, address = ?,
		     card_status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.FullName, in.Phone, in.DOB, in.Gender, in.Address, cardStatus, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating reader: %w", err)
	}
	return GetReader(ctx, db, id)
}

// DeleteReader soft-deletes a reader. Returns false if no active reader matched.
func DeleteReader(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE readers SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting reader: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteReaderByUserID soft-deletes the reader profile linked to a user
// account (cascade from account deletion).
func DeleteReaderByUserID(ctx context.Context, e Execer, userID int64) error {
	_, err := e.ExecContext(ctx,
		`UPDATE readers SET deleted_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("deleting reader by user: %w", err)
	}
	return nil
}

// AdjustReaderLoanCount applies an atomic delta to a reader's current_loans
// metric.
func AdjustReaderLoanCount(ctx context.Context, e Execer, readerID int64, delta int) error {
	_, err := e.ExecContext(ctx,
		`UPDATE readers SET current_loans = current_loans + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, readerID,
	)
	if err != nil {
		return fmt.Errorf("adjusting reader loan count: %w", err)
	}
	return nil
}

func scanReaderRow(s rowScanner) (*model.Reader, error) {
	r := &model.Reader{}
	var phone, gender, address sql.NullString
	var dob sql.NullTime

	err := s.Scan(&r.ID, &r.FullName, &r.Email, &phone, &dob, &gender, &address,
		&r.Card.Number, &r.Card.IssueDate, &r.Card.ExpiryDate, &r.Card.Status, &r.Card.Type,
		&r.CurrentLoans, &r.UserID, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning reader: %w", err)
	}

	r.Phone = phone.String
	r.Gender = gender.String
	r.Address = address.String
	if dob.Valid {
		r.DOB = &dob.Time
	}
	return r, nil
}
