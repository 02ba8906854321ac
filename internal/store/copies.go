package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vhnguyen/libra/internal/model"
)

// CopyInput carries the caller-supplied fields for adding a copy.
type CopyInput struct {
	Barcode  string
	Status   string
	Note     string
	Location string
}

const copyColumns = `id, book_id, barcode, status, note, location, created_at, updated_at, deleted_at`

// AddCopy registers a physical copy under a book and bumps the book's
// inventory counters, in one transaction. A soft-deleted copy with the same
// barcode is restored under the target book instead of inserting a new row.
func AddCopy(ctx context.Context, db *sql.DB, bookID int64, in CopyInput) (*model.Copy, error) {
	if in.Status == "" {
		in.Status = model.CopyStatusAvailable
	}
	if !model.ValidCopyStatus(in.Status) {
		return nil, fmt.Errorf("invalid copy status %q", in.Status)
	}

	book, err := GetBook(ctx, db, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var copyID int64
	var deletedAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, deleted_at FROM copies WHERE barcode = ?
		 ORDER BY deleted_at IS NULL DESC LIMIT 1`, in.Barcode,
	).Scan(&copyID, &deletedAt)
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx,
			`INSERT INTO copies (book_id, barcode, status, note, location) VALUES (?, ?, ?, ?, ?)`,
			bookID, in.Barcode, in.Status, in.Note, in.Location,
		)
		if err != nil {
			return nil, fmt.Errorf("creating copy: %w", err)
		}
		copyID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting copy id: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("checking barcode: %w", err)
	case !deletedAt.Valid:
		return nil, fmt.Errorf("barcode %s %w", in.Barcode, ErrAlreadyExists)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE copies SET book_id = ?, status = ?, note = ?, location = ?,
			     deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			bookID, in.Status, in.Note, in.Location, copyID,
		)
		if err != nil {
			return nil, fmt.Errorf("restoring copy: %w", err)
		}
	}

	availableDelta := 0
	if model.CountsAvailable(in.Status) {
		availableDelta = 1
	}
	if err := AdjustBookInventory(ctx, tx, bookID, 1, availableDelta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing copy: %w", err)
	}

	return GetCopy(ctx, db, copyID)
}

// GetCopy returns a non-deleted copy by ID, with its book title joined in.
func GetCopy(ctx context.Context, db *sql.DB, id int64) (*model.Copy, error) {
	c := &model.Copy{}
	var note, location sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT c.id, c.book_id, c.barcode, c.status, c.note, c.location,
		        c.created_at, c.updated_at, c.deleted_at, b.title
		 FROM copies c
		 JOIN books b ON b.id = c.book_id
		 WHERE c.id = ? AND c.deleted_at IS NULL`, id,
	).Scan(&c.ID, &c.BookID, &c.Barcode, &c.Status, &note, &location,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.BookTitle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting copy: %w", err)
	}
	c.Note = note.String
	c.Location = location.String
	return c, nil
}

// ListCopiesByBook returns all non-deleted copies of a book.
func ListCopiesByBook(ctx context.Context, db *sql.DB, bookID int64) ([]model.Copy, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+copyColumns+` FROM copies
		 WHERE book_id = ? AND deleted_at IS NULL ORDER BY barcode`, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing copies: %w", err)
	}
	defer rows.Close()

	var copies []model.Copy
	for rows.Next() {
		var c model.Copy
		var note, location sql.NullString
		if err := rows.Scan(&c.ID, &c.BookID, &c.Barcode, &c.Status, &note, &location,
			&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning copy: %w", err)
		}
		c.Note = note.String
		c.Location = location.String
		copies = append(copies, c)
	}
	return copies, rows.Err()
}

// UpdateCopyStatus moves a copy to a new status and applies the availability
// delta to the book's counters, in one transaction. A no-op if the status is
// unchanged.
func UpdateCopyStatus(ctx context.Context, db *sql.DB, id int64, status, note string) (*model.Copy, error) {
	if !model.ValidCopyStatus(status) {
		return nil, fmt.Errorf("invalid copy status %q", status)
	}

	current, err := GetCopy(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrCopyNotFound
	}
	if current.Status == status {
		return current, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE copies SET status = ?, note = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		status, note, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating copy status: %w", err)
	}

	delta := availabilityDelta(current.Status, status)
	if delta != 0 {
		if err := AdjustBookInventory(ctx, tx, current.BookID, 0, delta); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing copy status: %w", err)
	}

	return GetCopy(ctx, db, id)
}

// DeleteCopy soft-deletes a copy and decrements the book's counters.
func DeleteCopy(ctx context.Context, db *sql.DB, id int64) error {
	current, err := GetCopy(ctx, db, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrCopyNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE copies SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting copy: %w", err)
	}

	availableDelta := 0
	if model.CountsAvailable(current.Status) {
		availableDelta = -1
	}
	if err := AdjustBookInventory(ctx, tx, current.BookID, -1, availableDelta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing copy deletion: %w", err)
	}
	return nil
}

// availabilityDelta is the change to available_copies when a copy moves
// between statuses.
func availabilityDelta(from, to string) int {
	switch {
	case model.CountsAvailable(from) && !model.CountsAvailable(to):
		return -1
	case !model.CountsAvailable(from) && model.CountsAvailable(to):
		return 1
	}
	return 0
}
