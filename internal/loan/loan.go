// Package loan implements the borrow/return workflow: the cross-entity
// validation chain and the inventory mutations that a loan applies to
// readers, copies, and books.
package loan

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

// CreateRequest is the input to Create.
type CreateRequest struct {
	ReaderID int64
	StaffID  int64
	CopyIDs  []int64
	Note     string
}

// ReturnDetail describes one copy being handed back.
type ReturnDetail struct {
	CopyID        int64
	Condition     string
	StaffID       int64
	PenaltyAmount float64
}

// borrowedCopy is a requested copy joined with the policy of its book.
type borrowedCopy struct {
	id      int64
	bookID  int64
	barcode string
	title   string
}

// Create validates a borrow request and, if every precondition holds, records
// the loan and applies all inventory effects in a single transaction. The due
// date is now plus the most restrictive max_days across the requested books.
func Create(ctx context.Context, db *sql.DB, req CreateRequest) (*model.Loan, error) {
	copyIDs := dedup(req.CopyIDs)
	if len(copyIDs) == 0 {
		return nil, ErrNoItems
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// Reader must exist with an ACTIVE card.
	var readerName, cardNumber, cardStatus string
	var linkedUserID *int64
	err = tx.QueryRowContext(ctx,
		`SELECT full_name, card_number, card_status, user_id
		 FROM readers WHERE id = ? AND deleted_at IS NULL`, req.ReaderID,
	).Scan(&readerName, &cardNumber, &cardStatus, &linkedUserID)
	if err == sql.ErrNoRows {
		return nil, ErrReaderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking reader: %w", err)
	}
	if cardStatus != model.CardStatusActive {
		return nil, fmt.Errorf("%w (card is %s)", ErrCardInactive, cardStatus)
	}

	// A locked linked account blocks borrowing; readers without an account
	// are only gated by the card.
	if linkedUserID != nil {
		var accountStatus string
		err = tx.QueryRowContext(ctx,
			`SELECT status FROM users WHERE id = ? AND deleted_at IS NULL`, *linkedUserID,
		).Scan(&accountStatus)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("checking linked account: %w", err)
		}
		if err == nil && accountStatus == model.UserStatusLocked {
			return nil, ErrAccountLocked
		}
	}

	// Any overdue loan blocks all further borrowing.
	overdue, err := store.HasOverdueLoans(ctx, tx, req.ReaderID, now)
	if err != nil {
		return nil, err
	}
	if overdue {
		return nil, ErrHasOverdue
	}

	// Staff must be an existing librarian.
	var staffRole string
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id = ? AND deleted_at IS NULL`, req.StaffID,
	).Scan(&staffRole)
	if err == sql.ErrNoRows {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking staff: %w", err)
	}
	if staffRole != model.RoleLibrarian {
		return nil, ErrStaffNotAuthorized
	}

	// Every requested copy must be AVAILABLE. The shortest policy among the
	// requested books governs the whole loan.
	var copies []borrowedCopy
	minDays := 0
	for _, copyID := range copyIDs {
		var c borrowedCopy
		var status string
		var maxDays int
		err = tx.QueryRowContext(ctx,
			`SELECT c.id, c.book_id, c.barcode, c.status, b.title, b.max_days
			 FROM copies c
			 JOIN books b ON b.id = c.book_id
			 WHERE c.id = ? AND c.deleted_at IS NULL`, copyID,
		).Scan(&c.id, &c.bookID, &c.barcode, &status, &c.title, &maxDays)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w (id %d)", ErrCopyNotFound, copyID)
		}
		if err != nil {
			return nil, fmt.Errorf("checking copy %d: %w", copyID, err)
		}
		if status != model.CopyStatusAvailable {
			return nil, fmt.Errorf("%w (barcode %s is %s)", ErrCopyNotAvailable, c.barcode, status)
		}

		if maxDays <= 0 {
			maxDays = model.DefaultMaxDays
		}
		if minDays == 0 || maxDays < minDays {
			minDays = maxDays
		}
		copies = append(copies, c)
	}

	dueDate := now.AddDate(0, 0, minDays)

	// Loan codes are millisecond timestamps; two loans in the same
	// millisecond bump the counter until the code is free.
	var loanID int64
	millis := now.UnixMilli()
	code := ""
	for {
		code = fmt.Sprintf("LN%d", millis)
		result, err := tx.ExecContext(ctx,
			`INSERT INTO loans (loan_code, reader_id, reader_name, reader_card, staff_id, note, due_date, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			code, req.ReaderID, readerName, cardNumber, req.StaffID, req.Note, dueDate, model.LoanStatusOngoing,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: loans.loan_code") {
				millis++
				continue
			}
			return nil, fmt.Errorf("creating loan: %w", err)
		}
		loanID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting loan id: %w", err)
		}
		break
	}

	perBook := make(map[int64]int)
	for _, c := range copies {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO loan_items (loan_id, copy_id, book_id, barcode, title, borrowed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			loanID, c.id, c.bookID, c.barcode, c.title, now,
		)
		if err != nil {
			return nil, fmt.Errorf("creating loan item: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE copies SET status = ?, note = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.CopyStatusBorrowed, "borrowed via "+code, c.id,
		)
		if err != nil {
			return nil, fmt.Errorf("marking copy borrowed: %w", err)
		}

		perBook[c.bookID]++
	}

	for bookID, count := range perBook {
		if err := store.AdjustBookInventory(ctx, tx, bookID, 0, -count); err != nil {
			return nil, err
		}
	}

	if err := store.AdjustReaderLoanCount(ctx, tx, req.ReaderID, len(copies)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing loan: %w", err)
	}

	return store.GetLoan(ctx, db, loanID)
}

// Return processes returned copies against a loan. Details that don't match
// an unreturned item are skipped without error, so partial and retried
// submissions are safe. The loan closes when its last item comes back.
func Return(ctx context.Context, db *sql.DB, loanID int64, details []ReturnDetail) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	l, err := store.GetLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLoanNotFound
	}
	if l.Status == model.LoanStatusReturned {
		return nil, ErrAlreadyReturned
	}

	now := time.Now().UTC()
	returnedCount := 0

	for _, detail := range details {
		var staffCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE id = ? AND deleted_at IS NULL`, detail.StaffID,
		).Scan(&staffCount)
		if err != nil {
			return nil, fmt.Errorf("checking return staff: %w", err)
		}
		if staffCount == 0 {
			return nil, fmt.Errorf("%w (id %d)", ErrStaffNotFound, detail.StaffID)
		}

		condition := detail.Condition
		if condition == "" {
			condition = model.ConditionGood
		}

		// First unreturned item for this copy; nothing matching means the
		// detail was already handled (or never borrowed here) and is skipped.
		item := matchItem(l.Items, detail.CopyID)
		if item == nil {
			continue
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE loan_items SET is_returned = 1, returned_at = ?, condition_on_return = ?,
			     return_staff_id = ?, penalty_amount = ?
			 WHERE id = ?`,
			now, condition, detail.StaffID, detail.PenaltyAmount, item.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating loan item: %w", err)
		}
		item.IsReturned = true

		copyStatus := model.CopyStatusDamaged
		if condition == model.ConditionGood {
			copyStatus = model.CopyStatusAvailable
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE copies SET status = ?, note = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			copyStatus, "returned via "+l.LoanCode, item.CopyID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating copy status: %w", err)
		}

		// TODO: a DAMAGED return still counts toward available_copies even
		// though the copy itself is out of circulation; revisit the policy.
		if condition != model.ConditionLost {
			if err := store.AdjustBookInventory(ctx, tx, item.BookID, 0, 1); err != nil {
				return nil, err
			}
		}

		returnedCount++
	}

	if l.FullyReturned() {
		_, err = tx.ExecContext(ctx,
			`UPDATE loans SET status = ?, returned_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			model.LoanStatusReturned, now, loanID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE loans SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, loanID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("updating loan: %w", err)
	}

	if returnedCount > 0 {
		if err := store.AdjustReaderLoanCount(ctx, tx, l.Reader.ID, -returnedCount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	return store.GetLoan(ctx, db, loanID)
}

// matchItem finds the first unreturned item for a copy.
func matchItem(items []model.LoanItem, copyID int64) *model.LoanItem {
	for i := range items {
		if items[i].CopyID == copyID && !items[i].IsReturned {
			return &items[i]
		}
	}
	return nil
}

// dedup collapses duplicate ids, keeping first-seen order.
func dedup(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
