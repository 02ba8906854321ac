package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vhnguyen/libra/internal/model"
)

// Querier is the query subset shared by *sql.DB and *sql.Tx, so loan reads
// can run both standalone and inside workflow transactions.
type Querier interface {
	Execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const loanColumns = `id, loan_code, reader_id, reader_name, reader_card,
	staff_id, note, due_date, status, returned_at, created_at, updated_at`

// GetLoan returns a loan with its items, or nil if it doesn't exist.
func GetLoan(ctx context.Context, q Querier, id int64) (*model.Loan, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)

	l, err := scanLoanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := loanItems(ctx, q, l.ID)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return l, nil
}

// ListLoansByReader returns a reader's loans, newest first. With activeOnly
// set, only ONGOING loans are returned.
func ListLoansByReader(ctx context.Context, q Querier, readerID int64, activeOnly bool) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE reader_id = ?`
	args := []any{readerID}
	if activeOnly {
		query += ` AND status = ?`
		args = append(args, model.LoanStatusOngoing)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoanRow(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range loans {
		items, err := loanItems(ctx, q, loans[i].ID)
		if err != nil {
			return nil, err
		}
		loans[i].Items = items
	}
	return loans, nil
}

// HasOverdueLoans reports whether the reader holds any ONGOING loan whose due
// date has passed. This blocks all further borrowing, not just the overdue
// titles.
func HasOverdueLoans(ctx context.Context, q Querier, readerID int64, now time.Time) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE reader_id = ? AND status = ? AND due_date < ?`,
		readerID, model.LoanStatusOngoing, now,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking overdue loans: %w", err)
	}
	return count > 0, nil
}

// loanItems returns a loan's items in borrow order.
func loanItems(ctx context.Context, q Querier, loanID int64) ([]model.LoanItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, copy_id, book_id, barcode, title, borrowed_at, is_returned,
		        returned_at, condition_on_return, return_staff_id, penalty_amount
		 FROM loan_items WHERE loan_id = ? ORDER BY id`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loan items: %w", err)
	}
	defer rows.Close()

	var items []model.LoanItem
	for rows.Next() {
		var item model.LoanItem
		var condition sql.NullString
		var returnedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.CopyID, &item.BookID, &item.Barcode, &item.Title,
			&item.BorrowedAt, &item.IsReturned, &returnedAt, &condition,
			&item.ReturnStaffID, &item.PenaltyAmount); err != nil {
			return nil, fmt.Errorf("scanning loan item: %w", err)
		}
		item.ConditionOnReturn = condition.String
		if returnedAt.Valid {
			item.ReturnedAt = &returnedAt.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanLoanRow(s rowScanner) (*model.Loan, error) {
	l := &model.Loan{}
	var note sql.NullString
	var returnedAt sql.NullTime

	err := s.Scan(&l.ID, &l.LoanCode, &l.Reader.ID, &l.Reader.Name, &l.Reader.CardNumber,
		&l.StaffID, &note, &l.DueDate, &l.Status, &returnedAt, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning loan: %w", err)
	}

	l.Note = note.String
	if returnedAt.Valid {
		l.ReturnedAt = &returnedAt.Time
	}
	return l, nil
}
