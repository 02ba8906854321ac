package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vhnguyen/libra/internal/model"
)

// LibrarianInput carries the caller-supplied profile fields for a staff member.
type LibrarianInput struct {
	FullName  string
	Phone     string
	DOB       *time.Time
	Address   string
	Position  string
	StartDate *time.Time
}

const librarianColumns = `id, user_id, employee_code, full_name, phone, dob,
	address, position, start_date, created_at, updated_at, deleted_at`

// CreateLibrarian creates a staff profile linked to a user account, with a
// freshly generated employee code.
func CreateLibrarian(ctx context.Context, db *sql.DB, userID int64, in LibrarianInput) (*model.Librarian, error) {
	code, err := nextEmployeeCode(ctx, db)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO librarians (user_id, employee_code, full_name, phone, dob, address, position, start_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, code, in.FullName, in.Phone, in.DOB, in.Address, in.Position, in.StartDate,
	)
	if err != nil {
		return nil, fmt.Errorf("creating librarian: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting librarian id: %w", err)
	}

	return GetLibrarian(ctx, db, id)
}

// nextEmployeeCode generates a sequential staff code STyyyyNNN.
func nextEmployeeCode(ctx context.Context, db *sql.DB) (string, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM librarians`).Scan(&count); err != nil {
		return "", fmt.Errorf("counting librarians: %w", err)
	}
	return fmt.Sprintf("ST%d%03d", time.Now().UTC().Year(), count+1), nil
}

// GetLibrarian returns a non-deleted staff profile by ID.
func GetLibrarian(ctx context.Context, db *sql.DB, id int64) (*model.Librarian, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+librarianColumns+` FROM librarians WHERE id = ? AND deleted_at IS NULL`, id)
	l, err := scanLibrarianRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

// GetLibrarianDetail returns a staff profile with its account info joined in.
func GetLibrarianDetail(ctx context.Context, db *sql.DB, id int64) (*model.Librarian, error) {
	l, err := GetLibrarian(ctx, db, id)
	if err != nil || l == nil {
		return l, err
	}

	account, err := GetUser(ctx, db, l.UserID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		l.AccountInfo = &model.AccountInfo{
			Username: account.Username,
			Role:     account.Role,
			Status:   account.Status,
		}
	}
	return l, nil
}

// ListLibrarians returns a page of non-deleted staff profiles, newest first.
// Search matches full name and employee code case-insensitively.
func ListLibrarians(ctx context.Context, db *sql.DB, search string, page, limit int) ([]model.Librarian, int, error) {
	where := ` WHERE deleted_at IS NULL`
	var args []any

	if search != "" {
		where += ` AND (full_name LIKE '%' || ? || '%' OR employee_code LIKE '%' || ? || '%')`
		args = append(args, search, search)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM librarians`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting librarians: %w", err)
	}

	query := `SELECT ` + librarianColumns + ` FROM librarians` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing librarians: %w", err)
	}
	defer rows.Close()

	var librarians []model.Librarian
	for rows.Next() {
		l, err := scanLibrarianRow(rows)
		if err != nil {
			return nil, 0, err
		}
		librarians = append(librarians, *l)
	}
	return librarians, total, rows.Err()
}

// UpdateLibrarian replaces a staff profile's mutable fields. The employee
// code and user link never change.
func UpdateLibrarian(ctx context.Context, db *sql.DB, id int64, in LibrarianInput) (*model.Librarian, error) {
	_, err := db.ExecContext(ctx,
		`UPDATE librarians SET full_name = ?, phone = ?, dob = ?, address = ?,
		     position = ?, start_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.FullName, in.Phone, in.DOB, in.Address, in.Position, in.StartDate, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating librarian: %w", err)
	}
	return GetLibrarian(ctx, db, id)
}

// DeleteLibrarianByUserID soft-deletes the staff profile linked to a user
// account (cascade from account deletion).
func DeleteLibrarianByUserID(ctx context.Context, e Execer, userID int64) error {
	_, err := e.ExecContext(ctx,
		`UPDATE librarians SET deleted_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("deleting librarian by user: %w", err)
	}
	return nil
}

func scanLibrarianRow(s rowScanner) (*model.Librarian, error) {
	l := &model.Librarian{}
	var phone, address, position sql.NullString
	var dob, startDate sql.NullTime

	err := s.Scan(&l.ID, &l.UserID, &l.EmployeeCode, &l.FullName, &phone, &dob,
		&address, &position, &startDate, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning librarian: %w", err)
	}

	l.Phone = phone.String
	l.Address = address.String
	l.Position = position.String
	if dob.Valid {
		l.DOB = &dob.Time
	}
	if startDate.Valid {
		l.StartDate = &startDate.Time
	}
	return l, nil
}
