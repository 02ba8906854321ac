package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vhnguyen/libra/internal/model"
)

const userColumns = `id, username, password_hash, full_name, role, status, created_at, updated_at, deleted_at`

// CreateUser creates a new account. The password must already be hashed.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, fullName, role, status string) (*model.User, error) {
	if status == "" {
		status = model.UserStatusActive
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, full_name, role, status) VALUES (?, ?, ?, ?, ?)`,
		username, passwordHash, fullName, role, status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a non-deleted user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username (including soft-deleted, so
// callers can distinguish a dead account from an unknown one).
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NULL DESC LIMIT 1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns a page of non-deleted users, newest first. Search matches
// username and full name case-insensitively; role filters exactly.
func ListUsers(ctx context.Context, db *sql.DB, search, role string, page, limit int) ([]model.User, int, error) {
	where := ` WHERE deleted_at IS NULL`
	var args []any

	if search != "" {
		where += ` AND (username LIKE '%' || ? || '%' OR full_name LIKE '%' || ? || '%')`
		args = append(args, search, search)
	}
	if role != "" {
		where += ` AND role = ?`
		args = append(args, role)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Status,
			&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUser updates a user's mutable profile fields. Username, password, and
// role are managed through dedicated paths.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, fullName, status string) (*model.User, error) {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		fullName, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return GetUser(ctx, db, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// RestoreUser reactivates a soft-deleted account under its old id with a new
// password hash and ACTIVE status.
func RestoreUser(ctx context.Context, db *sql.DB, id int64, username, passwordHash, fullName string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, full_name = ?,
		     status = ?, deleted_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		username, passwordHash, fullName, model.UserStatusActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("restoring user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, nil
	}
	return GetUser(ctx, db, id)
}

// DeleteUser soft-deletes a user, locks the account, and cascades the soft
// delete to any linked reader and librarian profiles, in one transaction.
// Returns false if no active user matched.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP, status = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		model.UserStatusLocked, id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return false, nil
	}

	if err := DeleteReaderByUserID(ctx, tx, id); err != nil {
		return false, err
	}
	if err := DeleteLibrarianByUserID(ctx, tx, id); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing user deletion: %w", err)
	}
	return true, nil
}

// HardDeleteUser physically removes a user row. Only used to compensate for
// failed multi-step registrations.
func HardDeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("hard-deleting user: %w", err)
	}
	return nil
}
