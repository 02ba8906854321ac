package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vhnguyen/libra/internal/model"
)

// Execer is the subset of *sql.DB and *sql.Tx needed for counter updates,
// so workflows can adjust inventory inside their own transactions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BookInput carries the caller-supplied fields for creating or updating a book.
type BookInput struct {
	Title         string
	ISBN          string
	Authors       []string
	CategoryCode  string
	CategoryName  string
	Publisher     string
	PublishedYear int
	Policy        model.Policy
}

const bookColumns = `id, title, isbn, authors, category_code, category_name,
	publisher, published_year, max_days, max_renewals, allow_home_loan,
	total_copies, available_copies, cover_mime, created_at, updated_at, deleted_at`

// CreateBook creates a book, or restores a soft-deleted book that has the
// same ISBN (the row keeps its id and inventory counters).
func CreateBook(ctx context.Context, db *sql.DB, in BookInput) (*model.Book, error) {
	existing, err := GetBookByISBN(ctx, db, in.ISBN)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.DeletedAt == nil {
			return nil, fmt.Errorf("book with ISBN %s %w", in.ISBN, ErrAlreadyExists)
		}
		return restoreBook(ctx, db, existing.ID, in)
	}

	authors, err := json.Marshal(authorsOrEmpty(in.Authors))
	if err != nil {
		return nil, fmt.Errorf("encoding authors: %w", err)
	}

	maxDays := in.Policy.MaxDays
	if maxDays <= 0 {
		maxDays = model.DefaultMaxDays
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO books (title, isbn, authors, category_code, category_name,
		     publisher, published_year, max_days, max_renewals, allow_home_loan)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.ISBN, string(authors), in.CategoryCode, in.CategoryName,
		in.Publisher, in.PublishedYear, maxDays, in.Policy.MaxRenewals, in.Policy.AllowHomeLoan,
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, db, id)
}

// restoreBook reactivates a soft-deleted book under the same id with the new data.
func restoreBook(ctx context.Context, db *sql.DB, id int64, in BookInput) (*model.Book, error) {
	authors, err := json.Marshal(authorsOrEmpty(in.Authors))
	if err != nil {
		return nil, fmt.Errorf("encoding authors: %w", err)
	}

	maxDays := in.Policy.MaxDays
	if maxDays <= 0 {
		maxDays = model.DefaultMaxDays
	}

	_, err = db.ExecContext(ctx,
		`UPDATE books SET title = ?, isbn = ?, authors = ?, category_code = ?,
		     category_name = ?, publisher = ?, published_year = ?, max_days = ?,
		     max_renewals = ?, allow_home_loan = ?, deleted_at = NULL,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		in.Title, in.ISBN, string(authors), in.CategoryCode, in.CategoryName,
		in.Publisher, in.PublishedYear, maxDays, in.Policy.MaxRenewals, in.Policy.AllowHomeLoan,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("restoring book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a non-deleted book by ID.
func GetBook(ctx context.Context, db *sql.DB, id int64) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ? AND deleted_at IS NULL`, id)
	return scanBook(row)
}

// GetBookByISBN returns a book by ISBN, including soft-deleted books so that
// creation can restore them.
func GetBookByISBN(ctx context.Context, db *sql.DB, isbn string) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ? ORDER BY deleted_at IS NULL DESC LIMIT 1`, isbn)
	return scanBook(row)
}

// ListBooks returns a page of non-deleted books, newest first. Search matches
// title and author names case-insensitively; category filters by exact code.
func ListBooks(ctx context.Context, db *sql.DB, search, category string, page, limit int) ([]model.Book, int, error) {
	where := ` WHERE deleted_at IS NULL`
	var args []any

	if search != "" {
		where += ` AND (title LIKE '%' || ? || '%' OR authors LIKE '%' || ? || '%')`
		args = append(args, search, search)
	}
	if category != "" {
		where += ` AND category_code = ?`
		args = append(args, category)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting books: %w", err)
	}

	query := `SELECT ` + bookColumns + ` FROM books` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *b)
	}
	return books, total, rows.Err()
}

// UpdateBook replaces a book's descriptive fields and lending policy.
// Inventory counters and cover are managed elsewhere.
func UpdateBook(ctx context.Context, db *sql.DB, id int64, in BookInput) (*model.Book, error) {
	authors, err := json.Marshal(authorsOrEmpty(in.Authors))
	if err != nil {
		return nil, fmt.Errorf("encoding authors: %w", err)
	}

	maxDays := in.Policy.MaxDays
	if maxDays <= 0 {
		maxDays = model.DefaultMaxDays
	}

	_, err = db.ExecContext(ctx,
		`UPDATE books SET title = ?, authors = ?, category_code = ?, category_name = ?,
		     publisher = ?, published_year = ?, max_days = ?, max_renewals = ?,
		     allow_home_loan = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Title, string(authors), in.CategoryCode, in.CategoryName,
		in.Publisher, in.PublishedYear, maxDays, in.Policy.MaxRenewals, in.Policy.AllowHomeLoan,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating book: %w", err)
	}

	return GetBook(ctx, db, id)
}

// DeleteBook soft-deletes a book. Returns false if no active book matched.
func DeleteBook(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting book: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// AdjustBookInventory applies atomic increments to a book's derived copy
// counters. Deltas may be negative.
func AdjustBookInventory(ctx context.Context, e Execer, bookID int64, totalDelta, availableDelta int) error {
	_, err := e.ExecContext(ctx,
		`UPDATE books SET total_copies = total_copies + ?,
		     available_copies = available_copies + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		totalDelta, availableDelta, bookID,
	)
	if err != nil {
		return fmt.Errorf("adjusting book inventory: %w", err)
	}
	return nil
}

// SetBookCover stores a book's processed cover image.
func SetBookCover(ctx context.Context, db *sql.DB, id int64, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	return nil
}

// GetBookCover returns a book's cover image data and MIME type.
func GetBookCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return data, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row *sql.Row) (*model.Book, error) {
	b, err := scanBookRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func scanBookRow(s rowScanner) (*model.Book, error) {
	b := &model.Book{}
	var authors string
	var categoryCode, categoryName, publisher, coverMime sql.NullString
	var publishedYear sql.NullInt64

	err := s.Scan(&b.ID, &b.Title, &b.ISBN, &authors, &categoryCode, &categoryName,
		&publisher, &publishedYear, &b.LendingPolicy.MaxDays, &b.LendingPolicy.MaxRenewals,
		&b.LendingPolicy.AllowHomeLoan, &b.Inventory.TotalCopies, &b.Inventory.AvailableCopies,
		&coverMime, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning book: %w", err)
	}

	if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors: %w", err)
	}
	b.CategoryCode = categoryCode.String
	b.CategoryName = categoryName.String
	b.Publisher = publisher.String
	b.PublishedYear = int(publishedYear.Int64)
	b.CoverMime = coverMime.String
	return b, nil
}

func authorsOrEmpty(authors []string) []string {
	if authors == nil {
		return []string{}
	}
	return authors
}
