package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    full_name     TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'READER' CHECK (role IN ('ADMIN', 'LIBRARIAN', 'READER')),
    status        TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'LOCKED')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS books (
    id               INTEGER PRIMARY KEY,
    title            TEXT NOT NULL,
    isbn             TEXT NOT NULL,
    authors          TEXT NOT NULL DEFAULT '[]',
    category_code    TEXT,
    category_name    TEXT,
    publisher        TEXT,
    published_year   INTEGER,
    max_days         INTEGER NOT NULL DEFAULT 14,
    max_renewals     INTEGER NOT NULL DEFAULT 0,
    allow_home_loan  INTEGER NOT NULL DEFAULT 1,
    total_copies     INTEGER NOT NULL DEFAULT 0,
    available_copies INTEGER NOT NULL DEFAULT 0,
    cover            BLOB,
    cover_mime       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn_active
    ON books(isbn) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS copies (
    id         INTEGER PRIMARY KEY,
    book_id    INTEGER NOT NULL REFERENCES books(id),
    barcode    TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'AVAILABLE' CHECK (status IN ('AVAILABLE', 'BORROWED', 'LOST', 'DAMAGED')),
    note       TEXT,
    location   TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_copies_barcode_active
    ON copies(barcode) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS readers (
    id               INTEGER PRIMARY KEY,
    full_name        TEXT NOT NULL,
    email            TEXT NOT NULL,
    phone            TEXT,
    dob              DATETIME,
    gender           TEXT,
    address          TEXT,
    card_number      TEXT NOT NULL,
    card_issue_date  DATETIME NOT NULL,
    card_expiry_date DATETIME NOT NULL,
    card_status      TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (card_status IN ('ACTIVE', 'LOCKED', 'EXPIRED')),
    card_type        TEXT NOT NULL DEFAULT 'STUDENT',
    current_loans    INTEGER NOT NULL DEFAULT 0,
    user_id          INTEGER REFERENCES users(id),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_readers_email_active
    ON readers(email) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_readers_card_number
    ON readers(card_number);

CREATE TABLE IF NOT EXISTS librarians (
    id            INTEGER PRIMARY KEY,
    user_id       INTEGER NOT NULL REFERENCES users(id),
    employee_code TEXT NOT NULL,
    full_name     TEXT NOT NULL,
    phone         TEXT,
    dob           DATETIME,
    address       TEXT,
    position      TEXT,
    start_date    DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_librarians_employee_code
    ON librarians(employee_code);

CREATE TABLE IF NOT EXISTS loans (
    id               INTEGER PRIMARY KEY,
    loan_code        TEXT NOT NULL UNIQUE,
    reader_id        INTEGER NOT NULL REFERENCES readers(id),
    reader_name      TEXT NOT NULL,
    reader_card      TEXT NOT NULL,
    staff_id         INTEGER NOT NULL REFERENCES users(id),
    note             TEXT,
    due_date         DATETIME NOT NULL,
    status           TEXT NOT NULL DEFAULT 'ONGOING' CHECK (status IN ('ONGOING', 'RETURNED')),
    returned_at      DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_reader_status
    ON loans(reader_id, status);

CREATE TABLE IF NOT EXISTS loan_items (
    id                  INTEGER PRIMARY KEY,
    loan_id             INTEGER NOT NULL REFERENCES loans(id),
    copy_id             INTEGER NOT NULL REFERENCES copies(id),
    book_id             INTEGER NOT NULL REFERENCES books(id),
    barcode             TEXT NOT NULL,
    title               TEXT NOT NULL,
    borrowed_at         DATETIME NOT NULL,
    is_returned         INTEGER NOT NULL DEFAULT 0,
    returned_at         DATETIME,
    condition_on_return TEXT CHECK (condition_on_return IN ('GOOD', 'DAMAGED', 'LOST')),
    return_staff_id     INTEGER REFERENCES users(id),
    penalty_amount      REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_loan_items_loan
    ON loan_items(loan_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
