package model

import "time"

// Copy represents one physical instance of a book, tracked by barcode.
type Copy struct {
	ID        int64      `json:"id"`
	BookID    int64      `json:"book_id"`
	Barcode   string     `json:"barcode"`
	Status    string     `json:"status"`
	Note      string     `json:"note,omitempty"`
	Location  string     `json:"location,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	BookTitle string `json:"book_title,omitempty"`
}

// Copy statuses. Only AVAILABLE counts toward a book's available_copies.
const (
	CopyStatusAvailable = "AVAILABLE"
	CopyStatusBorrowed  = "BORROWED"
	CopyStatusLost      = "LOST"
	CopyStatusDamaged   = "DAMAGED"
)

// ValidCopyStatus reports whether s is a known copy status.
func ValidCopyStatus(s string) bool {
	switch s {
	case CopyStatusAvailable, CopyStatusBorrowed, CopyStatusLost, CopyStatusDamaged:
		return true
	}
	return false
}

// CountsAvailable reports whether a copy in the given status counts toward
// its book's available_copies.
func CountsAvailable(status string) bool {
	return status == CopyStatusAvailable
}
