package loan

import "errors"

// Workflow failures. Each precondition fails with its own sentinel so the API
// layer can report the exact reason and pick the right status code.
var (
	ErrReaderNotFound     = errors.New("reader not found")
	ErrCardInactive       = errors.New("reader card is locked or expired")
	ErrAccountLocked      = errors.New("linked user account is locked")
	ErrHasOverdue         = errors.New("reader has overdue books")
	ErrStaffNotFound      = errors.New("staff not found")
	ErrStaffNotAuthorized = errors.New("staff is not a librarian")
	ErrCopyNotFound       = errors.New("copy not found")
	ErrCopyNotAvailable   = errors.New("copy is not available")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrAlreadyReturned    = errors.New("loan already fully returned")
	ErrNoItems            = errors.New("must borrow at least one copy")
)

// IsNotFound reports whether err is an absent-entity failure (as opposed to a
// state conflict).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReaderNotFound) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrCopyNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}
