package model

import "time"

// Loan represents one borrow transaction covering one or more copies.
// Loans are never deleted; returns mutate them in place.
type Loan struct {
	ID         int64      `json:"id"`
	LoanCode   string     `json:"loan_code"`
	Reader     LoanReader `json:"reader"`
	StaffID    int64      `json:"staff_id"`
	Note       string     `json:"note,omitempty"`
	Items      []LoanItem `json:"items"`
	DueDate    time.Time  `json:"due_date"`
	Status     string     `json:"status"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LoanReader is the reader identity snapshotted onto a loan at borrow time.
type LoanReader struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CardNumber string `json:"card_number"`
}

// LoanItem is one copy's borrow/return sub-record within a loan.
// Barcode and title are snapshots taken at borrow time.
type LoanItem struct {
	ID                int64      `json:"id"`
	CopyID            int64      `json:"book_copy_id"`
	BookID            int64      `json:"book_id"`
	Barcode           string     `json:"barcode"`
	Title             string     `json:"title"`
	BorrowedAt        time.Time  `json:"borrowed_at"`
	IsReturned        bool       `json:"is_returned"`
	ReturnedAt        *time.Time `json:"returned_at,omitempty"`
	ConditionOnReturn string     `json:"condition_on_return,omitempty"`
	ReturnStaffID     *int64     `json:"return_staff_id,omitempty"`
	PenaltyAmount     float64    `json:"penalty_amount"`
}

// Loan statuses. A loan is RETURNED iff every item is returned.
const (
	LoanStatusOngoing  = "ONGOING"
	LoanStatusReturned = "RETURNED"
)

// Return conditions.
const (
	ConditionGood    = "GOOD"
	ConditionDamaged = "DAMAGED"
	ConditionLost    = "LOST"
)

// ValidCondition reports whether c is a known return condition.
func ValidCondition(c string) bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

// FullyReturned reports whether every item on the loan has been returned.
func (l *Loan) FullyReturned() bool {
	for _, item := range l.Items {
		if !item.IsReturned {
			return false
		}
	}
	return true
}
