package model

import "time"

// Reader represents a library member profile with its membership card.
type Reader struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	DOB          *time.Time `json:"dob,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Address      string     `json:"address,omitempty"`
	Card         Card       `json:"card"`
	CurrentLoans int        `json:"current_loans"`
	UserID       *int64     `json:"user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Card is a reader's membership card.
type Card struct {
	Number     string    `json:"card_number"`
	IssueDate  time.Time `json:"issue_date"`
	ExpiryDate time.Time `json:"expiry_date"`
	Status     string    `json:"status"`
	Type       string    `json:"type"`
}

// Card statuses.
const (
	CardStatusActive  = "ACTIVE"
	CardStatusLocked  = "LOCKED"
	CardStatusExpired = "EXPIRED"
)

// Card types.
const (
	CardTypeStudent = "STUDENT"
	CardTypeRegular = "REGULAR"
)

// CardValidity is how long a newly issued card stays valid.
const CardValidity = 365 * 24 * time.Hour
