package model

import "time"

// Librarian represents a staff member's employment profile, linked to the
// user account the staff member logs in with.
type Librarian struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	EmployeeCode string     `json:"employee_code"`
	FullName     string     `json:"full_name"`
	Phone        string     `json:"phone,omitempty"`
	DOB          *time.Time `json:"dob,omitempty"`
	Address      string     `json:"address,omitempty"`
	Position     string     `json:"position,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// AccountInfo is populated on detail lookups.
	AccountInfo *AccountInfo `json:"account_info,omitempty"`
}

// AccountInfo is the subset of a user account exposed on staff detail views.
type AccountInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}
