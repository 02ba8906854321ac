package model

import "time"

// Book represents a catalog title. Inventory counters are derived aggregates
// maintained by the copy and loan workflows, not authoritative on their own.
type Book struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	ISBN          string     `json:"isbn"`
	Authors       []string   `json:"authors"`
	CategoryCode  string     `json:"category_code,omitempty"`
	CategoryName  string     `json:"category_name,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedYear int        `json:"published_year,omitempty"`
	LendingPolicy Policy     `json:"lending_policy"`
	Inventory     Inventory  `json:"inventory"`
	CoverMime     string     `json:"cover_mime,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Policy is a book's lending policy.
type Policy struct {
	MaxDays       int  `json:"max_days"`
	MaxRenewals   int  `json:"max_renewals"`
	AllowHomeLoan bool `json:"allow_home_loan"`
}

// Inventory holds a book's derived copy counters.
type Inventory struct {
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
}

// DefaultMaxDays applies when a book has no lending policy set.
const DefaultMaxDays = 14
