package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vhnguyen/libra/internal/model"
)

// Registration is the combined result of a reader or staff registration.
type Registration struct {
	Account *model.User      `json:"account"`
	Reader  *model.Reader    `json:"profile,omitempty"`
	Staff   *model.Librarian `json:"staff_profile,omitempty"`
}

// RegisterInput carries the fields shared by all registration flows.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Phone    string
	DOB      *time.Time
	Gender   string
	Address  string
}

// Register creates a bare user account with a hashed password.
func Register(ctx context.Context, db *sql.DB, username, password, fullName, role string) (*model.User, error) {
	existing, err := GetUserByUsername(ctx, db, username)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.DeletedAt == nil {
		return nil, fmt.Errorf("username %s %w", username, ErrAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return CreateUser(ctx, db, username, string(hash), fullName, role, model.UserStatusActive)
}

// RegisterReader creates a READER account plus its reader profile. The two
// writes are sequential; if the profile step fails, the freshly created
// account is hard-deleted as compensation. An email matching a soft-deleted
// reader restores the old account and profile under their original ids.
func RegisterReader(ctx context.Context, db *sql.DB, in RegisterInput) (*Registration, error) {
	existing, err := GetReaderByEmail(ctx, db, in.Email)
	if err != nil {
		return nil, err
	}

	profile := ReaderInput{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		DOB:      in.DOB,
		Gender:   in.Gender,
		Address:  in.Address,
	}

	if existing != nil && existing.DeletedAt != nil {
		if existing.UserID == nil {
			return nil, fmt.Errorf("old reader profile has no account to restore")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}

		account, err := RestoreUser(ctx, db, *existing.UserID, in.Username, string(hash), in.FullName)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, fmt.Errorf("old account not found to restore")
		}

		reader, err := CreateReader(ctx, db, profile, &account.ID)
		if err != nil {
			return nil, err
		}
		return &Registration{Account: account, Reader: reader}, nil
	}

	account, err := Register(ctx, db, in.Username, in.Password, in.FullName, model.RoleReader)
	if err != nil {
		return nil, err
	}

	reader, err := CreateReader(ctx, db, profile, &account.ID)
	if err != nil {
		// Roll back the half-finished registration.
		if derr := HardDeleteUser(ctx, db, account.ID); derr != nil {
			return nil, fmt.Errorf("creating reader profile: %w (account cleanup failed: %v)", err, derr)
		}
		return nil, err
	}

	return &Registration{Account: account, Reader: reader}, nil
}

// StaffInput carries the extra fields for staff registration.
type StaffInput struct {
	RegisterInput
	Position  string
	StartDate *time.Time
}

// RegisterStaff creates a LIBRARIAN account plus its staff profile, with the
// same compensation as RegisterReader.
func RegisterStaff(ctx context.Context, db *sql.DB, in StaffInput) (*Registration, error) {
	account, err := Register(ctx, db, in.Username, in.Password, in.FullName, model.RoleLibrarian)
	if err != nil {
		return nil, err
	}

	staff, err := CreateLibrarian(ctx, db, account.ID, LibrarianInput{
		FullName:  in.FullName,
		Phone:     in.Phone,
		DOB:       in.DOB,
		Address:   in.Address,
		Position:  in.Position,
		StartDate: in.StartDate,
	})
	if err != nil {
		if derr := HardDeleteUser(ctx, db, account.ID); derr != nil {
			return nil, fmt.Errorf("creating staff profile: %w (account cleanup failed: %v)", err, derr)
		}
		return nil, err
	}

	return &Registration{Account: account, Staff: staff}, nil
}
