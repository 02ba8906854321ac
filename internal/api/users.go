package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

// UsersHandler handles account management and registration endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type updateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=ACTIVE LOCKED"`
}

type registerRequest struct {
	Username string     `json:"username" validate:"required,min=3"`
	Password string     `json:"password" validate:"required"`
	FullName string     `json:"full_name" validate:"required"`
	Email    string     `json:"email" validate:"omitempty,email"`
	Phone    string     `json:"phone"`
	DOB      *time.Time `json:"dob"`
	Gender   string     `json:"gender"`
	Address  string     `json:"address"`
}

type registerStaffRequest struct {
	registerRequest
	Position  string     `json:"position"`
	StartDate *time.Time `json:"start_date"`
}

type registerUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN LIBRARIAN READER"`
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := r.URL.Query().Get("search")
	role := r.URL.Query().Get("role")

	users, total, err := store.ListUsers(r.Context(), h.DB, search, role, page, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	jsonResponse(w, http.StatusOK, paginate(users, page, limit, total))
}

// Get handles GET /api/v1/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/v1/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, req.FullName, req.Status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	slog.Info("user updated", "id", id, "status", req.Status)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}. The account is soft-deleted and
// locked, and any linked reader or staff profile goes with it.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	deleted, err := store.DeleteUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	slog.Info("user deleted", "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// Register handles POST /api/v1/users/register. Creates a bare account with
// no reader or staff profile; the role defaults to READER.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = model.RoleReader
	}

	user, err := store.Register(r.Context(), h.DB, req.Username, req.Password, req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	slog.Info("user registered", "username", req.Username, "role", req.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// RegisterReader handles POST /api/v1/users/register-reader.
func (h *UsersHandler) RegisterReader(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, "email is required")
		return
	}

	reg, err := store.RegisterReader(r.Context(), h.DB, store.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		DOB:      req.DOB,
		Gender:   req.Gender,
		Address:  req.Address,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to register reader")
		return
	}

	slog.Info("reader registered", "username", req.Username, "card", reg.Reader.Card.Number)
	jsonResponse(w, http.StatusCreated, reg)
}

// RegisterStaff handles POST /api/v1/users/register-staff.
func (h *UsersHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req registerStaffRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := store.RegisterStaff(r.Context(), h.DB, store.StaffInput{
		RegisterInput: store.RegisterInput{
			Username: req.Username,
			Password: req.Password,
			FullName: req.FullName,
			Email:    req.Email,
			Phone:    req.Phone,
			DOB:      req.DOB,
			Gender:   req.Gender,
			Address:  req.Address,
		},
		Position:  req.Position,
		StartDate: req.StartDate,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to register staff")
		return
	}

	slog.Info("staff registered", "username", req.Username, "code", reg.Staff.EmployeeCode)
	jsonResponse(w, http.StatusCreated, reg)
}
