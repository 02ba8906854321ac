package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/vhnguyen/libra/internal/store"
)

// LibrariansHandler handles staff profile endpoints.
type LibrariansHandler struct {
	DB *sql.DB
}

type librarianRequest struct {
	FullName  string     `json:"full_name" validate:"required"`
	Phone     string     `json:"phone"`
	DOB       *time.Time `json:"dob"`
	Address   string     `json:"address"`
	Position  string     `json:"position"`
	StartDate *time.Time `json:"start_date"`
}

// List handles GET /api/v1/librarians.
func (h *LibrariansHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := r.URL.Query().Get("search")

	librarians, total, err := store.ListLibrarians(r.Context(), h.DB, search, page, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list librarians")
		return
	}
	jsonResponse(w, http.StatusOK, paginate(librarians, page, limit, total))
}

// Get handles GET /api/v1/librarians/{id} and includes account info.
func (h *LibrariansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "librarian")
	if !ok {
		return
	}

	librarian, err := store.GetLibrarianDetail(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get librarian")
		return
	}
	if librarian == nil {
		jsonError(w, http.StatusNotFound, "librarian not found")
		return
	}
	jsonResponse(w, http.StatusOK, librarian)
}

// Update handles PUT /api/v1/librarians/{id}.
func (h *LibrariansHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "librarian")
	if !ok {
		return
	}

	var req librarianRequest
	if !decodeValid(w, r, &req) {
		return
	}

	librarian, err := store.UpdateLibrarian(r.Context(), h.DB, id, store.LibrarianInput{
		FullName:  req.FullName,
		Phone:     req.Phone,
		DOB:       req.DOB,
		Address:   req.Address,
		Position:  req.Position,
		StartDate: req.StartDate,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update librarian")
		return
	}
	if librarian == nil {
		jsonError(w, http.StatusNotFound, "librarian not found")
		return
	}

	slog.Info("librarian updated", "id", id)
	jsonResponse(w, http.StatusOK, librarian)
}

// Delete handles DELETE /api/v1/librarians/{id}. Deleting the linked account
// takes the staff profile with it.
func (h *LibrariansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "librarian")
	if !ok {
		return
	}

	librarian, err := store.GetLibrarian(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get librarian")
		return
	}
	if librarian == nil {
		jsonError(w, http.StatusNotFound, "librarian not found")
		return
	}

	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == librarian.UserID {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	deleted, err := store.DeleteUser(r.Context(), h.DB, librarian.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete librarian")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "librarian account not found")
		return
	}

	slog.Info("librarian deleted", "id", id, "user", librarian.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "librarian deleted"})
}
