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

// ReadersHandler handles reader profile endpoints.
type ReadersHandler struct {
	DB *sql.DB
}

type readerRequest struct {
	FullName   string     `json:"full_name" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Phone      string     `json:"phone"`
	DOB        *time.Time `json:"dob"`
	Gender     string     `json:"gender"`
	Address    string     `json:"address"`
	CardStatus string     `json:"card_status" validate:"omitempty,oneof=ACTIVE LOCKED EXPIRED"`
}

func (req *readerRequest) toInput() store.ReaderInput {
	return store.ReaderInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		DOB:      req.DOB,
		Gender:   req.Gender,
		Address:  req.Address,
	}
}

// List handles GET /api/v1/readers.
func (h *ReadersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := r.URL.Query().Get("search")

	readers, total, err := store.ListReaders(r.Context(), h.DB, search, page, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list readers")
		return
	}
	jsonResponse(w, http.StatusOK, paginate(readers, page, limit, total))
}

// Create handles POST /api/v1/readers. A deleted reader with the same email
// is restored with a freshly issued card.
func (h *ReadersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req readerRequest
	if !decodeValid(w, r, &req) {
		return
	}

	reader, err := store.CreateReader(r.Context(), h.DB, req.toInput(), nil)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to create reader")
		return
	}

	slog.Info("reader created", "id", reader.ID, "card", reader.Card.Number)
	jsonResponse(w, http.StatusCreated, reader)
}

// Get handles GET /api/v1/readers/{id}.
func (h *ReadersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "reader")
	if !ok {
		return
	}

	reader, err := store.GetReader(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get reader")
		return
	}
	if reader == nil {
		jsonError(w, http.StatusNotFound, "reader not found")
		return
	}
	jsonResponse(w, http.StatusOK, reader)
}

// Update handles PUT /api/v1/readers/{id}. Card status can be toggled here;
// the card number itself never changes.
func (h *ReadersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "reader")
	if !ok {
		return
	}

	var req readerRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.CardStatus == "" {
		req.CardStatus = model.CardStatusActive
	}

	reader, err := store.UpdateReader(r.Context(), h.DB, id, req.toInput(), req.CardStatus)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update reader")
		return
	}
	if reader == nil {
		jsonError(w, http.StatusNotFound, "reader not found")
		return
	}

	slog.Info("reader updated", "id", id, "card_status", req.CardStatus)
	jsonResponse(w, http.StatusOK, reader)
}

// Delete handles DELETE /api/v1/readers/{id}.
func (h *ReadersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "reader")
	if !ok {
		return
	}

	deleted, err := store.DeleteReader(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete reader")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "reader not found")
		return
	}

	slog.Info("reader deleted", "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "reader deleted"})
}
