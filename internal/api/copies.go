package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

// CopiesHandler handles physical-copy endpoints.
type CopiesHandler struct {
	DB *sql.DB
}

type copyRequest struct {
	Barcode  string `json:"barcode" validate:"required"`
	Status   string `json:"status"`
	Note     string `json:"note"`
	Location string `json:"location"`
}

type copyStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// Create handles POST /api/v1/book-copies/books/{bookId}.
func (h *CopiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "bookId", "book")
	if !ok {
		return
	}

	var req copyRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Status != "" && !model.ValidCopyStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid copy status")
		return
	}

	copy, err := store.AddCopy(r.Context(), h.DB, bookID, store.CopyInput{
		Barcode:  req.Barcode,
		Status:   req.Status,
		Note:     req.Note,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			jsonError(w, http.StatusNotFound, "book not found")
			return
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to add copy")
		return
	}

	slog.Info("copy added", "id", copy.ID, "book", bookID, "barcode", copy.Barcode)
	jsonResponse(w, http.StatusCreated, copy)
}

// ListByBook handles GET /api/v1/book-copies/books/{bookId}.
func (h *CopiesHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "bookId", "book")
	if !ok {
		return
	}

	copies, err := store.ListCopiesByBook(r.Context(), h.DB, bookID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list copies")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"data": copies})
}

// Get handles GET /api/v1/book-copies/{id}.
func (h *CopiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "copy")
	if !ok {
		return
	}

	copy, err := store.GetCopy(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get copy")
		return
	}
	if copy == nil {
		jsonError(w, http.StatusNotFound, "copy not found")
		return
	}
	jsonResponse(w, http.StatusOK, copy)
}

// UpdateStatus handles PATCH /api/v1/book-copies/{id}/status. Availability
// counters on the owning book follow the status change.
func (h *CopiesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "copy")
	if !ok {
		return
	}

	var req copyStatusRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !model.ValidCopyStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid copy status")
		return
	}

	copy, err := store.UpdateCopyStatus(r.Context(), h.DB, id, req.Status, req.Note)
	if err != nil {
		if errors.Is(err, store.ErrCopyNotFound) {
			jsonError(w, http.StatusNotFound, "copy not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to update copy")
		return
	}

	slog.Info("copy status updated", "id", id, "status", req.Status)
	jsonResponse(w, http.StatusOK, copy)
}

// Delete handles DELETE /api/v1/book-copies/{id}.
func (h *CopiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "copy")
	if !ok {
		return
	}

	if err := store.DeleteCopy(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrCopyNotFound) {
			jsonError(w, http.StatusNotFound, "copy not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to delete copy")
		return
	}

	slog.Info("copy deleted", "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "copy deleted"})
}
