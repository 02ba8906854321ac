package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vhnguyen/libra/internal/imaging"
	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	DB *sql.DB
}

type bookRequest struct {
	Title         string   `json:"title" validate:"required"`
	ISBN          string   `json:"isbn" validate:"required"`
	Authors       []string `json:"authors"`
	CategoryCode  string   `json:"category_code"`
	CategoryName  string   `json:"category_name"`
	Publisher     string   `json:"publisher"`
	PublishedYear int      `json:"published_year"`
	MaxDays       int      `json:"max_days" validate:"min=0"`
	MaxRenewals   int      `json:"max_renewals" validate:"min=0"`
	AllowHomeLoan bool     `json:"allow_home_loan"`
}

func (req *bookRequest) toInput() store.BookInput {
	return store.BookInput{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Authors:       req.Authors,
		CategoryCode:  req.CategoryCode,
		CategoryName:  req.CategoryName,
		Publisher:     req.Publisher,
		PublishedYear: req.PublishedYear,
		Policy: model.Policy{
			MaxDays:       req.MaxDays,
			MaxRenewals:   req.MaxRenewals,
			AllowHomeLoan: req.AllowHomeLoan,
		},
	}
}

// List handles GET /api/v1/books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")

	books, total, err := store.ListBooks(r.Context(), h.DB, search, category, page, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	jsonResponse(w, http.StatusOK, paginate(books, page, limit, total))
}

// Create handles POST /api/v1/books. Re-creating a deleted ISBN restores the
// old record.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeValid(w, r, &req) {
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.toInput())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	slog.Info("book created", "id", book.ID, "isbn", book.ISBN, "title", book.Title)
	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/v1/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Update handles PUT /api/v1/books/{id}.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}

	var req bookRequest
	if !decodeValid(w, r, &req) {
		return
	}

	book, err := store.UpdateBook(r.Context(), h.DB, id, req.toInput())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	slog.Info("book updated", "id", id)
	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/v1/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}

	deleted, err := store.DeleteBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete book")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	slog.Info("book deleted", "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

// UploadCover handles POST /api/v1/books/{id}/cover. The image is downscaled
// and re-encoded before storage.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("cover")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing cover file")
		return
	}
	defer file.Close()

	cover, err := imaging.ProcessCover(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store cover")
		return
	}

	slog.Info("book cover uploaded", "id", id, "bytes", len(cover.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover uploaded"})
}

// GetCover handles GET /api/v1/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "book")
	if !ok {
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get cover")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "cover not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
