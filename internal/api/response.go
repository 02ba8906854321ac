package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// validate checks request DTO struct tags.
var validate = validator.New()

// Pagination describes one page of a list response.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
}

// listResponse is the envelope for paginated collections.
type listResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeValid decodes the body and runs struct-tag validation, writing a 400
// with the first violation on failure. Returns false if the request was bad.
func decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := validate.Struct(target); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			jsonError(w, http.StatusBadRequest, "invalid field "+errs[0].Field())
			return false
		}
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} path segment. Malformed ids report not-found rather
// than a parse error, since no resource can have such an id.
func pathID(w http.ResponseWriter, r *http.Request, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return id, true
}

// pageParams reads page/limit query parameters with defaults.
func pageParams(r *http.Request) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

// paginate builds the list envelope for one result page.
func paginate(data any, page, limit, total int) listResponse {
	return listResponse{
		Data: data,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			TotalItems:  total,
		},
	}
}
