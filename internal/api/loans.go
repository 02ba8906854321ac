package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vhnguyen/libra/internal/events"
	"github.com/vhnguyen/libra/internal/loan"
	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

// LoansHandler handles the loan workflow endpoints.
type LoansHandler struct {
	DB     *sql.DB
	Events *events.Publisher
}

type createLoanRequest struct {
	ReaderID int64   `json:"reader_id" validate:"required"`
	Items    []int64 `json:"items" validate:"required,min=1"`
	Note     string  `json:"note"`
}

type returnDetailRequest struct {
	BookCopyID    int64   `json:"book_copy_id" validate:"required"`
	Condition     string  `json:"condition" validate:"omitempty,oneof=GOOD DAMAGED LOST"`
	PenaltyAmount float64 `json:"penalty_amount" validate:"min=0"`
}

type returnLoanRequest struct {
	ReturnDetails []returnDetailRequest `json:"return_details" validate:"required,min=1,dive"`
}

// Create handles POST /api/v1/loans. The acting librarian is taken from the
// auth token.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createLoanRequest
	if !decodeValid(w, r, &req) {
		return
	}

	l, err := loan.Create(r.Context(), h.DB, loan.CreateRequest{
		ReaderID: req.ReaderID,
		StaffID:  claims.UserID,
		CopyIDs:  req.Items,
		Note:     req.Note,
	})
	if err != nil {
		writeLoanError(w, err)
		return
	}

	h.publish(r.Context(), "loan created", h.Events.LoanCreated, l)

	slog.Info("loan created", "code", l.LoanCode, "reader", l.Reader.ID, "items", len(l.Items))
	jsonResponse(w, http.StatusCreated, l)
}

// Return handles POST /api/v1/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "loan")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req returnLoanRequest
	if !decodeValid(w, r, &req) {
		return
	}

	details := make([]loan.ReturnDetail, 0, len(req.ReturnDetails))
	for _, d := range req.ReturnDetails {
		details = append(details, loan.ReturnDetail{
			CopyID:        d.BookCopyID,
			Condition:     d.Condition,
			StaffID:       claims.UserID,
			PenaltyAmount: d.PenaltyAmount,
		})
	}

	l, err := loan.Return(r.Context(), h.DB, id, details)
	if err != nil {
		writeLoanError(w, err)
		return
	}

	h.publish(r.Context(), "loan returned", h.Events.LoanReturned, l)

	slog.Info("loan returned", "code", l.LoanCode, "status", l.Status)
	jsonResponse(w, http.StatusOK, l)
}

// Get handles GET /api/v1/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "loan")
	if !ok {
		return
	}

	l, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get loan")
		return
	}
	if l == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}
	jsonResponse(w, http.StatusOK, l)
}

// ListByReader handles GET /api/v1/loans/readers/{readerId}. Pass active=true
// to only see unreturned loans.
func (h *LoansHandler) ListByReader(w http.ResponseWriter, r *http.Request) {
	readerID, ok := pathID(w, r, "readerId", "reader")
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	loans, err := store.ListLoansByReader(r.Context(), h.DB, readerID, activeOnly)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"data": loans})
}

// writeLoanError maps workflow failures to status codes. Missing entities are
// 404, state conflicts are 400, everything else is internal.
func writeLoanError(w http.ResponseWriter, err error) {
	switch {
	case loan.IsNotFound(err):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, loan.ErrCardInactive),
		errors.Is(err, loan.ErrAccountLocked),
		errors.Is(err, loan.ErrHasOverdue),
		errors.Is(err, loan.ErrStaffNotAuthorized),
		errors.Is(err, loan.ErrCopyNotAvailable),
		errors.Is(err, loan.ErrAlreadyReturned),
		errors.Is(err, loan.ErrNoItems):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "loan operation failed")
	}
}

// publish sends a loan event after the transaction committed. Event delivery
// is best effort and never fails the request.
func (h *LoansHandler) publish(ctx context.Context, name string, fn func(context.Context, *model.Loan) error, l *model.Loan) {
	if err := fn(ctx, l); err != nil {
		slog.Warn("failed to publish event", "event", name, "loan", l.LoanCode, "error", err)
	}
}
