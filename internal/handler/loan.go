package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise/internal/handler/dto"
	"github.com/shelfwise/shelfwise/internal/service"
)

// LoanHandler handles HTTP requests for loan lifecycle operations.
type LoanHandler struct {
	svc    *service.LoanService
	logger *slog.Logger
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(svc *service.LoanService, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/loans.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.UserID == "" || req.CopyID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "User ID and copy ID are required")
		return
	}

	input := service.CreateLoanInput{
		UserID: req.UserID,
		CopyID: req.CopyID,
	}
	if req.StartDate != nil {
		input.StartDate = *req.StartDate
	}

	loan, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("loan_created",
		"loan_id", loan.ID,
		"copy_id", loan.CopyID,
		"user_id", loan.UserID,
	)

	writeJSON(w, http.StatusCreated, dto.ToLoanResponse(loan))
}

// Get handles GET /api/v1/loans/{id}.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Loan ID is required")
		return
	}

	loan, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLoanResponse(loan))
}

// List handles GET /api/v1/loans.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLoanListResponse(loans))
}

// Update handles PATCH /api/v1/loans/{id}. Dates update partially;
// setting the end date closes the loan and frees its copy.
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Loan ID is required")
		return
	}

	var req dto.UpdateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	loan, err := h.svc.UpdateDates(r.Context(), id, req.StartDate, req.EndDate)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("loan_updated", "loan_id", loan.ID, "open", loan.Open())

	writeJSON(w, http.StatusOK, dto.ToLoanResponse(loan))
}

// Return handles POST /api/v1/loans/{id}/return.
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Loan ID is required")
		return
	}

	var req dto.ReturnLoanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return
		}
	}

	returnedAt := time.Now()
	if req.ReturnedAt != nil {
		returnedAt = *req.ReturnedAt
	}

	loan, err := h.svc.Close(r.Context(), id, returnedAt)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("loan_returned", "loan_id", loan.ID, "copy_id", loan.CopyID)

	writeJSON(w, http.StatusOK, dto.ToLoanResponse(loan))
}

// Delete handles DELETE /api/v1/loans/{id}.
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Loan ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("loan_deleted", "loan_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *LoanHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLoanNotFound):
		h.writeError(w, http.StatusNotFound, "LOAN_NOT_FOUND", "Loan not found")
	case errors.Is(err, service.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrCopyNotFound):
		h.writeError(w, http.StatusNotFound, "COPY_NOT_FOUND", "Copy not found")
	case errors.Is(err, service.ErrCopyAlreadyLoaned):
		h.writeError(w, http.StatusConflict, "COPY_ALREADY_LOANED", "Copy is attached to an open loan")
	case errors.Is(err, service.ErrLoanClosed):
		h.writeError(w, http.StatusConflict, "LOAN_CLOSED", "Loan is already closed")
	case errors.Is(err, service.ErrInvalidDateRange):
		h.writeError(w, http.StatusUnprocessableEntity, "INVALID_DATE_RANGE", "End date must not precede start date")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *LoanHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
