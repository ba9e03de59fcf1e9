package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise/internal/handler/dto"
	"github.com/shelfwise/shelfwise/internal/service"
)

// ReservationHandler handles HTTP requests for reservation operations.
type ReservationHandler struct {
	svc    *service.ReservationService
	logger *slog.Logger
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(svc *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.UserID == "" || req.BookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "User ID and book ID are required")
		return
	}

	input := service.CreateReservationInput{
		UserID: req.UserID,
		BookID: req.BookID,
	}
	if req.Date != nil {
		input.ReservationDate = *req.Date
	}

	reservation, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("reservation_created",
		"reservation_id", reservation.ID,
		"book_id", reservation.BookID,
		"user_id", reservation.UserID,
	)

	writeJSON(w, http.StatusCreated, dto.ToReservationResponse(reservation))
}

// Get handles GET /api/v1/reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Reservation ID is required")
		return
	}

	reservation, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReservationResponse(reservation))
}

// List handles GET /api/v1/reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.svc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReservationListResponse(reservations))
}

// Update handles PATCH /api/v1/reservations/{id}.
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Reservation ID is required")
		return
	}

	var req dto.UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.UserID == nil && req.BookID == nil && req.Date == nil {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "At least one field is required")
		return
	}

	reservation, err := h.svc.Update(r.Context(), id, service.UpdateReservationInput{
		UserID: req.UserID,
		BookID: req.BookID,
		Date:   req.Date,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToReservationResponse(reservation))
}

// Convert handles POST /api/v1/reservations/{id}/convert. A successful
// conversion consumes the reservation and returns the new loan; when no
// copy is available the reservation is left untouched.
func (h *ReservationHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Reservation ID is required")
		return
	}

	loan, err := h.svc.ConvertToLoan(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("reservation_converted",
		"reservation_id", id,
		"loan_id", loan.ID,
		"copy_id", loan.CopyID,
	)

	writeJSON(w, http.StatusCreated, dto.ToLoanResponse(loan))
}

// Delete handles DELETE /api/v1/reservations/{id}.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Reservation ID is required")
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("reservation_cancelled", "reservation_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *ReservationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrReservationNotFound):
		h.writeError(w, http.StatusNotFound, "RESERVATION_NOT_FOUND", "Reservation not found")
	case errors.Is(err, service.ErrBookNotFound):
		h.writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
	case errors.Is(err, service.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrNoCopyAvailable):
		h.writeError(w, http.StatusConflict, "NO_COPY_AVAILABLE", "No copy of this book is available")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *ReservationHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
