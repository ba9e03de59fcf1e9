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

// CopyHandler handles HTTP requests for copy inventory operations.
type CopyHandler struct {
	svc    *service.CopyService
	logger *slog.Logger
}

// NewCopyHandler creates a new CopyHandler.
func NewCopyHandler(svc *service.CopyService, logger *slog.Logger) *CopyHandler {
	return &CopyHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/copies.
func (h *CopyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.BookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_BOOK_ID", "Book ID is required")
		return
	}

	copy, err := h.svc.Create(r.Context(), req.BookID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("copy_created", "copy_id", copy.ID, "book_id", copy.BookID)

	writeJSON(w, http.StatusCreated, dto.ToCopyResponse(copy))
}

// Get handles GET /api/v1/copies/{id}.
func (h *CopyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Copy ID is required")
		return
	}

	copy, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCopyResponse(copy))
}

// ListByBook handles GET /api/v1/books/{id}/copies.
func (h *CopyHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	copies, err := h.svc.ListByBook(r.Context(), bookID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCopyListResponse(copies))
}

// Reassign handles PATCH /api/v1/copies/{id}.
func (h *CopyHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Copy ID is required")
		return
	}

	var req dto.ReassignCopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.BookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_BOOK_ID", "Book ID is required")
		return
	}

	copy, err := h.svc.Reassign(r.Context(), id, req.BookID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("copy_reassigned", "copy_id", copy.ID, "book_id", copy.BookID)

	writeJSON(w, http.StatusOK, dto.ToCopyResponse(copy))
}

// Delete handles DELETE /api/v1/copies/{id}.
func (h *CopyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Copy ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("copy_deleted", "copy_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *CopyHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCopyNotFound):
		h.writeError(w, http.StatusNotFound, "COPY_NOT_FOUND", "Copy not found")
	case errors.Is(err, service.ErrBookNotFound):
		h.writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
	case errors.Is(err, service.ErrCopyNotAvailable):
		h.writeError(w, http.StatusConflict, "COPY_ON_LOAN", "Copy is attached to an open loan")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *CopyHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
