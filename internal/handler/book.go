package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise/internal/handler/dto"
	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/service"
)

// BookHandler handles HTTP requests for catalog operations.
type BookHandler struct {
	svc          *service.BookService
	availability *service.AvailabilityService
	logger       *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(svc *service.BookService, availability *service.AvailabilityService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		svc:          svc,
		availability: availability,
		logger:       logger,
	}
}

// Create handles POST /api/v1/books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	book, err := h.svc.Create(r.Context(), service.CreateBookInput{
		ISBN:   req.ISBN,
		Title:  req.Title,
		Author: req.Author,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_created", "book_id", book.ID, "isbn", book.ISBN)

	// A new book has no copies yet.
	writeJSON(w, http.StatusCreated, dto.ToBookResponse(book, 0))
}

// Get handles GET /api/v1/books/{id}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	book, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	available, err := h.availability.CopiesAvailable(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookResponse(book, available))
}

// Availability handles GET /api/v1/books/{id}/availability. The
// endpoint is public so patrons can check a book before visiting.
func (h *BookHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	available, err := h.availability.CopiesAvailable(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AvailabilityResponse{
		BookID:          id,
		Available:       available > 0,
		CopiesAvailable: available,
	})
}

// List handles GET /api/v1/books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if keyword := query.Get("keyword"); keyword != "" {
		h.search(w, r, keyword)
		return
	}

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	books, nextCursor, err := h.svc.List(r.Context(), query.Get("cursor"), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toListResponse(r, books, nextCursor))
}

// search handles GET /api/v1/books?keyword=....
func (h *BookHandler) search(w http.ResponseWriter, r *http.Request, keyword string) {
	books, err := h.svc.Search(r.Context(), keyword)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toListResponse(r, books, ""))
}

// Update handles PATCH /api/v1/books/{id}.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	var req dto.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	book, err := h.svc.Update(r.Context(), id, service.UpdateBookInput{
		ISBN:   req.ISBN,
		Title:  req.Title,
		Author: req.Author,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_updated", "book_id", book.ID)

	available, err := h.availability.CopiesAvailable(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookResponse(book, available))
}

// Delete handles DELETE /api/v1/books/{id}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_deleted", "book_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// AddKeyword handles POST /api/v1/books/{id}/keywords.
func (h *BookHandler) AddKeyword(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	var req dto.AddKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	keyword, err := h.svc.AddKeyword(r.Context(), service.AddKeywordInput{
		BookID:  bookID,
		Keyword: req.Keyword,
		Group:   req.Group,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToKeywordResponse(keyword))
}

// ListKeywords handles GET /api/v1/books/{id}/keywords.
func (h *BookHandler) ListKeywords(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Book ID is required")
		return
	}

	keywords, err := h.svc.ListKeywords(r.Context(), bookID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToKeywordListResponse(keywords))
}

// UpdateKeyword handles PATCH /api/v1/keywords/{id}.
func (h *BookHandler) UpdateKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Keyword ID is required")
		return
	}

	var req dto.UpdateKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	keyword, err := h.svc.UpdateKeyword(r.Context(), id, req.Keyword, req.Group)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToKeywordResponse(keyword))
}

// RemoveKeyword handles DELETE /api/v1/keywords/{id}.
func (h *BookHandler) RemoveKeyword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Keyword ID is required")
		return
	}

	if err := h.svc.RemoveKeyword(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toListResponse projects availability for each listed book.
func (h *BookHandler) toListResponse(r *http.Request, books []*model.Book, nextCursor string) *dto.BookListResponse {
	responses := make([]dto.BookResponse, len(books))
	for i, book := range books {
		available, err := h.availability.CopiesAvailable(r.Context(), book.ID)
		if err != nil {
			available = 0
		}
		responses[i] = *dto.ToBookResponse(book, available)
	}
	return &dto.BookListResponse{
		Data: responses,
		Pagination: &dto.Pagination{
			NextCursor: nextCursor,
			HasMore:    nextCursor != "",
		},
	}
}

// handleServiceError maps service errors to HTTP responses.
func (h *BookHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		h.writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
	case errors.Is(err, service.ErrKeywordNotFound):
		h.writeError(w, http.StatusNotFound, "KEYWORD_NOT_FOUND", "Keyword not found")
	case errors.Is(err, service.ErrISBNExists):
		h.writeError(w, http.StatusConflict, "ISBN_TAKEN", "ISBN already exists")
	case errors.Is(err, service.ErrBookOnLoan):
		h.writeError(w, http.StatusConflict, "BOOK_ON_LOAN", "Book has copies out on loan")
	case errors.Is(err, service.ErrInvalidISBN):
		h.writeError(w, http.StatusBadRequest, "INVALID_ISBN", "Invalid ISBN format")
	case errors.Is(err, service.ErrTitleMissing):
		h.writeError(w, http.StatusBadRequest, "TITLE_REQUIRED", "Title is required")
	case errors.Is(err, service.ErrKeywordMissing):
		h.writeError(w, http.StatusBadRequest, "KEYWORD_REQUIRED", "Keyword is required")
	case errors.Is(err, service.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *BookHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
