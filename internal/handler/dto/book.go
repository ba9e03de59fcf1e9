// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// CreateBookRequest represents the request body for adding a book.
type CreateBookRequest struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

// UpdateBookRequest represents the request body for updating a book.
// Omitted fields keep their current value.
type UpdateBookRequest struct {
	ISBN   string `json:"isbn,omitempty"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// BookResponse represents a book in API responses. CopiesAvailable is
// projected from copy state at response time.
type BookResponse struct {
	ID              string    `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	Available       bool      `json:"available"`
	CopiesAvailable int       `json:"copies_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookListResponse represents a paginated list of books.
type BookListResponse struct {
	Data       []BookResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// AvailabilityResponse represents the availability projection for a
// single book.
type AvailabilityResponse struct {
	BookID          string `json:"book_id"`
	Available       bool   `json:"available"`
	CopiesAvailable int    `json:"copies_available"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToBookResponse converts a Book model to BookResponse DTO.
func ToBookResponse(book *model.Book, copiesAvailable int) *BookResponse {
	return &BookResponse{
		ID:              book.ID,
		ISBN:            book.ISBN,
		Title:           book.Title,
		Author:          book.Author,
		Available:       copiesAvailable > 0,
		CopiesAvailable: copiesAvailable,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}
