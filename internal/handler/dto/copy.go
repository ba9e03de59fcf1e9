package dto

import (
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// CreateCopyRequest represents the request body for registering a copy.
type CreateCopyRequest struct {
	BookID string `json:"book_id"`
}

// ReassignCopyRequest represents the request body for moving a copy to
// a different book.
type ReassignCopyRequest struct {
	BookID string `json:"book_id"`
}

// CopyResponse represents a copy in API responses.
type CopyResponse struct {
	ID           string    `json:"id"`
	BookID       string    `json:"book_id"`
	Available    bool      `json:"available"`
	HeldByUserID *string   `json:"held_by_user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CopyListResponse represents a list of copies.
type CopyListResponse struct {
	Data []CopyResponse `json:"data"`
}

// ToCopyResponse converts a Copy model to CopyResponse DTO.
func ToCopyResponse(copy *model.Copy) *CopyResponse {
	return &CopyResponse{
		ID:           copy.ID,
		BookID:       copy.BookID,
		Available:    copy.Available,
		HeldByUserID: copy.HeldByUserID,
		CreatedAt:    copy.CreatedAt,
		UpdatedAt:    copy.UpdatedAt,
	}
}

// ToCopyListResponse converts a slice of Copy models.
func ToCopyListResponse(copies []*model.Copy) *CopyListResponse {
	responses := make([]CopyResponse, len(copies))
	for i, copy := range copies {
		responses[i] = *ToCopyResponse(copy)
	}
	return &CopyListResponse{Data: responses}
}
