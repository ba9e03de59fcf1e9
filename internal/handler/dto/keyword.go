package dto

import (
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// AddKeywordRequest represents the request body for attaching a keyword
// to a book.
type AddKeywordRequest struct {
	Keyword string `json:"keyword"`
	Group   string `json:"group,omitempty"`
}

// UpdateKeywordRequest represents the request body for editing a
// keyword.
type UpdateKeywordRequest struct {
	Keyword string `json:"keyword,omitempty"`
	Group   string `json:"group,omitempty"`
}

// KeywordResponse represents a keyword in API responses.
type KeywordResponse struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Keyword   string    `json:"keyword"`
	Group     string    `json:"group,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// KeywordListResponse represents a list of keywords.
type KeywordListResponse struct {
	Data []KeywordResponse `json:"data"`
}

// ToKeywordResponse converts a Keyword model.
func ToKeywordResponse(keyword *model.Keyword) *KeywordResponse {
	return &KeywordResponse{
		ID:        keyword.ID,
		BookID:    keyword.BookID,
		Keyword:   keyword.Keyword,
		Group:     keyword.Group,
		CreatedAt: keyword.CreatedAt,
	}
}

// ToKeywordListResponse converts a slice of Keyword models.
func ToKeywordListResponse(keywords []*model.Keyword) *KeywordListResponse {
	responses := make([]KeywordResponse, len(keywords))
	for i, keyword := range keywords {
		responses[i] = *ToKeywordResponse(keyword)
	}
	return &KeywordListResponse{Data: responses}
}
