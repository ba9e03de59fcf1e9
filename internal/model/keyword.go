// Package model defines domain entities for the application.
package model

import "time"

// Keyword tags a book for catalog search. Group collects related
// keywords (genre, subject, audience) so the UI can facet them.
type Keyword struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Keyword   string    `json:"keyword"`
	Group     string    `json:"group,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
