// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// Book represents a title in the catalog. Physical instances of a book
// are tracked separately as Copy records.
type Book struct {
	ID        string    `json:"id"`
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CachedBook represents book metadata stored in Redis cache.
// Uses string types for Redis hash compatibility. Availability is
// deliberately absent: it is derived per request, never cached.
type CachedBook struct {
	ISBN      string `redis:"isbn"`
	Title     string `redis:"title"`
	Author    string `redis:"author"`
	UpdatedAt string `redis:"updated_at"` // Unix timestamp
}

// ToBook converts CachedBook to the Book domain model.
func (c *CachedBook) ToBook(id string) *Book {
	book := &Book{
		ID:     id,
		ISBN:   c.ISBN,
		Title:  c.Title,
		Author: c.Author,
	}

	if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
		book.UpdatedAt = time.Unix(ts, 0).UTC()
	}

	return book
}

// ToCachedBook converts a Book to its cache representation.
func (b *Book) ToCachedBook() *CachedBook {
	return &CachedBook{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		UpdatedAt: strconv.FormatInt(b.UpdatedAt.Unix(), 10),
	}
}
