// Package model defines domain entities for the application.
package model

import "time"

// Reservation represents a user's request for a book. It is not bound
// to a specific copy; the copy is chosen at conversion time. A
// reservation that converts into a loan is consumed (deleted), so the
// active set only ever holds unconverted reservations.
type Reservation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}
