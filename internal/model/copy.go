// Package model defines domain entities for the application.
package model

import "time"

// Copy represents one physical instance of a Book that can be loaned.
//
// Invariant: Available is false if and only if the copy is attached to
// exactly one open Loan. All transitions of this flag go through the
// repository's conditional claim/release operations.
type Copy struct {
	ID           string    `json:"id"`
	BookID       string    `json:"book_id"`
	Available    bool      `json:"available"`
	HeldByUserID *string   `json:"held_by_user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
