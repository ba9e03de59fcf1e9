package dto

import (
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// CreateReservationRequest represents the request body for placing a
// reservation. Date defaults to today when omitted.
type CreateReservationRequest struct {
	UserID string     `json:"user_id"`
	BookID string     `json:"book_id"`
	Date   *time.Time `json:"date,omitempty"`
}

// UpdateReservationRequest represents the request body for a partial
// reservation update. Omitted fields keep their current value.
type UpdateReservationRequest struct {
	UserID *string    `json:"user_id,omitempty"`
	BookID *string    `json:"book_id,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
}

// ReservationResponse represents a reservation in API responses.
type ReservationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// ReservationListResponse represents a list of reservations.
type ReservationListResponse struct {
	Data []ReservationResponse `json:"data"`
}

// ToReservationResponse converts a Reservation model.
func ToReservationResponse(reservation *model.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:        reservation.ID,
		UserID:    reservation.UserID,
		BookID:    reservation.BookID,
		Date:      reservation.Date,
		CreatedAt: reservation.CreatedAt,
	}
}

// ToReservationListResponse converts a slice of Reservation models.
func ToReservationListResponse(reservations []*model.Reservation) *ReservationListResponse {
	responses := make([]ReservationResponse, len(reservations))
	for i, reservation := range reservations {
		responses[i] = *ToReservationResponse(reservation)
	}
	return &ReservationListResponse{Data: responses}
}
