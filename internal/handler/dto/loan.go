package dto

import (
	"time"

	"github.com/shelfwise/shelfwise/internal/model"
)

// CreateLoanRequest represents the request body for creating a loan
// against a known copy. StartDate defaults to today when omitted.
type CreateLoanRequest struct {
	UserID    string     `json:"user_id"`
	CopyID    string     `json:"copy_id"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// UpdateLoanRequest represents a partial date update. Omitted fields
// keep their current value; setting EndDate closes the loan.
type UpdateLoanRequest struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ReturnLoanRequest represents the request body for returning a loan.
// ReturnedAt defaults to today when omitted.
type ReturnLoanRequest struct {
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID            string     `json:"id"`
	CopyID        string     `json:"copy_id"`
	UserID        string     `json:"user_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Open          bool       `json:"open"`
	ReservationID *string    `json:"reservation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LoanListResponse represents a list of loans.
type LoanListResponse struct {
	Data []LoanResponse `json:"data"`
}

// ToLoanResponse converts a Loan model to LoanResponse DTO.
func ToLoanResponse(loan *model.Loan) *LoanResponse {
	return &LoanResponse{
		ID:            loan.ID,
		CopyID:        loan.CopyID,
		UserID:        loan.UserID,
		StartDate:     loan.StartDate,
		EndDate:       loan.EndDate,
		Open:          loan.Open(),
		ReservationID: loan.ReservationID,
		CreatedAt:     loan.CreatedAt,
		UpdatedAt:     loan.UpdatedAt,
	}
}

// ToLoanListResponse converts a slice of Loan models.
func ToLoanListResponse(loans []*model.Loan) *LoanListResponse {
	responses := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		responses[i] = *ToLoanResponse(loan)
	}
	return &LoanListResponse{Data: responses}
}
