package service

import (
	"errors"

	"github.com/shelfwise/shelfwise/internal/repository"
)

// Service errors. Allocation failures are expected business outcomes
// surfaced for retry-or-wait decisions; referential and date-range
// errors are fatal to the operation that raised them.
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrBookOnLoan          = errors.New("book has open loans")
	ErrCopyNotFound        = errors.New("copy not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanClosed          = errors.New("loan already closed")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrKeywordNotFound     = errors.New("keyword not found")
	ErrNoCopyAvailable     = errors.New("no copy available")
	ErrCopyAlreadyLoaned   = errors.New("copy already loaned")
	ErrInvalidDateRange    = errors.New("end date before start date")
	ErrISBNExists          = errors.New("isbn already exists")
	ErrEmailExists         = errors.New("email already exists")
	ErrInvalidCursor       = errors.New("invalid pagination cursor")
	ErrCopyNotAvailable    = errors.New("copy is attached to an open loan")
)

// mapStoreError translates repository sentinels into service errors.
// Unknown errors pass through unchanged.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrBookNotFound):
		return ErrBookNotFound
	case errors.Is(err, repository.ErrBookOnLoan):
		return ErrBookOnLoan
	case errors.Is(err, repository.ErrCopyNotFound):
		return ErrCopyNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrLoanNotFound):
		return ErrLoanNotFound
	case errors.Is(err, repository.ErrReservationNotFound):
		return ErrReservationNotFound
	case errors.Is(err, repository.ErrKeywordNotFound):
		return ErrKeywordNotFound
	case errors.Is(err, repository.ErrISBNExists):
		return ErrISBNExists
	case errors.Is(err, repository.ErrEmailExists):
		return ErrEmailExists
	case errors.Is(err, repository.ErrInvalidCursor):
		return ErrInvalidCursor
	case errors.Is(err, repository.ErrCopyAlreadyLoaned):
		return ErrCopyAlreadyLoaned
	case errors.Is(err, repository.ErrInvalidDateRange):
		return ErrInvalidDateRange
	case errors.Is(err, repository.ErrLoanClosed):
		return ErrLoanClosed
	default:
		return err
	}
}
