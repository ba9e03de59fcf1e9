package audit

import (
	"fmt"
	"slices"

	"github.com/shelfwise/shelfwise/internal/model"
)

// maxIDLength bounds entity ID fields; ULIDs are 26 chars but the
// payload tolerates any reasonable identifier.
const maxIDLength = 64

var validEventTypes = []string{
	model.EventLoanCreated,
	model.EventLoanClosed,
	model.EventLoanDeleted,
	model.EventReservationCreated,
	model.EventReservationConverted,
	model.EventReservationCancelled,
	model.EventAllocationFailed,
}

// ValidateEventPayload validates circulation event payload fields.
func ValidateEventPayload(payload EventPayload) error {
	if payload.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if !slices.Contains(validEventTypes, payload.Type) {
		return fmt.Errorf("unknown event type %q", payload.Type)
	}
	if payload.BookID == "" {
		return fmt.Errorf("book_id is required")
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	for name, id := range map[string]string{
		"book_id":        payload.BookID,
		"copy_id":        payload.CopyID,
		"loan_id":        payload.LoanID,
		"user_id":        payload.UserID,
		"reservation_id": payload.ReservationID,
	} {
		if len(id) > maxIDLength {
			return fmt.Errorf("%s too long", name)
		}
	}
	return nil
}
