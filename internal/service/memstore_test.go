package service

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// memStore is a mutex-guarded in-memory implementation of the store
// interfaces. It mirrors the repository's transactional semantics:
// ClaimCopy is check-and-set under one lock, and the multi-entity loan
// operations apply all mutations or none.
type memStore struct {
	mu           sync.Mutex
	books        map[string]*model.Book
	copies       map[string]*model.Copy
	users        map[string]*model.User
	loans        map[string]*model.Loan
	reservations map[string]*model.Reservation

	// convertErr, when set, fails CreateLoanConsumingReservation
	// before any mutation, simulating a transaction rollback.
	convertErr error

	// claimHook runs before each ClaimCopy attempt while the lock is
	// not held. Used to interleave a competing claim.
	claimHook func(copyID string)

	released []string
}

func newMemStore() *memStore {
	return &memStore{
		books:        make(map[string]*model.Book),
		copies:       make(map[string]*model.Copy),
		users:        make(map[string]*model.User),
		loans:        make(map[string]*model.Loan),
		reservations: make(map[string]*model.Reservation),
	}
}

func (m *memStore) addBook(title string) *model.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	book := &model.Book{ID: ulid.Make().String(), ISBN: "9780000000000", Title: title}
	m.books[book.ID] = book
	return book
}

func (m *memStore) addCopy(bookID string) *model.Copy {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := &model.Copy{ID: ulid.Make().String(), BookID: bookID, Available: true}
	m.copies[copy.ID] = copy
	return copy
}

func (m *memStore) addUser(email string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &model.User{ID: ulid.Make().String(), FirstName: "Pat", LastName: "Reader", Email: email}
	m.users[user.ID] = user
	return user
}

func (m *memStore) addReservation(bookID, userID string, date time.Time) *model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	reservation := &model.Reservation{
		ID:     ulid.Make().String(),
		BookID: bookID,
		UserID: userID,
		Date:   model.Date(date),
	}
	m.reservations[reservation.ID] = reservation
	return reservation
}

func (m *memStore) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return book, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memStore) GetCopyByID(ctx context.Context, id string) (*model.Copy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy, ok := m.copies[id]
	if !ok {
		return nil, repository.ErrCopyNotFound
	}
	clone := *copy
	return &clone, nil
}

func (m *memStore) AvailableCopies(ctx context.Context, bookID string) ([]*model.Copy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var available []*model.Copy
	for _, copy := range m.copies {
		if copy.BookID == bookID && copy.Available {
			clone := *copy
			available = append(available, &clone)
		}
	}
	return available, nil
}

func (m *memStore) CountAvailableCopies(ctx context.Context, bookID string) (int, error) {
	copies, _ := m.AvailableCopies(ctx, bookID)
	return len(copies), nil
}

func (m *memStore) ClaimCopy(ctx context.Context, copyID string, heldBy string) (bool, error) {
	if m.claimHook != nil {
		m.claimHook(copyID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimLocked(copyID, heldBy), nil
}

func (m *memStore) claimLocked(copyID, heldBy string) bool {
	copy, ok := m.copies[copyID]
	if !ok || !copy.Available {
		return false
	}
	copy.Available = false
	if heldBy != "" {
		copy.HeldByUserID = &heldBy
	}
	return true
}

func (m *memStore) ReleaseCopy(ctx context.Context, copyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked(copyID)
}

func (m *memStore) releaseLocked(copyID string) error {
	copy, ok := m.copies[copyID]
	if !ok || copy.Available {
		return repository.ErrCopyNotFound
	}
	copy.Available = true
	copy.HeldByUserID = nil
	m.released = append(m.released, copyID)
	return nil
}

func (m *memStore) CreateLoanClaiming(ctx context.Context, loan *model.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy, ok := m.copies[loan.CopyID]
	if !ok {
		return repository.ErrCopyNotFound
	}
	if !copy.Available {
		return repository.ErrCopyAlreadyLoaned
	}
	m.claimLocked(loan.CopyID, loan.UserID)
	clone := *loan
	m.loans[loan.ID] = &clone
	return nil
}

func (m *memStore) CreateLoanConsumingReservation(ctx context.Context, loan *model.Loan, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.convertErr != nil {
		return m.convertErr
	}
	if _, ok := m.reservations[reservationID]; !ok {
		return repository.ErrReservationNotFound
	}
	clone := *loan
	m.loans[loan.ID] = &clone
	delete(m.reservations, reservationID)
	return nil
}

func (m *memStore) GetLoanByID(ctx context.Context, id string) (*model.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[id]
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	clone := *loan
	return &clone, nil
}

func (m *memStore) ListLoans(ctx context.Context) ([]*model.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var loans []*model.Loan
	for _, loan := range m.loans {
		clone := *loan
		loans = append(loans, &clone)
	}
	return loans, nil
}

func (m *memStore) ListLoansByUser(ctx context.Context, userID string) ([]*model.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var loans []*model.Loan
	for _, loan := range m.loans {
		if loan.UserID == userID {
			clone := *loan
			loans = append(loans, &clone)
		}
	}
	return loans, nil
}

func (m *memStore) UpdateLoanDates(ctx context.Context, loanID string, newStart, newEnd *time.Time) (*model.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[loanID]
	if !ok {
		return nil, repository.ErrLoanNotFound
	}

	updated := *loan
	if newStart != nil {
		updated.StartDate = model.Date(*newStart)
	}
	if newEnd != nil {
		if !loan.Open() {
			return nil, repository.ErrLoanClosed
		}
		end := model.Date(*newEnd)
		updated.EndDate = &end
	}
	if !updated.ValidDates() {
		return nil, repository.ErrInvalidDateRange
	}

	wasOpen := loan.Open()
	*loan = updated
	if wasOpen && !loan.Open() {
		if err := m.releaseLocked(loan.CopyID); err != nil {
			return nil, err
		}
	}

	clone := *loan
	return &clone, nil
}

func (m *memStore) DeleteLoan(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[id]
	if !ok {
		return repository.ErrLoanNotFound
	}
	if loan.Open() {
		if err := m.releaseLocked(loan.CopyID); err != nil {
			return err
		}
	}
	delete(m.loans, id)
	return nil
}

func (m *memStore) CreateReservation(ctx context.Context, reservation *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *reservation
	m.reservations[reservation.ID] = &clone
	return nil
}

func (m *memStore) GetReservationByID(ctx context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reservation, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	clone := *reservation
	return &clone, nil
}

func (m *memStore) ListReservations(ctx context.Context) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reservations []*model.Reservation
	for _, reservation := range m.reservations {
		clone := *reservation
		reservations = append(reservations, &clone)
	}
	return reservations, nil
}

func (m *memStore) ListReservationsByUser(ctx context.Context, userID string) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reservations []*model.Reservation
	for _, reservation := range m.reservations {
		if reservation.UserID == userID {
			clone := *reservation
			reservations = append(reservations, &clone)
		}
	}
	return reservations, nil
}

func (m *memStore) UpdateReservation(ctx context.Context, reservation *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[reservation.ID]; !ok {
		return repository.ErrReservationNotFound
	}
	clone := *reservation
	m.reservations[reservation.ID] = &clone
	return nil
}

func (m *memStore) DeleteReservation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(m.reservations, id)
	return nil
}

// captureSink records events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []model.CirculationEvent
}

func (c *captureSink) Record(event model.CirculationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) byType(eventType string) []model.CirculationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []model.CirculationEvent
	for _, event := range c.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
