package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// User validation errors.
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrNameMissing  = errors.New("first and last name are required")
)

// UserService handles borrower accounts.
type UserService struct {
	repo *repository.Repository
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// CreateUserInput defines input for registering a borrower.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Admin     bool
}

// Create registers a new borrower.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, ErrNameMissing
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:        ulid.Make().String(),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Admin:     input.Admin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by their email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, normalized)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

// List retrieves all users.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateUserInput defines input for updating a user. Empty fields keep
// their current value.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
}

// Update modifies a user's profile.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if input.FirstName != "" {
		user.FirstName = strings.TrimSpace(input.FirstName)
	}
	if input.LastName != "" {
		user.LastName = strings.TrimSpace(input.LastName)
	}
	if input.Email != "" {
		email, err := normalizeEmail(input.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

// Delete removes a user account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return mapStoreError(s.repo.DeleteUser(ctx, id))
}

// normalizeEmail lowercases and validates an email address. The check
// is deliberately shallow: one @ with something on both sides.
func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(normalized, "@")
	if at < 1 || at == len(normalized)-1 || strings.Count(normalized, "@") != 1 {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
