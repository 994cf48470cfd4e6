package services

import (
	"context"
	stderrors "errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

// UserService handles learner accounts
type UserService interface {
	Create(ctx context.Context, email, displayName string) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	// Delete removes the user together with all progress, sessions and streaks.
	Delete(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Create(ctx context.Context, email, displayName string) (*models.User, error) {
	log := logger.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.NewValidationError("email", "is not a valid address")
	}
	displayName = strings.TrimSpace(displayName)
	if len(displayName) > 120 {
		return nil, errors.NewValidationError("display_name", "must be at most 120 characters")
	}

	u := models.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.NewConflictError("a user with this email already exists", err)
		}
		log.Error("failed to create user: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("user created: id=%s", u.ID)
	return &u, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if u == nil {
		return nil, errors.NewNotFoundError("user", id)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list users: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	if err := s.users.Delete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFoundError("user", id)
		}
		log.Error("failed to delete user: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("user deleted: id=%s", id)
	return nil
}
