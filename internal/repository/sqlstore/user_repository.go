package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

type userRepository struct {
	db *db.DB
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(database *db.DB) repository.UserRepository {
	return &userRepository{db: database}
}

func (r *userRepository) Insert(ctx context.Context, u models.User) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("inserting user: id=%s", u.ID)

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO users (id, email, display_name, created_at)
VALUES (?, ?, ?, ?)
`), u.ID, u.Email, u.DisplayName, utc(u.CreatedAt))
	if db.IsUniqueViolation(err) {
		log.Debug("user already exists: email=%s", u.Email)
		return repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to insert user: %v", err)
	}
	return err
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user: id=%s", id)

	var u models.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`
SELECT id, email, display_name, created_at
FROM users
WHERE id = ?
`), id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("user not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user: %v", err)
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("listing users")

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, `
SELECT id, email, display_name, created_at
FROM users
ORDER BY created_at ASC
`); err != nil {
		log.Error("failed to list users: %v", err)
		return nil, err
	}
	log.Debug("found %d users", len(users))
	return users, nil
}

// Delete removes the user; progress, sessions, activities, attempts and the
// streak go with it through ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("deleting user and related data: id=%s", id)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		log.Error("failed to delete user %s: %v", id, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	log.Debug("user %s deleted with cascading data", id)
	return nil
}
