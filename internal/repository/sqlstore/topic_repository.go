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

type topicRepository struct {
	db *db.DB
}

// NewTopicRepository creates a new TopicRepository implementation
func NewTopicRepository(database *db.DB) repository.TopicRepository {
	return &topicRepository{db: database}
}

func (r *topicRepository) Insert(ctx context.Context, t models.Topic) error {
	log := logger.FromContext(ctx).WithPrefix("topic_repo")
	log.Debug("inserting topic: name=%s", t.Name)

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO topics (id, name, description, created_at)
VALUES (?, ?, ?, ?)
`), t.ID, t.Name, t.Description, utc(t.CreatedAt))
	if db.IsUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to insert topic: %v", err)
	}
	return err
}

func (r *topicRepository) Get(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	log := logger.FromContext(ctx).WithPrefix("topic_repo")

	var t models.Topic
	err := r.db.GetContext(ctx, &t, r.db.Rebind(`SELECT id, name, description, created_at FROM topics WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("topic not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get topic: %v", err)
		return nil, err
	}
	return &t, nil
}

func (r *topicRepository) List(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, `SELECT id, name, description, created_at FROM topics ORDER BY name ASC`); err != nil {
		logger.FromContext(ctx).WithPrefix("topic_repo").Error("failed to list topics: %v", err)
		return nil, err
	}
	return topics, nil
}
