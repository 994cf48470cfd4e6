package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/learner/internal/errors"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

// TopicService handles the topic catalogue
type TopicService interface {
	Create(ctx context.Context, name, description string) (*models.Topic, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	List(ctx context.Context) ([]models.Topic, error)
}

type topicService struct {
	topics repository.TopicRepository
}

// NewTopicService creates a new TopicService
func NewTopicService(topics repository.TopicRepository) TopicService {
	return &topicService{topics: topics}
}

func (s *topicService) Create(ctx context.Context, name, description string) (*models.Topic, error) {
	log := logger.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "is required")
	}
	if len(name) > 200 {
		return nil, errors.NewValidationError("name", "must be at most 200 characters")
	}

	t := models.Topic{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.topics.Insert(ctx, t); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.NewConflictError("a topic with this name already exists", err)
		}
		log.Error("failed to create topic: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("topic created: id=%s, name=%s", t.ID, t.Name)
	return &t, nil
}

func (s *topicService) Get(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	t, err := s.topics.Get(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get topic: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if t == nil {
		return nil, errors.NewNotFoundError("topic", id)
	}
	return t, nil
}

func (s *topicService) List(ctx context.Context) ([]models.Topic, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list topics: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	return topics, nil
}
