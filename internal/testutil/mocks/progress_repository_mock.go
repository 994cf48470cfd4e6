package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vytor/learner/internal/models"
)

// MockProgressRepository is a mock implementation of repository.ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Get(ctx context.Context, userID, topicID uuid.UUID) (*models.TopicProgress, error) {
	args := m.Called(ctx, userID, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TopicProgress), args.Error(1)
}

func (m *MockProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopicProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TopicProgress), args.Error(1)
}

func (m *MockProgressRepository) DueForReview(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]models.TopicProgress, error) {
	args := m.Called(ctx, userID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TopicProgress), args.Error(1)
}

func (m *MockProgressRepository) CountDueByUser(ctx context.Context, now time.Time) ([]models.DueCount, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DueCount), args.Error(1)
}

func (m *MockProgressRepository) Insert(ctx context.Context, progress models.TopicProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockProgressRepository) Update(ctx context.Context, progress models.TopicProgress, expectedVersion int64) error {
	args := m.Called(ctx, progress, expectedVersion)
	return args.Error(0)
}
