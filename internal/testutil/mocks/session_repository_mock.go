package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/vytor/learner/internal/models"
	"github.com/vytor/learner/internal/repository"
)

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Start(ctx context.Context, session models.Session) (*models.Session, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) GetActive(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) History(ctx context.Context, filter models.HistoryFilter) ([]models.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *MockSessionRepository) Finish(ctx context.Context, req models.FinishRequest, advance repository.StreakAdvancer) (*models.Session, error) {
	args := m.Called(ctx, req, advance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Activities(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SessionActivity), args.Error(1)
}

func (m *MockSessionRepository) GetActivity(ctx context.Context, sessionID, activityID uuid.UUID) (*models.SessionActivity, error) {
	args := m.Called(ctx, sessionID, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionActivity), args.Error(1)
}

func (m *MockSessionRepository) OpenActivity(ctx context.Context, activity models.SessionActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockSessionRepository) CompleteActivity(ctx context.Context, sessionID, activityID uuid.UUID, performance models.PerformanceData, endedAt time.Time) (*models.SessionActivity, error) {
	args := m.Called(ctx, sessionID, activityID, performance, endedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionActivity), args.Error(1)
}

func (m *MockSessionRepository) GetStreak(ctx context.Context, userID uuid.UUID) (*models.Streak, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Streak), args.Error(1)
}

// MockQuizAttemptRepository is a mock implementation of repository.QuizAttemptRepository
type MockQuizAttemptRepository struct {
	mock.Mock
}

func (m *MockQuizAttemptRepository) Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockQuizAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.QuizAttempt, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuizAttempt), args.Error(1)
}

func (m *MockQuizAttemptRepository) Insert(ctx context.Context, attempt models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockQuizAttemptRepository) Submit(ctx context.Context, attempt models.QuizAttempt, apply repository.ProgressApplier) error {
	args := m.Called(ctx, attempt, apply)
	return args.Error(0)
}
